// Package validation performs the up-front argument checks that run before
// anything touches the network. Checks are declared as struct tags and
// evaluated by a shared validator instance.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// moduleTypes are the user-facing spellings the tools accept. Site-specific
// plugin modules are reachable through the client API, just not through the
// tool surface.
var moduleTypes = map[string]bool{
	"page":       true,
	"label":      true,
	"url":        true,
	"link":       true,
	"file":       true,
	"resource":   true,
	"forum":      true,
	"discussion": true,
	"assign":     true,
	"assignment": true,
}

var (
	instance *validator.Validate
	once     sync.Once
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New()
		_ = instance.RegisterValidation("moduletype", func(fl validator.FieldLevel) bool {
			return moduleTypes[strings.ToLower(strings.TrimSpace(fl.Field().String()))]
		})
	})
	return instance
}

// ValidationError lists every check a value failed. Nothing was sent
// anywhere when one of these comes back.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Issues, "; ")
}

// Struct checks v against its validate tags and returns a ValidationError
// naming every failed field.
func Struct(v any) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	issues := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, describe(fe))
	}
	return &ValidationError{Issues: issues}
}

// describe renders one failed check as a sentence fragment a tool caller can
// act on.
func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "moduletype":
		return fmt.Sprintf("%s must be one of page, label, url, file, forum or assignment", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed the %s check", field, fe.Tag())
	}
}

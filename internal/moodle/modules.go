package moodle

import (
	"context"
	"errors"
	"net/http"
)

// CreateModule creates one activity module in the given section and returns
// its id. The type travels as-is: a failing rich type is reported, never
// silently substituted, so fallback decisions stay with the caller.
func (c *Client) CreateModule(ctx context.Context, courseID int64, sectionPos int, f ModuleFields) (int64, error) {
	const op = "local_modmanager_create_modules"

	record := map[string]any{
		"courseid":   courseID,
		"section":    sectionPos,
		"modulename": string(f.Type),
		"name":       f.Name,
		"visible":    f.Visible,
	}
	if f.Intro != "" {
		record["intro"] = f.Intro
		record["introformat"] = 1
	}
	if len(f.Options) > 0 {
		options := make([]map[string]any, 0, len(f.Options))
		for _, opt := range f.Options {
			options = append(options, map[string]any{
				"name":  opt.Name,
				"value": opt.Value,
			})
		}
		record["options"] = options
	}

	var created []struct {
		ID int64 `json:"id"`
	}
	params := map[string]any{"modules": []map[string]any{record}}
	if err := c.call(ctx, op, params, &created); err != nil {
		return 0, err
	}
	if len(created) == 0 {
		return 0, &TransportError{
			Op:         op,
			URL:        c.endpoint,
			StatusCode: http.StatusOK,
			Err:        errors.New("response carried no module record"),
		}
	}
	return created[0].ID, nil
}

// CreateURL creates a url module pointing at an external address.
func (c *Client) CreateURL(ctx context.Context, courseID int64, sectionPos int, name, externalURL string) (int64, error) {
	return c.CreateModule(ctx, courseID, sectionPos, ModuleFields{
		Type:    ModuleURL,
		Name:    name,
		Visible: true,
		Options: []ModuleOption{{Name: "externalurl", Value: externalURL}},
	})
}

// CreateAssignment creates an assignment with its due date and grade
// settings carried as option records.
func (c *Client) CreateAssignment(ctx context.Context, courseID int64, sectionPos int, f AssignmentFields) (int64, error) {
	var options []ModuleOption
	if f.DueDate > 0 {
		options = append(options, ModuleOption{Name: "duedate", Value: f.DueDate})
	}
	if f.Grade > 0 {
		options = append(options, ModuleOption{Name: "grade", Value: f.Grade})
	}
	return c.CreateModule(ctx, courseID, sectionPos, ModuleFields{
		Type:    ModuleAssignment,
		Name:    f.Name,
		Intro:   f.Intro,
		Visible: f.Visible,
		Options: options,
	})
}

// CreateForum creates a discussion forum. An empty Type selects the
// standard general forum.
func (c *Client) CreateForum(ctx context.Context, courseID int64, sectionPos int, f ForumFields) (int64, error) {
	forumType := f.Type
	if forumType == "" {
		forumType = "general"
	}
	return c.CreateModule(ctx, courseID, sectionPos, ModuleFields{
		Type:    ModuleForum,
		Name:    f.Name,
		Intro:   f.Intro,
		Visible: f.Visible,
		Options: []ModuleOption{{Name: "type", Value: forumType}},
	})
}

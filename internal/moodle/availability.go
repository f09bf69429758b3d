package moodle

import (
	"encoding/json"
	"fmt"
)

// AvailabilityExpr is a restriction tree attached to a section: all (or any)
// of its conditions must hold for the section to be reachable. It serializes
// to the LMS's JSON availability format.
type AvailabilityExpr struct {
	// Op joins the conditions: "&" requires all, "|" requires any.
	Op         string
	Conditions []Condition
}

// ConditionKind selects the condition payload.
type ConditionKind string

const (
	// ConditionCompletion gates on another course module reaching a
	// completion state.
	ConditionCompletion ConditionKind = "completion"
	// ConditionDate gates on the current time relative to a timestamp.
	ConditionDate ConditionKind = "date"
)

// Condition is one leaf of an availability tree.
type Condition struct {
	Kind ConditionKind

	// completion fields
	CMID     int64
	Expected int

	// date fields: DateOp is ">=" (from) or "<" (until)
	DateOp    string
	Timestamp int64
}

// encode renders the tree in the wire format: {"op":..,"c":[..],"showc":[..]}.
func (e *AvailabilityExpr) encode() (string, error) {
	if e.Op != "&" && e.Op != "|" {
		return "", fmt.Errorf("availability op must be & or |, got %q", e.Op)
	}
	if len(e.Conditions) == 0 {
		return "", fmt.Errorf("availability tree has no conditions")
	}

	conds := make([]map[string]any, 0, len(e.Conditions))
	show := make([]bool, 0, len(e.Conditions))
	for _, c := range e.Conditions {
		switch c.Kind {
		case ConditionCompletion:
			conds = append(conds, map[string]any{
				"type": "completion",
				"cm":   c.CMID,
				"e":    c.Expected,
			})
		case ConditionDate:
			op := c.DateOp
			if op == "" {
				op = ">="
			}
			if op != ">=" && op != "<" {
				return "", fmt.Errorf("date condition op must be >= or <, got %q", op)
			}
			conds = append(conds, map[string]any{
				"type": "date",
				"d":    op,
				"t":    c.Timestamp,
			})
		default:
			return "", fmt.Errorf("unknown condition kind %q", c.Kind)
		}
		show = append(show, true)
	}

	raw, err := json.Marshal(map[string]any{
		"op":    e.Op,
		"c":     conds,
		"showc": show,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

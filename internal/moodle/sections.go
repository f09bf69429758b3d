package moodle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// CreateSection creates one section and, when it carries more than a
// position, names it with a follow-up update. The section exists as soon as
// the first step succeeds: a failed follow-up returns the created section
// together with the error so the caller can decide what the partial state
// means.
func (c *Client) CreateSection(ctx context.Context, courseID int64, f SectionFields) (Section, error) {
	const op = "local_wsmanagesections_create_sections"

	params := map[string]any{
		"courseid": courseID,
		"position": f.Position,
		"number":   1,
	}
	var created []struct {
		SectionID     int64 `json:"sectionid"`
		SectionNumber int   `json:"sectionnumber"`
	}
	if err := c.call(ctx, op, params, &created); err != nil {
		return Section{}, err
	}
	if len(created) == 0 {
		return Section{}, &TransportError{
			Op:         op,
			URL:        c.endpoint,
			StatusCode: http.StatusOK,
			Err:        errors.New("response carried no section record"),
		}
	}

	sec := Section{
		ID:       created[0].SectionID,
		Position: created[0].SectionNumber,
		Name:     f.Name,
		Summary:  f.Summary,
	}
	if f.Name == "" && f.Summary == "" && f.Availability == nil {
		return sec, nil
	}

	update := SectionUpdate{Availability: f.Availability}
	if f.Name != "" {
		update.Name = &f.Name
	}
	if f.Summary != "" {
		update.Summary = &f.Summary
	}
	if err := c.UpdateSection(ctx, sec.ID, update); err != nil {
		return sec, err
	}
	return sec, nil
}

// UpdateSection applies a partial mutation to one section.
func (c *Client) UpdateSection(ctx context.Context, sectionID int64, u SectionUpdate) error {
	const op = "local_wsmanagesections_update_sections"

	record, err := sectionUpdateRecord(op, sectionID, u)
	if err != nil {
		return err
	}
	params := map[string]any{"sections": []map[string]any{record}}
	return c.call(ctx, op, params, nil)
}

func sectionUpdateRecord(op string, sectionID int64, u SectionUpdate) (map[string]any, error) {
	record := map[string]any{"id": sectionID}
	if u.Name != nil {
		record["name"] = *u.Name
	}
	if u.Summary != nil {
		record["summary"] = *u.Summary
		record["summaryformat"] = 1
	}
	if u.Visible != nil {
		record["visible"] = *u.Visible
	}
	if u.Availability != nil {
		encoded, err := u.Availability.encode()
		if err != nil {
			return nil, &EncodeError{Op: op, Field: "availability", Reason: err.Error()}
		}
		record["availability"] = encoded
	}
	return record, nil
}

// MoveSections reassigns section positions in one request. An empty list is
// a no-op and touches nothing.
func (c *Client) MoveSections(ctx context.Context, moves []SectionMove) error {
	if len(moves) == 0 {
		return nil
	}
	const op = "local_wsmanagesections_move_sections"

	records := make([]map[string]any, 0, len(moves))
	for _, m := range moves {
		records = append(records, map[string]any{
			"sectionid": m.SectionID,
			"position":  m.Position,
		})
	}
	return c.call(ctx, op, map[string]any{"sections": records}, nil)
}

// DuplicateSection copies a section, into another course when targetCourseID
// names one, and returns the new section's id.
func (c *Client) DuplicateSection(ctx context.Context, sectionID, targetCourseID int64) (int64, error) {
	const op = "local_wsmanagesections_duplicate_section"

	var result struct {
		SectionID int64 `json:"sectionid"`
	}
	params := map[string]any{
		"sectionid": sectionID,
		"courseid":  targetCourseID,
	}
	if err := c.call(ctx, op, params, &result); err != nil {
		return 0, err
	}
	return result.SectionID, nil
}

// BulkSectionOps applies a mixed batch of structural edits in as few round
// trips as the protocol allows: updates combine into one request, moves into
// another, duplicates go one by one because each returns a fresh id. Results
// line up with ops by index; entries that shared a combined request share
// its error, since the protocol reports nothing finer for a combined call.
func (c *Client) BulkSectionOps(ctx context.Context, ops []SectionOp) []OpResult {
	results := make([]OpResult, len(ops))

	var (
		updates    []map[string]any
		updateIdx  []int
		moves      []map[string]any
		moveIdx    []int
		duplicates []int
	)
	for i, op := range ops {
		results[i] = OpResult{Kind: op.Kind, SectionID: op.SectionID}
		switch op.Kind {
		case SectionOpUpdate:
			if op.Update == nil {
				results[i].Err = &EncodeError{
					Op:     "local_wsmanagesections_update_sections",
					Field:  "update",
					Reason: "update operation carries no payload",
				}
				continue
			}
			record, err := sectionUpdateRecord("local_wsmanagesections_update_sections", op.SectionID, *op.Update)
			if err != nil {
				results[i].Err = err
				continue
			}
			updates = append(updates, record)
			updateIdx = append(updateIdx, i)
		case SectionOpMove:
			moves = append(moves, map[string]any{
				"sectionid": op.SectionID,
				"position":  op.Position,
			})
			moveIdx = append(moveIdx, i)
		case SectionOpDuplicate:
			duplicates = append(duplicates, i)
		default:
			results[i].Err = &EncodeError{
				Op:     "bulk section operations",
				Field:  "kind",
				Reason: fmt.Sprintf("unknown operation kind %q", op.Kind),
			}
		}
	}

	if len(updates) > 0 {
		err := c.call(ctx, "local_wsmanagesections_update_sections",
			map[string]any{"sections": updates}, nil)
		for _, i := range updateIdx {
			results[i].Err = err
		}
	}
	if len(moves) > 0 {
		err := c.call(ctx, "local_wsmanagesections_move_sections",
			map[string]any{"sections": moves}, nil)
		for _, i := range moveIdx {
			results[i].Err = err
		}
	}
	for _, i := range duplicates {
		id, err := c.DuplicateSection(ctx, ops[i].SectionID, ops[i].TargetCourseID)
		results[i].NewSectionID = id
		results[i].Err = err
	}
	return results
}

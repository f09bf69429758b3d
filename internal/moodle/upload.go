package moodle

import (
	"context"
	"encoding/base64"
)

// UploadRequest carries one file into the staging area. Component and
// FileArea default to the caller's draft space, which is where attachable
// uploads live.
type UploadRequest struct {
	Filename  string
	Content   []byte
	ContextID int64
	Component string
	FileArea  string
	Author    string
	License   string
}

// UploadFile stages a file and returns the draft item id that a follow-up
// module creation can attach.
//
// Staging and attaching are separate protocol steps. If the attach step
// never happens or fails, the draft item stays behind; this client does not
// clean it up (the site's draft garbage collection eventually does), so
// callers should surface the orphaned id in their failure reporting.
func (c *Client) UploadFile(ctx context.Context, req UploadRequest) (int64, error) {
	const op = "core_files_upload"

	if req.Filename == "" {
		return 0, &EncodeError{Op: op, Field: "filename", Reason: "empty filename"}
	}

	component := req.Component
	if component == "" {
		component = "user"
	}
	fileArea := req.FileArea
	if fileArea == "" {
		fileArea = "draft"
	}
	license := req.License
	if license == "" {
		license = "allrightsreserved"
	}

	params := map[string]any{
		"component":   component,
		"filearea":    fileArea,
		"itemid":      0,
		"filepath":    "/",
		"filename":    req.Filename,
		"filecontent": base64.StdEncoding.EncodeToString(req.Content),
		"author":      req.Author,
		"license":     license,
	}
	if req.ContextID > 0 {
		params["contextid"] = req.ContextID
	} else {
		params["contextlevel"] = "user"
		params["instanceid"] = 0
	}

	var result struct {
		ItemID int64 `json:"itemid"`
	}
	if err := c.call(ctx, op, params, &result); err != nil {
		return 0, err
	}
	return result.ItemID, nil
}

// CreateFileResource attaches a staged draft item as a file resource module
// and returns the module id. This is the second half of the upload protocol.
func (c *Client) CreateFileResource(ctx context.Context, courseID int64, sectionPos int, name string, draftItemID int64) (int64, error) {
	return c.CreateModule(ctx, courseID, sectionPos, ModuleFields{
		Type:    ModuleResource,
		Name:    name,
		Visible: true,
		Options: []ModuleOption{{Name: "files", Value: draftItemID}},
	})
}

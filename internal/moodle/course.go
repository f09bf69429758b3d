package moodle

import (
	"context"
	"errors"
	"net/http"
)

// GetCourses lists every course the token can see.
func (c *Client) GetCourses(ctx context.Context) ([]Course, error) {
	var courses []Course
	if err := c.call(ctx, "core_course_get_courses", nil, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// SearchCourses finds courses whose names match the query.
func (c *Client) SearchCourses(ctx context.Context, query string) ([]Course, error) {
	var result struct {
		Total   int      `json:"total"`
		Courses []Course `json:"courses"`
	}
	params := map[string]any{
		"criterianame":  "search",
		"criteriavalue": query,
	}
	if err := c.call(ctx, "core_course_search_courses", params, &result); err != nil {
		return nil, err
	}
	return result.Courses, nil
}

// GetCourseContents lists a course's sections with their modules.
func (c *Client) GetCourseContents(ctx context.Context, courseID int64) ([]ContentSection, error) {
	var sections []ContentSection
	params := map[string]any{"courseid": courseID}
	if err := c.call(ctx, "core_course_get_contents", params, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// CreateCourse creates one course and returns its id. A zero CategoryID
// lands in the site's default category; an empty Format selects the topics
// layout.
func (c *Client) CreateCourse(ctx context.Context, f CourseFields) (int64, error) {
	const op = "core_course_create_courses"

	category := f.CategoryID
	if category <= 0 {
		category = 1
	}
	format := f.Format
	if format == "" {
		format = "topics"
	}
	course := map[string]any{
		"fullname":   f.FullName,
		"shortname":  f.ShortName,
		"categoryid": category,
		"format":     format,
		"visible":    f.Visible,
	}
	if f.Summary != "" {
		course["summary"] = f.Summary
		course["summaryformat"] = 1
	}

	var created []struct {
		ID        int64  `json:"id"`
		ShortName string `json:"shortname"`
	}
	params := map[string]any{"courses": []map[string]any{course}}
	if err := c.call(ctx, op, params, &created); err != nil {
		return 0, err
	}
	if len(created) == 0 {
		return 0, &TransportError{
			Op:         op,
			URL:        c.endpoint,
			StatusCode: http.StatusOK,
			Err:        errors.New("response carried no course record"),
		}
	}
	return created[0].ID, nil
}

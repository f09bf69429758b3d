package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"coursemill/internal/course"
	"coursemill/internal/moodle"
	"coursemill/internal/validation"
	"coursemill/pkg/fileops"
	"coursemill/pkg/sanitize"
)

// Handlers follow one shape: decode arguments into a typed struct, validate,
// dispatch, render exactly one text report. Tool-level failures come back as
// error results, never as transport errors; the protocol layer only ever
// sees a well-formed response.

func (s *Server) cleanText(v string) string {
	limit := s.limits.MaxTextRunes
	if limit == 0 {
		limit = sanitize.DefaultLimits().MaxTextRunes
	}
	return sanitize.Text(v, limit)
}

func (s *Server) cleanHTML(v string) string {
	return sanitize.HTML(v)
}

// describeFailure turns a dispatch error into the report line for the tool
// caller, keyed off the error class.
func describeFailure(op string, err error) string {
	var (
		remote    *moodle.RemoteError
		transport *moodle.TransportError
		encode    *moodle.EncodeError
	)
	switch {
	case errors.As(err, &remote):
		msg := remote.Message
		if msg == "" {
			msg = remote.Exception
		}
		return fmt.Sprintf("Failed to %s: the site rejected the request (%s): %s", op, remote.ErrorCode, msg)
	case errors.As(err, &transport):
		return fmt.Sprintf("Failed to %s: could not reach the site: %v", op, transport)
	case errors.As(err, &encode):
		return fmt.Sprintf("Failed to %s: the request could not be built: %v", op, encode)
	default:
		return fmt.Sprintf("Failed to %s: %v", op, err)
	}
}

func (s *Server) handleTestConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.LogToolCall("test_connection", "")

	info, err := s.newReader().GetSiteInfo(ctx)
	if err != nil {
		return mcp.NewToolResultError(describeFailure("reach the site", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Connected to %q at %s as %s (%s %s). Release %s.",
		info.SiteName, info.SiteURL, info.Username, info.FirstName, info.LastName, info.Release,
	)), nil
}

func (s *Server) handleGetCourses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	search := req.GetString("search", "")
	s.logger.LogToolCall("get_courses", "search="+search)

	client := s.newReader()
	var (
		courses []moodle.Course
		err     error
	)
	if search != "" {
		courses, err = client.SearchCourses(ctx, search)
	} else {
		courses, err = client.GetCourses(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(describeFailure("list courses", err)), nil
	}
	if len(courses) == 0 {
		return mcp.NewToolResultText("Found no courses."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d courses:\n", len(courses))
	for _, c := range courses {
		fmt.Fprintf(&b, "- [%d] %s: %s\n", c.ID, c.ShortName, c.FullName)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

type courseContentsArgs struct {
	CourseID int64 `validate:"required,gt=0"`
}

func (s *Server) handleGetCourseContents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := courseContentsArgs{CourseID: int64(req.GetInt("course_id", 0))}
	s.logger.LogToolCall("get_course_contents", fmt.Sprintf("course_id=%d", args.CourseID))
	if err := validation.Struct(args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sections, err := s.newReader().GetCourseContents(ctx, args.CourseID)
	if err != nil {
		return mcp.NewToolResultError(describeFailure("read the course contents", err)), nil
	}
	if len(sections) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Course %d has no sections.", args.CourseID)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course %d has %d sections:\n", args.CourseID, len(sections))
	for _, sec := range sections {
		name := sec.Name
		if name == "" {
			name = fmt.Sprintf("Section %d", sec.Number)
		}
		fmt.Fprintf(&b, "%d. %s (section id %d)\n", sec.Number, name, sec.ID)
		for _, mod := range sec.Modules {
			fmt.Fprintf(&b, "   - %s: %s (module id %d)\n", mod.ModName, mod.Name, mod.ID)
		}
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

type createCourseArgs struct {
	FullName   string `validate:"required,max=250"`
	ShortName  string `validate:"required,max=100"`
	CategoryID int64  `validate:"gte=0"`
	Summary    string
}

func (s *Server) handleCreateCourse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := createCourseArgs{
		FullName:   req.GetString("fullname", ""),
		ShortName:  req.GetString("shortname", ""),
		CategoryID: int64(req.GetInt("category_id", 0)),
		Summary:    req.GetString("summary", ""),
	}
	s.logger.LogToolCall("create_course", "shortname="+args.ShortName)
	if err := validation.Struct(args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id, err := s.newWriter().CreateCourse(ctx, moodle.CourseFields{
		FullName:   s.cleanText(args.FullName),
		ShortName:  s.cleanText(args.ShortName),
		CategoryID: args.CategoryID,
		Summary:    s.cleanHTML(args.Summary),
		Visible:    true,
	})
	if err != nil {
		return mcp.NewToolResultError(describeFailure("create the course", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created course %q with id %d.", args.ShortName, id)), nil
}

type createSectionArgs struct {
	CourseID int64  `validate:"required,gt=0"`
	Name     string `validate:"required,max=250"`
	Summary  string
	Position int `validate:"gte=0"`
}

func (s *Server) handleCreateSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := createSectionArgs{
		CourseID: int64(req.GetInt("course_id", 0)),
		Name:     req.GetString("name", ""),
		Summary:  req.GetString("summary", ""),
		Position: req.GetInt("section", 0),
	}
	s.logger.LogToolCall("create_course_section", fmt.Sprintf("course_id=%d", args.CourseID))
	if err := validation.Struct(args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sec, err := s.newWriter().CreateSection(ctx, args.CourseID, moodle.SectionFields{
		Name:     s.cleanText(args.Name),
		Summary:  s.cleanHTML(args.Summary),
		Position: args.Position,
	})
	if err != nil {
		if sec.ID != 0 {
			// the section exists, its naming did not apply
			return mcp.NewToolResultError(fmt.Sprintf(
				"Section created with id %d, but applying its name failed: %v", sec.ID, err)), nil
		}
		return mcp.NewToolResultError(describeFailure("create the section", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Created section %q with id %d at position %d.", args.Name, sec.ID, sec.Position)), nil
}

type addModuleArgs struct {
	CourseID int64  `validate:"required,gt=0"`
	Type     string `validate:"required,moduletype"`
	Name     string `validate:"required,max=250"`
	Section  int    `validate:"gte=0"`
	Intro    string
	URL      string `validate:"omitempty,url"`
}

func (s *Server) handleAddModule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := addModuleArgs{
		CourseID: int64(req.GetInt("course_id", 0)),
		Type:     req.GetString("module_name", ""),
		Name:     req.GetString("name", ""),
		Section:  req.GetInt("section", 0),
		Intro:    req.GetString("intro", ""),
		URL:      req.GetString("url", ""),
	}
	s.logger.LogToolCall("add_course_module", fmt.Sprintf("course_id=%d type=%s", args.CourseID, args.Type))
	if err := validation.Struct(args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	modType := moodle.ParseModuleType(args.Type)
	if modType == moodle.ModuleURL && args.URL == "" {
		return mcp.NewToolResultError("validation failed: url is required for url modules"), nil
	}

	var options []moodle.ModuleOption
	if modType == moodle.ModuleURL {
		options = append(options, moodle.ModuleOption{Name: "externalurl", Value: args.URL})
	}
	id, err := s.newWriter().CreateModule(ctx, args.CourseID, args.Section, moodle.ModuleFields{
		Type:    modType,
		Name:    s.cleanText(args.Name),
		Intro:   s.cleanHTML(args.Intro),
		Visible: req.GetBool("visible", true),
		Options: options,
	})
	if err != nil {
		return mcp.NewToolResultError(describeFailure("add the module", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Added %s module %q with id %d to section %d.", modType, args.Name, id, args.Section)), nil
}

type createAssignmentArgs struct {
	CourseID int64  `validate:"required,gt=0"`
	Name     string `validate:"required,max=250"`
	Intro    string `validate:"required"`
	Section  int    `validate:"gte=0"`
	DueDate  int64  `validate:"gte=0"`
	Grade    int    `validate:"gte=0,lte=100"`
}

func (s *Server) handleCreateAssignment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := createAssignmentArgs{
		CourseID: int64(req.GetInt("course_id", 0)),
		Name:     req.GetString("name", ""),
		Intro:    req.GetString("intro", ""),
		Section:  req.GetInt("section", 0),
		DueDate:  int64(req.GetInt("duedate", 0)),
		Grade:    req.GetInt("grade", 0),
	}
	s.logger.LogToolCall("create_assignment", fmt.Sprintf("course_id=%d", args.CourseID))
	if err := validation.Struct(args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id, err := s.newWriter().CreateAssignment(ctx, args.CourseID, args.Section, moodle.AssignmentFields{
		Name:    s.cleanText(args.Name),
		Intro:   s.cleanHTML(args.Intro),
		DueDate: args.DueDate,
		Grade:   args.Grade,
		Visible: true,
	})
	if err != nil {
		return mcp.NewToolResultError(describeFailure("create the assignment", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created assignment %q with id %d.", args.Name, id)), nil
}

type createForumArgs struct {
	CourseID int64  `validate:"required,gt=0"`
	Name     string `validate:"required,max=250"`
	Intro    string
	Section  int    `validate:"gte=0"`
	Type     string `validate:"omitempty,oneof=general eachuser qanda single"`
}

func (s *Server) handleCreateForum(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := createForumArgs{
		CourseID: int64(req.GetInt("course_id", 0)),
		Name:     req.GetString("name", ""),
		Intro:    req.GetString("intro", ""),
		Section:  req.GetInt("section", 0),
		Type:     req.GetString("type", ""),
	}
	s.logger.LogToolCall("create_forum", fmt.Sprintf("course_id=%d", args.CourseID))
	if err := validation.Struct(args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id, err := s.newWriter().CreateForum(ctx, args.CourseID, args.Section, moodle.ForumFields{
		Name:    s.cleanText(args.Name),
		Intro:   s.cleanHTML(args.Intro),
		Type:    args.Type,
		Visible: true,
	})
	if err != nil {
		return mcp.NewToolResultError(describeFailure("create the forum", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created forum %q with id %d.", args.Name, id)), nil
}

type buildCourseArgs struct {
	FullName   string `validate:"required,max=250"`
	ShortName  string `validate:"required,max=100"`
	Content    string `validate:"required"`
	CategoryID int64  `validate:"gte=0"`
}

func (s *Server) handleBuildCourse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := buildCourseArgs{
		FullName:   req.GetString("fullname", ""),
		ShortName:  req.GetString("shortname", ""),
		Content:    req.GetString("content", ""),
		CategoryID: int64(req.GetInt("category_id", 0)),
	}
	s.logger.LogToolCall("create_course_from_content", "shortname="+args.ShortName)
	if err := validation.Struct(args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.newBuilder().BuildCourse(ctx, course.BuildRequest{
		FullName:   args.FullName,
		ShortName:  args.ShortName,
		CategoryID: args.CategoryID,
		Content:    args.Content,
	})
	if err != nil {
		return mcp.NewToolResultError(describeFailure("create the course", err)), nil
	}
	return mcp.NewToolResultText(renderBuildResult(args.ShortName, result)), nil
}

// renderBuildResult writes the one-report text for a finished run. Partial
// runs still created a usable course, so they render as a success report
// carrying the failure list.
func renderBuildResult(shortname string, r *course.BuildResult) string {
	var b strings.Builder
	if r.FullySuccessful() {
		fmt.Fprintf(&b, "Created course %q with id %d: %s.", shortname, r.CourseID, r.Summary())
	} else {
		fmt.Fprintf(&b, "Created course %q with id %d, with problems: %s.", shortname, r.CourseID, r.Summary())
		b.WriteString("\nFailures:")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "\n- %s", f.String())
		}
	}
	if notes := contentNotes(r.Report); notes != "" {
		b.WriteString("\n")
		b.WriteString(notes)
	}
	return b.String()
}

// contentNotes summarizes what sanitization did to the payload, when it did
// anything worth mentioning.
func contentNotes(rep sanitize.Report) string {
	var notes []string
	if rep.SectionsDropped > 0 {
		notes = append(notes, fmt.Sprintf("%d sections dropped to fit the payload ceiling", rep.SectionsDropped))
	}
	if rep.FieldsTruncated > 0 {
		notes = append(notes, fmt.Sprintf("%d content fields truncated", rep.FieldsTruncated))
	}
	if rep.TextFieldsCapped > 0 {
		notes = append(notes, fmt.Sprintf("%d names shortened", rep.TextFieldsCapped))
	}
	if rep.EmojiStripped > 0 {
		notes = append(notes, fmt.Sprintf("emoji removed from %d fields", rep.EmojiStripped))
	}
	if len(notes) == 0 {
		return ""
	}
	return "Content notes: " + strings.Join(notes, ", ") + "."
}

type previewArgs struct {
	Content string `validate:"required"`
}

func (s *Server) handlePreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := previewArgs{Content: req.GetString("content", "")}
	s.logger.LogToolCall("preview_content", fmt.Sprintf("bytes=%d", len(args.Content)))
	if err := validation.Struct(args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p := course.PreviewContent(args.Content, s.limits)
	return mcp.NewToolResultText(renderPreview(p)), nil
}

func renderPreview(p course.Preview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Preview: %d sections, %d bytes after cleaning", len(p.Sections), p.Report.SanitizedBytes)
	if p.Report.SectionsDropped > 0 {
		fmt.Fprintf(&b, " (%d sections would be dropped)", p.Report.SectionsDropped)
	}
	b.WriteString(".\n")
	if p.Meta.Title != "" {
		fmt.Fprintf(&b, "Document metadata: title %q", p.Meta.Title)
		if p.Meta.Category != 0 {
			fmt.Fprintf(&b, ", category %d", p.Meta.Category)
		}
		b.WriteString(".\n")
	}
	for i, sec := range p.Sections {
		fmt.Fprintf(&b, "%d. %s (%d bytes", i+1, sec.Title, sec.BodyBytes)
		switch n := len(sec.Resources); {
		case n == 1:
			b.WriteString(", 1 link")
		case n > 1:
			fmt.Fprintf(&b, ", %d links", n)
		}
		b.WriteString(")\n")
	}
	fmt.Fprintf(&b, "Estimated acceptance: %.0f%%.", p.Report.SuccessEstimate*100)
	return b.String()
}

type uploadFileArgs struct {
	CourseID int64  `validate:"required,gt=0"`
	Name     string `validate:"required,max=250"`
	FilePath string `validate:"required"`
	Section  int    `validate:"gte=0"`
}

func (s *Server) handleUploadFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := uploadFileArgs{
		CourseID: int64(req.GetInt("course_id", 0)),
		Name:     req.GetString("name", ""),
		FilePath: req.GetString("file_path", ""),
		Section:  req.GetInt("section", 0),
	}
	s.logger.LogToolCall("upload_file_resource", "path="+args.FilePath)
	if err := validation.Struct(args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, filename, err := fileops.ReadUpload(args.FilePath, fileops.MaxUploadBytes)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read %q: %v", args.FilePath, err)), nil
	}

	id, err := s.newBuilder().AttachFile(ctx, args.CourseID, args.Section, s.cleanText(args.Name), filename, data)
	if err != nil {
		return mcp.NewToolResultError(describeFailure("upload the file", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Uploaded %q (%d bytes) and attached it as resource %q with id %d.",
		filename, len(data), args.Name, id)), nil
}

func (s *Server) handleMoveSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	courseID := int64(req.GetInt("course_id", 0))
	s.logger.LogToolCall("move_course_sections", fmt.Sprintf("course_id=%d", courseID))
	if courseID <= 0 {
		return mcp.NewToolResultError("validation failed: course_id is required"), nil
	}

	moves, err := decodeMoves(req.GetArguments()["moves"])
	if err != nil {
		return mcp.NewToolResultError("validation failed: " + err.Error()), nil
	}

	if err := s.newWriter().MoveSections(ctx, moves); err != nil {
		return mcp.NewToolResultError(describeFailure("move the sections", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Moved %d sections in course %d.", len(moves), courseID)), nil
}

// decodeMoves turns the tool's array argument into typed moves. Arguments
// arrive as generic JSON, so numbers show up as float64.
func decodeMoves(raw any) ([]moodle.SectionMove, error) {
	entries, ok := raw.([]any)
	if !ok || len(entries) == 0 {
		return nil, errors.New("moves must be a non-empty array of {section_id, position} objects")
	}
	moves := make([]moodle.SectionMove, 0, len(entries))
	for i, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("moves[%d] is not an object", i)
		}
		sectionID, ok := numField(obj, "section_id")
		if !ok || sectionID <= 0 {
			return nil, fmt.Errorf("moves[%d] needs a positive section_id", i)
		}
		position, ok := numField(obj, "position")
		if !ok || position < 0 {
			return nil, fmt.Errorf("moves[%d] needs a non-negative position", i)
		}
		moves = append(moves, moodle.SectionMove{SectionID: sectionID, Position: int(position)})
	}
	return moves, nil
}

func numField(obj map[string]any, key string) (int64, bool) {
	switch v := obj[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

type duplicateSectionArgs struct {
	SectionID      int64 `validate:"required,gt=0"`
	TargetCourseID int64 `validate:"required,gt=0"`
}

func (s *Server) handleDuplicateSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := duplicateSectionArgs{
		SectionID:      int64(req.GetInt("section_id", 0)),
		TargetCourseID: int64(req.GetInt("target_course_id", 0)),
	}
	s.logger.LogToolCall("duplicate_course_section", fmt.Sprintf("section_id=%d", args.SectionID))
	if err := validation.Struct(args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	newID, err := s.newWriter().DuplicateSection(ctx, args.SectionID, args.TargetCourseID)
	if err != nil {
		return mcp.NewToolResultError(describeFailure("duplicate the section", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Duplicated section %d into course %d as new section %d.",
		args.SectionID, args.TargetCourseID, newID)), nil
}

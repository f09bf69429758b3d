package mcp

import (
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"coursemill/internal/config"
	"coursemill/internal/course"
	"coursemill/internal/logging"
	"coursemill/internal/moodle"
	"coursemill/pkg/sanitize"
)

const (
	serverName    = "coursemill"
	serverVersion = "1.0.0"
)

// Server exposes course-building tools over the Model Context Protocol.
//
// The advertised tool set is fixed at construction from the configuration:
// a client that cannot reach a site never sees the site tools, and a
// read-only deployment never sees the mutating ones. Clients therefore get
// the mcp-go "tool not found" response for anything outside the set rather
// than a runtime refusal.
type Server struct {
	config *config.Config
	logger *logging.AppLogger
	limits sanitize.Limits
	caps   map[string]bool

	// one transport for the whole process; per-call clients share it
	httpClient *http.Client

	mcpServer *server.MCPServer
}

// NewServer builds an MCP server instance from resolved configuration. The
// capability set is computed here, once; nothing re-evaluates it per call.
func NewServer(cfg *config.Config, logger *logging.AppLogger) *Server {
	s := &Server{
		config:     cfg,
		logger:     logger,
		limits:     cfg.SanitizeLimits(),
		httpClient: &http.Client{Timeout: cfg.Moodle().Timeout},
	}
	s.caps = s.capabilities()
	return s
}

// mutatingTools are the tools that change the site.
var mutatingTools = []string{
	"create_course",
	"create_course_section",
	"add_course_module",
	"create_assignment",
	"create_forum",
	"create_course_from_content",
	"upload_file_resource",
	"move_course_sections",
	"duplicate_course_section",
}

// readTools only read from the site.
var readTools = []string{
	"test_connection",
	"get_courses",
	"get_course_contents",
}

// capabilities decides which tools this process can honestly advertise.
func (s *Server) capabilities() map[string]bool {
	connected := s.config.BaseURL != "" && s.config.Token != ""
	writable := connected && s.config.WriteToken() != "" && !s.config.ReadOnly

	caps := map[string]bool{
		// pure local computation, always available
		"preview_content": true,
	}
	for _, name := range readTools {
		caps[name] = connected
	}
	for _, name := range mutatingTools {
		caps[name] = writable
	}

	s.logger.Info("Tool capabilities computed",
		"connected", connected,
		"writable", writable,
	)
	return caps
}

// newReader returns a client for read operations. Each invocation gets its
// own client; only the HTTP transport underneath is shared.
func (s *Server) newReader() *moodle.Client {
	cfg := s.config.Moodle()
	cfg.HTTPClient = s.httpClient
	return moodle.New(cfg, s.logger)
}

// newWriter returns a client carrying the write token.
func (s *Server) newWriter() *moodle.Client {
	cfg := s.config.MoodleWrite()
	cfg.HTTPClient = s.httpClient
	return moodle.New(cfg, s.logger)
}

// newBuilder returns a fresh orchestrator for one workflow run.
func (s *Server) newBuilder() *course.Builder {
	b := course.NewBuilder(s.newWriter(), s.logger, s.limits)
	b.Author = s.config.Username
	return b
}

// Start initializes the MCP server and serves the stdio transport until the
// client disconnects. Stdout belongs to the protocol from here on.
func (s *Server) Start() error {
	s.logger.Info("Initializing MCP server")

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.registerTools()

	s.logger.Info("MCP server created, starting stdio communication")
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the MCP server
func (s *Server) Stop() error {
	s.logger.Info("Stopping MCP server")
	// The mcp-go server will handle cleanup when context is cancelled
	return nil
}

// registerTools declares every advertised tool with its schema. Tools the
// capability set excludes are simply not registered.
func (s *Server) registerTools() {
	add := func(name string, tool mcp.Tool, handler server.ToolHandlerFunc) {
		if !s.caps[name] {
			return
		}
		s.mcpServer.AddTool(tool, handler)
	}

	add("test_connection", mcp.NewTool("test_connection",
		mcp.WithDescription("Verify the configured site is reachable and the token works. Returns site name, release and the identity behind the token."),
	), s.handleTestConnection)

	add("get_courses", mcp.NewTool("get_courses",
		mcp.WithDescription("List courses visible to the token, or search them by name."),
		mcp.WithString("search", mcp.Description("Optional name fragment to search for instead of listing everything")),
	), s.handleGetCourses)

	add("get_course_contents", mcp.NewTool("get_course_contents",
		mcp.WithDescription("Show a course's sections and the modules inside each."),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course id")),
	), s.handleGetCourseContents)

	add("create_course", mcp.NewTool("create_course",
		mcp.WithDescription("Create an empty course."),
		mcp.WithString("fullname", mcp.Required(), mcp.Description("Full display name")),
		mcp.WithString("shortname", mcp.Required(), mcp.Description("Unique short name")),
		mcp.WithNumber("category_id", mcp.Description("Category id, defaults to the site's first category")),
		mcp.WithString("summary", mcp.Description("Course summary, may contain simple HTML")),
	), s.handleCreateCourse)

	add("create_course_section", mcp.NewTool("create_course_section",
		mcp.WithDescription("Add a named section to an existing course."),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Section name")),
		mcp.WithString("summary", mcp.Description("Section summary, may contain simple HTML")),
		mcp.WithNumber("section", mcp.Description("Desired position, 0 appends at the end")),
	), s.handleCreateSection)

	add("add_course_module", mcp.NewTool("add_course_module",
		mcp.WithDescription("Add an activity module to a course section. Supported types: page, label, url, file, forum, assignment."),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course id")),
		mcp.WithString("module_name", mcp.Required(), mcp.Description("Module type to create")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
		mcp.WithNumber("section", mcp.Description("Section position, 0 for the general section")),
		mcp.WithString("intro", mcp.Description("Body or description, may contain simple HTML")),
		mcp.WithString("url", mcp.Description("External address, required for url modules")),
		mcp.WithBoolean("visible", mcp.Description("Whether students see the module, default true")),
	), s.handleAddModule)

	add("create_assignment", mcp.NewTool("create_assignment",
		mcp.WithDescription("Add an assignment with a due date and grade ceiling."),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Assignment name")),
		mcp.WithString("intro", mcp.Required(), mcp.Description("Assignment instructions")),
		mcp.WithNumber("section", mcp.Description("Section position")),
		mcp.WithNumber("duedate", mcp.Description("Due date as a unix timestamp")),
		mcp.WithNumber("grade", mcp.Description("Maximum grade, up to 100")),
	), s.handleCreateAssignment)

	add("create_forum", mcp.NewTool("create_forum",
		mcp.WithDescription("Add a discussion forum."),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Forum name")),
		mcp.WithString("intro", mcp.Description("Forum description")),
		mcp.WithNumber("section", mcp.Description("Section position")),
		mcp.WithString("type", mcp.Description("Forum type: general, eachuser, qanda or single")),
	), s.handleCreateForum)

	add("create_course_from_content", mcp.NewTool("create_course_from_content",
		mcp.WithDescription("Build a whole course from chat or markdown content: headings become sections, bodies become pages, links become url resources. Reports counts on partial success."),
		mcp.WithString("fullname", mcp.Required(), mcp.Description("Full display name")),
		mcp.WithString("shortname", mcp.Required(), mcp.Description("Unique short name")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Raw content to turn into the course")),
		mcp.WithNumber("category_id", mcp.Description("Category id")),
	), s.handleBuildCourse)

	add("preview_content", mcp.NewTool("preview_content",
		mcp.WithDescription("Parse and sanitize content without creating anything. Returns the section outline and the size report a build would use."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Raw content to preview")),
	), s.handlePreview)

	add("upload_file_resource", mcp.NewTool("upload_file_resource",
		mcp.WithDescription("Upload a local file and attach it to a course section as a downloadable resource."),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Resource display name")),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Path of the local file to upload")),
		mcp.WithNumber("section", mcp.Description("Section position")),
	), s.handleUploadFile)

	add("move_course_sections", mcp.NewTool("move_course_sections",
		mcp.WithDescription("Reorder course sections in one batch. Each move names a section id and its new position."),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course id")),
		mcp.WithArray("moves", mcp.Required(), mcp.Description("Objects with section_id and position")),
	), s.handleMoveSections)

	add("duplicate_course_section", mcp.NewTool("duplicate_course_section",
		mcp.WithDescription("Copy a section, optionally into another course."),
		mcp.WithNumber("section_id", mcp.Required(), mcp.Description("Section id to copy")),
		mcp.WithNumber("target_course_id", mcp.Required(), mcp.Description("Course to copy into")),
	), s.handleDuplicateSection)
}

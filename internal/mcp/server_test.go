package mcp

import (
	"testing"

	"coursemill/internal/config"
	"coursemill/internal/logging"
)

func TestNewServer(t *testing.T) {
	cfg := &config.Config{BaseURL: "https://lms.example.edu", Token: "tok", TimeoutSeconds: 5}
	logger, _ := logging.NewTestLogger()

	server := NewServer(cfg, logger)

	if server == nil {
		t.Fatal("NewServer returned nil")
	}
	if server.config != cfg {
		t.Error("Server config not set correctly")
	}
	if server.logger != logger {
		t.Error("Server logger not set correctly")
	}
	if server.httpClient == nil {
		t.Error("Shared HTTP client should exist from construction")
	}
	if server.mcpServer != nil {
		t.Error("MCP server should not be initialized until Start() is called")
	}
	if len(server.caps) == 0 {
		t.Error("Capability set should be computed at construction")
	}
}

func TestCapabilitiesFullyConfigured(t *testing.T) {
	cfg := &config.Config{BaseURL: "https://lms.example.edu", Token: "tok", TimeoutSeconds: 5}
	logger, _ := logging.NewTestLogger()
	server := NewServer(cfg, logger)

	for _, name := range readTools {
		if !server.caps[name] {
			t.Errorf("Read tool %s should be available when connected", name)
		}
	}
	for _, name := range mutatingTools {
		if !server.caps[name] {
			t.Errorf("Mutating tool %s should be available with a write token", name)
		}
	}
	if !server.caps["preview_content"] {
		t.Error("preview_content should always be available")
	}
}

func TestCapabilitiesWithoutSite(t *testing.T) {
	cfg := &config.Config{TimeoutSeconds: 5}
	logger, _ := logging.NewTestLogger()
	server := NewServer(cfg, logger)

	if !server.caps["preview_content"] {
		t.Error("preview_content should be available without a site")
	}
	for _, name := range readTools {
		if server.caps[name] {
			t.Errorf("Read tool %s should be hidden without a site", name)
		}
	}
	for _, name := range mutatingTools {
		if server.caps[name] {
			t.Errorf("Mutating tool %s should be hidden without a site", name)
		}
	}
}

func TestCapabilitiesReadOnly(t *testing.T) {
	cfg := &config.Config{
		BaseURL:        "https://lms.example.edu",
		Token:          "tok",
		ReadOnly:       true,
		TimeoutSeconds: 5,
	}
	logger, _ := logging.NewTestLogger()
	server := NewServer(cfg, logger)

	for _, name := range readTools {
		if !server.caps[name] {
			t.Errorf("Read tool %s should stay available in read-only mode", name)
		}
	}
	for _, name := range mutatingTools {
		if server.caps[name] {
			t.Errorf("Mutating tool %s should be hidden in read-only mode", name)
		}
	}
	if !server.caps["preview_content"] {
		t.Error("preview_content should stay available in read-only mode")
	}
}

func TestCapabilitiesMissingToken(t *testing.T) {
	cfg := &config.Config{BaseURL: "https://lms.example.edu", TimeoutSeconds: 5}
	logger, _ := logging.NewTestLogger()
	server := NewServer(cfg, logger)

	for _, name := range readTools {
		if server.caps[name] {
			t.Errorf("Read tool %s should be hidden without a token", name)
		}
	}
	for _, name := range mutatingTools {
		if server.caps[name] {
			t.Errorf("Mutating tool %s should be hidden without a token", name)
		}
	}
}

func TestWriterUsesAdminToken(t *testing.T) {
	cfg := &config.Config{
		BaseURL:        "https://lms.example.edu",
		Token:          "read-tok",
		AdminToken:     "admin-tok",
		TimeoutSeconds: 5,
	}
	logger, _ := logging.NewTestLogger()
	server := NewServer(cfg, logger)

	if got := server.config.MoodleWrite().Token; got != "admin-tok" {
		t.Errorf("Writer token = %q, want admin-tok", got)
	}
	if got := server.config.Moodle().Token; got != "read-tok" {
		t.Errorf("Reader token = %q, want read-tok", got)
	}
}

func TestStop(t *testing.T) {
	cfg := &config.Config{BaseURL: "https://lms.example.edu", Token: "tok", TimeoutSeconds: 5}
	logger, _ := logging.NewTestLogger()
	server := NewServer(cfg, logger)

	if err := server.Stop(); err != nil {
		t.Errorf("Stop should not return error: %v", err)
	}
}

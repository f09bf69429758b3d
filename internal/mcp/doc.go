// Package mcp provides the Model Context Protocol (MCP) server for coursemill using mcp-go.
//
// This package implements an MCP server that lets AI assistants build and
// manage LMS courses through a standardized protocol. Chat content goes in,
// courses with sections, pages and resources come out.
//
// # Implementation
//
// The package uses the mcp-go library (github.com/mark3labs/mcp-go).
//
// # Capability Gating
//
// The advertised tool set is computed once at construction from the loaded
// configuration and never changes while the server runs:
//   - preview_content is always available; it needs no site at all
//   - read tools appear when a site URL and token are configured
//   - mutating tools additionally need a write-capable token and the
//     read-only flag left unset
//
// A tool that was not advertised is simply absent; callers get the
// protocol's standard unknown-tool error rather than a custom denial.
//
// # Security
//
// Mutating calls use the configured write token, never the read token.
// File uploads run through the pkg/fileops guards:
//   - Path validation to prevent directory traversal
//   - Reserved system locations rejected
//   - Size ceiling enforced before content enters memory
//
// # Usage
//
// The MCP server is typically started as a subprocess by AI assistants that
// support MCP integration. It can also be started manually for testing:
//
//	coursemill serve
//
// The server will read JSON-RPC requests from stdin and write responses to
// stdout until it receives EOF or is terminated.
//
// # Architecture
//
// The Server struct contains:
//   - config: Application configuration with site credentials and limits
//   - logger: Application logger for debugging and audit
//   - caps: The advertised tool set, fixed at construction
//   - httpClient: One shared HTTP client reused by every site call
//   - mcpServer: The underlying mcp-go server instance
//
// Every handler follows the same shape: decode arguments, validate them up
// front, dispatch against the site, render exactly one text report.
//
// # References
//
// - MCP Specification: https://modelcontextprotocol.io/specification
// - mcp-go Library: https://github.com/mark3labs/mcp-go
package mcp

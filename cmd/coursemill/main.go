// Package main is the entry point for the coursemill CLI.
//
// This package initializes the application and dispatches to one of three
// subcommands:
//
// 1. serve   - run the MCP server over stdio for AI assistant integration
// 2. check   - verify configuration and probe the configured LMS site
// 3. preview - dry-run content parsing and sanitization against a local file
//
// Startup follows the same sequence everywhere: load .env overrides, build
// the logger, load and validate configuration, then run the subcommand.
// The MCP wire protocol owns stdout under serve, so all logging goes to
// stderr; check and preview write human-readable output to stdout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coursemill",
	Short: "Turn chat content into LMS courses over MCP",
	Long: "coursemill is an MCP server that builds Moodle-family courses from\n" +
		"markdown or chat content: sections, pages, links, files, assignments\n" +
		"and forums, with content sanitized to survive the web service API.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, checkCmd, previewCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

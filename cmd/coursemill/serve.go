package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"coursemill/internal/config"
	"coursemill/internal/logging"
	"coursemill/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: "Reads JSON-RPC requests from stdin and writes responses to stdout\n" +
		"until EOF. Tools are advertised according to the configured site\n" +
		"credentials; without any site, only preview_content is offered.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// a missing .env is the normal case, not an error
	_ = godotenv.Load()

	logger := logging.NewAppLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return err
	}

	// An entirely absent site is a legal offline setup. A half-filled one
	// is a mistake worth stopping on.
	if cfg.BaseURL != "" || cfg.Token != "" {
		if err := cfg.Validate(); err != nil {
			logger.Error("Invalid configuration", "error", err)
			return err
		}
	} else {
		logger.Warn("No site configured, only preview_content will be advertised")
	}

	server := mcp.NewServer(cfg, logger)
	return server.Start()
}

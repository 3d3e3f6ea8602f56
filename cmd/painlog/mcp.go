// ABOUTME: CLI command for starting MCP server.
// ABOUTME: Runs stdio-based MCP server for AI assistant integration.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harperreed/painlog/internal/logging"
	"github.com/harperreed/painlog/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:         "mcp",
	Short:       "Start MCP server",
	Annotations: localOnly,
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout. Logs go to stderr as JSON.

CLAUDE DESKTOP CONFIGURATION:

  {
    "mcpServers": {
      "painlog": {
        "command": "painlog",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  register_user       Register a diary owner
  find_user           Find a user by phone or ID
  add_pain_entry      Record pain intensity for a body region
  list_pain_entries   List a user's entries, newest first
  pain_summary        Timeline, trends, sleep, and relief summary

AVAILABLE RESOURCES:

  painlog://vocabulary   Body regions and questionnaire answers
  painlog://recent       Last 10 entries across all users`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logging.New(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		server, err := mcp.NewServer(service, loc, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

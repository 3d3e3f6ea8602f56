// ABOUTME: Root Cobra command for painlog CLI.
// ABOUTME: Loads config and opens storage via PersistentPre/PostRunE.
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harperreed/painlog/internal/client"
	"github.com/harperreed/painlog/internal/config"
	"github.com/harperreed/painlog/internal/diary"
	"github.com/harperreed/painlog/internal/models"
	"github.com/harperreed/painlog/internal/storage"
)

// Command annotations. Commands without either work locally or via --server.
const (
	annotationNoStorage = "painlog/no-storage"
	annotationLocalOnly = "painlog/local-only"
)

var (
	cfg     *config.Config
	repo    storage.Repository
	service *diary.Service

	backendFlag string
	dataDirFlag string
	serverURL   string
	serverToken string
)

var rootCmd = &cobra.Command{
	Use:   "painlog",
	Short: "Pain diary with history and treatment questionnaires",
	Long: `painlog records how much it hurts, where, and what helped.

Each entry is a body region and an intensity from 0 to 10, optionally with a
questionnaire (symptoms, duration, sleep, relief). History views group entries
by day and region and rank what relieved the pain.

QUICK START:

  $ painlog seed                                # Load the demo user and data
  $ painlog login 11999887766                   # Look up a user by phone
  $ painlog record --phone 11999887766          # Guided entry
  $ painlog list --phone 11999887766            # Recent entries
  $ painlog history --phone 11999887766         # Summary view

SERVER:

  $ painlog serve                               # JSON API on :8080
  $ painlog record --server http://localhost:8080 --phone 11999887766

STORAGE BACKENDS:

  sqlite     Local file at ~/.local/share/painlog/painlog.db (default)
  postgres   Set postgres_dsn in the config or PAINLOG_POSTGRES_DSN
  charm      Charm KV, encrypted and synced with your SSH key ('painlog sync')

CONFIGURATION:

  ~/.config/painlog/config.json, then .env, then PAINLOG_* variables.

MCP INTEGRATION:

  Run 'painlog mcp' to start the Model Context Protocol server:

  {
    "mcpServers": {
      "painlog": { "command": "painlog", "args": ["mcp"] }
    }
  }`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if backendFlag != "" {
			loaded.Backend = backendFlag
		}
		if dataDirFlag != "" {
			loaded.DataDir = dataDirFlag
		}
		cfg = loaded

		if cmd.Annotations[annotationLocalOnly] == "true" && serverURL != "" {
			return fmt.Errorf("%s does not support --server", cmd.Name())
		}
		if !needsStorage(cmd) {
			return nil
		}

		repo, err = cfg.OpenStorage(cmd.Context())
		if err != nil {
			repo = nil
			return fmt.Errorf("failed to open %s storage: %w", cfg.GetBackend(), err)
		}
		service = diary.NewService(repo)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if repo != nil {
			err := repo.Close()
			repo = nil
			service = nil
			return err
		}
		return nil
	},
}

func needsStorage(cmd *cobra.Command) bool {
	switch {
	case cmd.Annotations[annotationNoStorage] == "true":
		return false
	case cmd.Annotations[annotationLocalOnly] == "true":
		return true
	}
	return serverURL == ""
}

var localOnly = map[string]string{annotationLocalOnly: "true"}

// remote returns an API client when --server is set.
func remote() (*client.Client, bool) {
	if serverURL == "" {
		return nil, false
	}
	return client.New(serverURL, client.WithToken(serverToken)), true
}

// resolveUser finds the user named by --user or --phone.
func resolveUser(ctx context.Context, userID int64, phone string) (*models.User, error) {
	if c, ok := remote(); ok {
		if phone != "" {
			resp, err := c.Login(ctx, phone)
			if err != nil {
				return nil, err
			}
			return resp.User, nil
		}
		if userID > 0 {
			return c.GetUser(ctx, userID)
		}
		return nil, errors.New("--user or --phone is required")
	}

	if phone != "" {
		return service.Login(ctx, phone)
	}
	if userID > 0 {
		return service.GetUser(ctx, userID)
	}
	return nil, errors.New("--user or --phone is required")
}

func addUserFlags(cmd *cobra.Command, userID *int64, phone *string) {
	cmd.Flags().Int64VarP(userID, "user", "u", 0, "user ID")
	cmd.Flags().StringVarP(phone, "phone", "p", "", "user phone number")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "storage backend: sqlite, postgres, or charm")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory for the sqlite backend")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "talk to a painlog server instead of local storage")
	rootCmd.PersistentFlags().StringVar(&serverToken, "token", "", "session token for --server")
}

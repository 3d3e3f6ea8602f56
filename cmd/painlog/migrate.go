// ABOUTME: CLI command for copying diary data between storage backends.
// ABOUTME: Reads everything from the configured backend and writes it to --to.
package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/painlog/internal/config"
	"github.com/harperreed/painlog/internal/storage"
)

var (
	migrateTo        string
	migrateToDSN     string
	migrateToDataDir string
	migrateDryRun    bool
)

var migrateCmd = &cobra.Command{
	Use:         "migrate",
	Short:       "Copy data to another storage backend",
	Annotations: localOnly,
	Long: `Copy every user, pain entry, and treatment form from the current backend
to another one. IDs are kept.

IMPORTANT:

  - The destination must be empty
  - The source is never modified
  - Run with --dry-run first to see what would be copied

USAGE:

  painlog migrate --to postgres --to-dsn postgres://localhost/painlog --dry-run
  painlog migrate --to postgres --to-dsn postgres://localhost/painlog
  painlog migrate --backend charm --to sqlite --to-data-dir ~/painlog-backup`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if migrateTo == "" {
			return fmt.Errorf("--to is required")
		}
		dstCfg := *cfg
		dstCfg.Backend = migrateTo
		if migrateToDSN != "" {
			dstCfg.PostgresDSN = migrateToDSN
		}
		if migrateToDataDir != "" {
			dstCfg.DataDir = migrateToDataDir
		}
		if sameStore(cfg, &dstCfg) {
			return fmt.Errorf("source and destination are the same %s store", cfg.GetBackend())
		}

		data, err := repo.GetAllData(ctx)
		if err != nil {
			return fmt.Errorf("failed to read source: %w", err)
		}

		if migrateDryRun {
			color.New(color.FgYellow).Fprintln(out, "Dry run mode - no changes will be made")
			fmt.Fprintf(out, "Would copy %d users, %d entries, %d forms from %s to %s\n",
				len(data.Users), len(data.Entries), data.FormCount(), cfg.GetBackend(), dstCfg.GetBackend())
			if dstCfg.GetBackend() == config.BackendSQLite {
				nonEmpty, err := storage.IsDirNonEmpty(dstCfg.GetDataDir())
				if err != nil {
					return err
				}
				if nonEmpty {
					color.New(color.Faint).Fprintf(out, "Note: %s is not empty; an existing database must have no users.\n", dstCfg.GetDataDir())
				}
			}
			return nil
		}

		dst, err := dstCfg.OpenStorage(ctx)
		if err != nil {
			return fmt.Errorf("failed to open %s destination: %w", dstCfg.GetBackend(), err)
		}
		defer func() { _ = dst.Close() }()

		existing, err := dst.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("failed to check destination: %w", err)
		}
		if len(existing) > 0 {
			return fmt.Errorf("destination already has %d users; migrate needs an empty store", len(existing))
		}

		summary, err := storage.MigrateData(ctx, repo, dst)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		color.New(color.FgGreen).Fprintf(out, "✓ Migrated %d users, %d entries, %d forms to %s\n",
			summary.Users, summary.Entries, summary.Forms, dstCfg.GetBackend())
		return nil
	},
}

func sameStore(a, b *config.Config) bool {
	if a.GetBackend() != b.GetBackend() {
		return false
	}
	switch a.GetBackend() {
	case config.BackendSQLite:
		return filepath.Clean(a.GetDataDir()) == filepath.Clean(b.GetDataDir())
	case config.BackendPostgres:
		return a.PostgresDSN == b.PostgresDSN
	default:
		return true
	}
}

func init() {
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "destination backend: sqlite, postgres, or charm")
	migrateCmd.Flags().StringVar(&migrateToDSN, "to-dsn", "", "postgres DSN for the destination")
	migrateCmd.Flags().StringVar(&migrateToDataDir, "to-data-dir", "", "sqlite data directory for the destination")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "preview migration without making changes")
	rootCmd.AddCommand(migrateCmd)
}

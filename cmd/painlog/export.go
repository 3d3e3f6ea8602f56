// ABOUTME: CLI commands for exporting and importing diary data.
// ABOUTME: Supports JSON (backup/restore) and YAML export formats.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/painlog/internal/storage"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:         "export <format>",
	Short:       "Export diary data",
	Annotations: localOnly,
	Long: `Export every user and pain entry, oldest first.

FORMATS:

  json       Full JSON export (suitable for backup/restore)
  yaml       YAML export (human-readable)

EXAMPLES:

  painlog export json                   # Export all data as JSON
  painlog export json -o backup.json    # Save to file
  painlog export yaml                   # Export as YAML`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var (
			data []byte
			err  error
		)
		switch args[0] {
		case "json":
			data, err = storage.ExportJSON(ctx, repo)
		case "yaml":
			data, err = storage.ExportYAML(ctx, repo)
		default:
			return fmt.Errorf("unknown format: %s (use json or yaml)", args[0])
		}
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Exported to %s\n", exportOutput)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:         "import <file>",
	Short:       "Import diary data from JSON",
	Annotations: localOnly,
	Long: `Import users and pain entries from a JSON export.

IDs are kept, so import into an empty store. Duplicate IDs or phone numbers
cause an error.

EXAMPLES:

  painlog import backup.json
  painlog import backup.json --backend postgres`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		raw, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		data, err := storage.ImportJSON(cmd.Context(), repo, raw)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Imported %d users and %d entries from %s\n",
			len(data.Users), len(data.Entries), filename)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

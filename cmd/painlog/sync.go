// ABOUTME: CLI commands for Charm-based sync of the diary.
// ABOUTME: Supports status, now, and reset when the charm backend is active.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/painlog/internal/charm"
)

var errNotCharm = errors.New("sync needs the charm backend (use --backend charm)")

var syncCmd = &cobra.Command{
	Use:     "sync",
	Aliases: []string{"s"},
	Short:   "Sync diary data across devices",
	Long: `Sync diary data across devices using Charm Cloud.

Only applies to the charm backend. Data is E2E encrypted with your SSH key
before upload, and syncs automatically after each write.

COMMANDS:

  status      Show Charm account and local data counts
  now         Pull and push changes immediately
  reset       Reset local data and restore from cloud (destructive)`,
}

var syncStatusCmd = &cobra.Command{
	Use:         "status",
	Short:       "Show sync status",
	Annotations: localOnly,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := charmRepo()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		id, err := c.ID()
		if err != nil {
			color.New(color.FgYellow).Fprintln(out, "Not linked to Charm")
			fmt.Fprintln(out, "\nRun 'charm link' to connect this device.")
			return nil
		}
		fmt.Fprintln(out, "Charm ID:", id)
		if c.IsReadOnly() {
			color.New(color.FgYellow).Fprintln(out, "⚠ Read-only: another painlog process holds the database")
		}

		users, err := c.ListUsers(cmd.Context())
		if err != nil {
			return err
		}
		entries, err := service.RecentEntries(cmd.Context(), 0)
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(out, "✓ Connected to Charm")
		fmt.Fprintf(out, "  Users:   %d\n", len(users))
		fmt.Fprintf(out, "  Entries: %d\n", len(entries))
		return nil
	},
}

var syncNowCmd = &cobra.Command{
	Use:         "now",
	Short:       "Sync immediately",
	Annotations: localOnly,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := charmRepo()
		if err != nil {
			return err
		}
		if err := c.Sync(); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ Sync complete")
		return nil
	},
}

var syncResetYes bool

var syncResetCmd = &cobra.Command{
	Use:         "reset",
	Short:       "Reset local data and restore from cloud",
	Annotations: localOnly,
	Long: `Delete all local diary data and restore it from Charm Cloud.

Use this to fix sync conflicts or to reset a device to the cloud state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := charmRepo()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if !syncResetYes {
			fmt.Fprintln(out, "This will DELETE all local diary data and restore from cloud.")
			fmt.Fprint(out, "Continue? [y/N]: ")
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
				fmt.Fprintln(out, "Canceled.")
				return nil
			}
		}

		if err := c.Reset(); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
		color.New(color.FgGreen).Fprintln(out, "✓ Local data reset and restored from cloud")
		return nil
	},
}

func charmRepo() (*charm.Client, error) {
	c, ok := repo.(*charm.Client)
	if !ok {
		return nil, errNotCharm
	}
	return c, nil
}

func init() {
	syncResetCmd.Flags().BoolVarP(&syncResetYes, "yes", "y", false, "skip confirmation prompt")

	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncNowCmd)
	syncCmd.AddCommand(syncResetCmd)
	rootCmd.AddCommand(syncCmd)
}

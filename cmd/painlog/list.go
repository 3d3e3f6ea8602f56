// ABOUTME: CLI command for listing a user's pain entries.
// ABOUTME: Newest first, with severity and questionnaire highlights.
package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/painlog/internal/models"
)

var (
	listUserID int64
	listPhone  string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List pain entries",
	Long: `List a user's pain entries, newest first.

OUTPUT FORMAT:

  Each line shows: ID  TIMESTAMP  REGION  LEVEL  SEVERITY  (SYMPTOMS)

EXAMPLES:

  painlog list --phone 11999887766        # Last 20 entries
  painlog list -u 1 -n 50                 # Last 50 entries
  painlog list -u 1 -n 0                  # Everything`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if listLimit < 0 {
			return fmt.Errorf("--limit must not be negative")
		}

		u, err := resolveUser(ctx, listUserID, listPhone)
		if err != nil {
			return err
		}

		var entries []*models.PainEntry
		if c, ok := remote(); ok {
			entries, err = c.ListEntries(ctx, u.ID, listLimit)
		} else {
			entries, err = service.ListEntries(ctx, u.ID, listLimit)
		}
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		printEntries(cmd.OutOrStdout(), entries)
		return nil
	},
}

func printEntries(out io.Writer, entries []*models.PainEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No pain entries found.")
		return
	}

	faint := color.New(color.Faint)
	for _, e := range entries {
		notes := ""
		if q := e.Questionnaire(); q != nil && q.Symptoms != "" {
			notes = faint.Sprintf(" (%s)", truncate(q.Symptoms, 30))
		}
		fmt.Fprintf(out, "%s %s %s %s %s%s\n",
			faint.Sprintf("%-5d", e.ID),
			faint.Sprint(e.CreatedAt.Local().Format("2006-01-02 15:04")),
			padRight(e.BodyPart.Label(), 10),
			levelColor(e.PainLevel).Sprintf("%2d/10", e.PainLevel),
			models.PainDescription(e.PainLevel),
			notes)
	}
}

// levelColor shades intensity from green to red.
func levelColor(level int) *color.Color {
	switch {
	case level <= 3:
		return color.New(color.FgGreen)
	case level <= 6:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func padRight(s string, length int) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return s + strings.Repeat(" ", length-n)
}

func init() {
	addUserFlags(listCmd, &listUserID, &listPhone)
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "max number of results (0 for all)")
	rootCmd.AddCommand(listCmd)
}

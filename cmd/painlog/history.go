// ABOUTME: CLI command showing a user's pain history summary.
// ABOUTME: Prints the daily timeline, region trends, durations, sleep, and relief.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/painlog/internal/history"
	"github.com/harperreed/painlog/internal/models"
)

var (
	historyUserID int64
	historyPhone  string
	historyTZ     string
	historyDays   int
	historyJSON   bool
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"hist", "h"},
	Short:   "Show pain history summary",
	Long: `Summarize a user's pain history.

SECTIONS:

  Timeline    One row per day, intensity per region
  Regions     Entry count and latest intensity per region
  Duration    How long the pain had lasted, by answer
  Sleep       Average intensity for each sleep answer
  Relief      What helped, ranked by how often it was used

Days are calendar days in --tz (default: time_zone from config, or UTC).

EXAMPLES:

  painlog history --phone 11999887766
  painlog history -u 1 --tz America/Sao_Paulo
  painlog history -u 1 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		if historyTZ != "" {
			loc, err = time.LoadLocation(historyTZ)
			if err != nil {
				return fmt.Errorf("unknown time zone %q", historyTZ)
			}
		}

		u, err := resolveUser(ctx, historyUserID, historyPhone)
		if err != nil {
			return err
		}

		var sum *history.Summary
		if c, ok := remote(); ok {
			sum, err = c.Summary(ctx, u.ID, loc.String())
		} else {
			sum, err = service.Summary(ctx, u.ID, loc)
		}
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		out := cmd.OutOrStdout()
		if historyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		}
		printSummary(out, u.Name, sum, historyDays)
		return nil
	},
}

func printSummary(out io.Writer, name string, sum *history.Summary, days int) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	bold.Fprintf(out, "Histórico de %s\n", name)
	if sum.Empty {
		fmt.Fprintln(out, "No pain entries yet.")
		return
	}
	faint.Fprintf(out, "%d entries, %d regions, %d days\n", sum.TotalEntries, len(sum.BodyParts), len(sum.Timeline))

	fmt.Fprintln(out)
	bold.Fprintln(out, "Timeline")
	rows := sum.Timeline
	if days > 0 && len(rows) > days {
		rows = rows[len(rows)-days:]
	}
	for _, row := range rows {
		parts := make([]string, 0, len(sum.BodyParts))
		for _, bp := range sum.BodyParts {
			if level, ok := row.Levels[bp]; ok {
				parts = append(parts, fmt.Sprintf("%s %s", bp.Label(), levelColor(level).Sprint(level)))
			}
		}
		fmt.Fprintf(out, "  %s  %s\n", faint.Sprint(row.Date), strings.Join(parts, ", "))
	}

	fmt.Fprintln(out)
	bold.Fprintln(out, "Regions")
	for _, s := range sum.Series {
		fmt.Fprintf(out, "  %s %s %s\n",
			padRight(s.Label, 10),
			levelColor(s.LastPainLevel).Sprint(bar(s.LastPainLevel)),
			faint.Sprintf("last %d/10, %d entries", s.LastPainLevel, s.Count))
	}

	if len(sum.Durations) > 0 {
		fmt.Fprintln(out)
		bold.Fprintln(out, "Duration")
		for _, d := range sum.Durations {
			fmt.Fprintf(out, "  %s %d\n", padRight(d.Label, 22), d.Count)
		}
	}

	if len(sum.Sleep) > 0 {
		fmt.Fprintln(out)
		bold.Fprintln(out, "Sleep")
		for _, s := range sum.Sleep {
			fmt.Fprintf(out, "  %s avg %.1f %s\n", padRight(s.Label, 32), s.AveragePain, faint.Sprintf("(%d)", s.Count))
		}
	}

	if len(sum.Relief) > 0 {
		fmt.Fprintln(out)
		bold.Fprintln(out, "Relief")
		for i, r := range sum.Relief {
			fmt.Fprintf(out, "  %d. %s %d %s\n", i+1, padRight(r.Label, 20), r.Count,
				faint.Sprintf("last %s", r.LastUsed.Format("2006-01-02")))
		}
	}
}

func bar(level int) string {
	if level < models.MinPainLevel {
		level = models.MinPainLevel
	}
	if level > models.MaxPainLevel {
		level = models.MaxPainLevel
	}
	return strings.Repeat("█", level) + strings.Repeat("░", models.MaxPainLevel-level)
}

func init() {
	addUserFlags(historyCmd, &historyUserID, &historyPhone)
	historyCmd.Flags().StringVar(&historyTZ, "tz", "", "IANA time zone for calendar days")
	historyCmd.Flags().IntVar(&historyDays, "days", 14, "timeline rows to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(historyCmd)
}

// ABOUTME: CLI command that loads the demo user and random pain entries.
// ABOUTME: Reuses the demo user when it already exists.
package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/painlog/internal/seed"
)

var seedOpts = seed.DefaultOptions()

var seedCmd = &cobra.Command{
	Use:         "seed",
	Short:       "Load demo data",
	Annotations: localOnly,
	Long: fmt.Sprintf(`Create the demo user and a batch of random pain entries.

DEMO USER:

  Name:   %s
  Phone:  %s

Running seed again adds another batch for the same user.

EXAMPLES:

  painlog seed
  painlog seed --entries 60 --days 90
  painlog seed --seed 42 --form-ratio 1`, seed.DemoName, seed.DemoPhone),
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedOpts.Entries < 0 || seedOpts.Days <= 0 {
			return fmt.Errorf("--entries must not be negative and --days must be positive")
		}
		if seedOpts.FormRatio < 0 || seedOpts.FormRatio > 1 {
			return fmt.Errorf("--form-ratio must be between 0 and 1")
		}
		opts := seedOpts
		opts.Now = time.Now().UTC()

		res, err := seed.Run(cmd.Context(), repo, opts)
		if err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if res.UserCreated {
			color.New(color.FgGreen).Fprintf(out, "✓ Created demo user %s (ID: %d)\n", res.User.Name, res.User.ID)
		} else {
			fmt.Fprintf(out, "Using existing demo user %s (ID: %d)\n", res.User.Name, res.User.ID)
		}
		color.New(color.FgGreen).Fprintf(out, "✓ Added %d entries (%d with questionnaire)\n", res.Entries, res.Forms)
		color.New(color.Faint).Fprintf(out, "Try: painlog history --phone %s\n", res.User.Phone)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedOpts.Entries, "entries", seedOpts.Entries, "number of entries to generate")
	seedCmd.Flags().IntVar(&seedOpts.Days, "days", seedOpts.Days, "spread entries over this many past days")
	seedCmd.Flags().Float64Var(&seedOpts.FormRatio, "form-ratio", seedOpts.FormRatio, "share of entries with a questionnaire")
	seedCmd.Flags().Int64Var(&seedOpts.Seed, "seed", seedOpts.Seed, "random seed")
	rootCmd.AddCommand(seedCmd)
}

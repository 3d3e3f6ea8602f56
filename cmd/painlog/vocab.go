// ABOUTME: CLI command printing the body region and questionnaire vocabularies.
// ABOUTME: Ordered by field, with labels, or as JSON with --json.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/painlog/internal/models"
)

var vocabJSON bool

// vocabOrder keeps output stable; Vocabulary returns a map.
var vocabOrder = []string{"bodyPart", "duration", "sleepQuality", "painRelief", "painComparison"}

var vocabCmd = &cobra.Command{
	Use:         "vocab",
	Short:       "Show accepted answer values",
	Annotations: map[string]string{annotationNoStorage: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		vocab := models.Vocabulary()

		if vocabJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(vocab)
		}

		bold := color.New(color.Bold)
		faint := color.New(color.Faint)
		for i, field := range vocabOrder {
			if i > 0 {
				fmt.Fprintln(out)
			}
			bold.Fprintln(out, field)
			for _, t := range vocab[field] {
				fmt.Fprintf(out, "  %s %s\n", padRight(t.Value, 20), faint.Sprint(t.Label))
			}
		}
		fmt.Fprintln(out)
		bold.Fprintln(out, "painLevel")
		fmt.Fprintf(out, "  %d-%d\n", models.MinPainLevel, models.MaxPainLevel)
		return nil
	},
}

func init() {
	vocabCmd.Flags().BoolVar(&vocabJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(vocabCmd)
}

// ABOUTME: Install Claude Code skill for painlog
// ABOUTME: Embeds and installs the skill definition to ~/.claude/skills/

package main

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

//go:embed skill/SKILL.md
var skillFS embed.FS

var skillSkipConfirm bool

var installSkillCmd = &cobra.Command{
	Use:         "install-skill",
	Short:       "Install Claude Code skill",
	Annotations: map[string]string{annotationNoStorage: "true"},
	Long: `Install the painlog skill for Claude Code.

This copies the skill definition to ~/.claude/skills/painlog/
so Claude Code can use painlog commands contextually.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		return installSkill(cmd.InOrStdin(), cmd.OutOrStdout(), home, skillSkipConfirm)
	},
}

func init() {
	installSkillCmd.Flags().BoolVarP(&skillSkipConfirm, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(installSkillCmd)
}

func skillPathFor(home string) string {
	return filepath.Join(home, ".claude", "skills", "painlog", "SKILL.md")
}

func installSkill(in io.Reader, out io.Writer, home string, skipConfirm bool) error {
	skillPath := skillPathFor(home)
	skillDir := filepath.Dir(skillPath)

	fmt.Fprintln(out, "This will install the painlog skill, enabling Claude Code to:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  • Record pain by body region and intensity")
	fmt.Fprintln(out, "  • Fill the treatment questionnaire")
	fmt.Fprintln(out, "  • Summarize pain history and what helped")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Destination:")
	fmt.Fprintf(out, "  %s\n", skillPath)
	fmt.Fprintln(out)

	if _, err := os.Stat(skillPath); err == nil {
		fmt.Fprintln(out, "Note: A skill file already exists and will be overwritten.")
		fmt.Fprintln(out)
	}

	if !skipConfirm {
		fmt.Fprint(out, "Install the painlog skill? [y/N] ")
		response, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && response == "" {
			return fmt.Errorf("failed to read response: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(out, "Installation canceled.")
			return nil
		}
		fmt.Fprintln(out)
	}

	content, err := skillFS.ReadFile("skill/SKILL.md")
	if err != nil {
		return fmt.Errorf("failed to read embedded skill: %w", err)
	}

	if err := os.MkdirAll(skillDir, 0750); err != nil {
		return fmt.Errorf("failed to create skill directory: %w", err)
	}

	if err := os.WriteFile(skillPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write skill file: %w", err)
	}

	color.New(color.FgGreen).Fprintln(out, "✓ Installed painlog skill successfully!")
	fmt.Fprintln(out, "Try asking Claude: \"Minhas costas doem, nível 6\" or \"Show my pain history\"")
	return nil
}

// ABOUTME: CLI commands for registering and looking up diary owners.
// ABOUTME: Works against local storage or a painlog server via --server.
package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/painlog/internal/httpapi"
	"github.com/harperreed/painlog/internal/models"
)

var registerCmd = &cobra.Command{
	Use:   "register <name> <phone>",
	Short: "Register a new user",
	Long: `Register a diary owner. Phone numbers are unique.

EXAMPLES:

  painlog register "Maria Souza" 11988887777
  painlog register "Maria Souza" 11988887777 --server http://localhost:8080`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if c, ok := remote(); ok {
			resp, err := c.Register(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(out, "✓ Registered %s (ID: %d)\n", resp.User.Name, resp.User.ID)
			printToken(out, resp)
			return nil
		}

		u, err := service.Register(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(out, "✓ Registered %s (ID: %d)\n", u.Name, u.ID)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <phone>",
	Short: "Look up a user by phone",
	Long: `Find the user registered with a phone number.

With --server this also prints the session token the server issued, if any.
Pass it back with --token on later commands.

EXAMPLES:

  painlog login 11999887766
  painlog login 11999887766 --server http://localhost:8080`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if c, ok := remote(); ok {
			resp, err := c.Login(ctx, args[0])
			if err != nil {
				return err
			}
			printUser(out, resp.User)
			printToken(out, resp)
			return nil
		}

		u, err := service.Login(ctx, args[0])
		if err != nil {
			return err
		}
		printUser(out, u)
		return nil
	},
}

func printUser(out io.Writer, u *models.User) {
	faint := color.New(color.Faint)
	fmt.Fprintf(out, "%s %s\n", color.New(color.Bold).Sprint(u.Name), faint.Sprintf("(ID: %d)", u.ID))
	fmt.Fprintf(out, "  Phone:   %s\n", u.Phone)
	fmt.Fprintf(out, "  Since:   %s\n", u.CreatedAt.Local().Format("2006-01-02"))
}

func printToken(out io.Writer, resp *httpapi.AuthResponse) {
	if resp.Token == "" {
		return
	}
	fmt.Fprintf(out, "  Token:   %s\n", resp.Token)
	if resp.ExpiresAt != nil {
		fmt.Fprintf(out, "  Expires: %s\n", resp.ExpiresAt.Local().Format(time.RFC3339))
	}
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stahnma/gh-metrics/internal/github"
	"github.com/stahnma/gh-metrics/internal/prefs"
)

func (a *App) newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account the token belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.token()
			if err != nil {
				return err
			}
			user, err := github.GetAuthenticatedUser(cmd.Context(), a.API, token)
			if err != nil {
				return fmt.Errorf("authenticating: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Login, user.DisplayName())
			return nil
		},
	}
}

func (a *App) newLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login --token TOKEN",
		Short: "Validate a token and save it for later runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, _ := cmd.Flags().GetString("token")
			if token == "" {
				token = a.Config.GitHubToken
			}
			if token == "" {
				return fmt.Errorf("a token is required: pass --token or set GITHUB_TOKEN")
			}

			user, err := github.GetAuthenticatedUser(cmd.Context(), a.API, token)
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			if err := a.Creds.Save(prefs.Credentials{Token: token, Username: user.Login}); err != nil {
				return fmt.Errorf("saving credentials: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Welcome, %s!\n", user.DisplayName())
			if fs, ok := a.Creds.(*prefs.FileStore); ok {
				fmt.Fprintf(w, "Credentials saved to %s\n", fs.Path())
			}
			return nil
		},
	}
	cmd.Flags().String("token", "", "GitHub personal access token")
	return cmd
}

func (a *App) newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Creds.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

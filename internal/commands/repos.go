package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stahnma/gh-metrics/internal/format"
	"github.com/stahnma/gh-metrics/internal/github"
	"github.com/stahnma/gh-metrics/internal/metrics"
	"github.com/stahnma/gh-metrics/internal/prefs"
)

func (a *App) newReposCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos [account] [flags]",
		Short: "List the repositories of a user or organization",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRepos(cmd, args)
		},
	}
	cmd.Flags().String("filter", "", "Only show repositories whose name or description contains this text")
	cmd.Flags().String("sort", string(metrics.SortByName), "Sort by name, stars, forks or updated")
	cmd.Flags().Bool("desc", false, "Sort in descending order")
	cmd.Flags().Bool("json", false, "Print JSON instead of a table")
	return cmd
}

func (a *App) runRepos(cmd *cobra.Command, args []string) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	filter, _ := cmd.Flags().GetString("filter")
	sortBy, _ := cmd.Flags().GetString("sort")
	desc, _ := cmd.Flags().GetBool("desc")
	asJSON, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()

	account := ""
	if len(args) == 1 {
		account = args[0]
	}
	if account, err = a.account(ctx, token, account); err != nil {
		return err
	}

	repos, err := github.ListRepositories(ctx, a.API, token, account)
	if err != nil {
		return fmt.Errorf("listing repositories of %s: %w", account, err)
	}
	repos = metrics.FilterRepositories(repos, filter, metrics.ParseSortKey(sortBy), desc)

	if asJSON {
		return format.WriteJSON(w, repos, a.Config.SlackMode)
	}
	fmt.Fprintf(w, "Repositories of %s: %d\n", account, len(repos))
	rows := make([][]string, len(repos))
	for i, r := range repos {
		rows[i] = []string{fmt.Sprint(r.ID), r.FullName, format.Count(r.Stars), format.Count(r.Forks), format.Ago(r.UpdatedAt)}
	}
	return format.WriteTable(w, []string{"ID", "REPOSITORY", "STARS", "FORKS", "UPDATED"}, rows, a.Config.SlackMode)
}

// account resolves the account to list: the explicit one, else the saved
// username, else the token owner.
func (a *App) account(ctx context.Context, token, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	creds, err := a.Creds.Load()
	if err == nil && creds.Username != "" {
		return creds.Username, nil
	}
	if err != nil && !errors.Is(err, prefs.ErrNoCredentials) {
		return "", err
	}
	user, err := github.GetAuthenticatedUser(ctx, a.API, token)
	if err != nil {
		return "", fmt.Errorf("authenticating: %w", err)
	}
	return user.Login, nil
}

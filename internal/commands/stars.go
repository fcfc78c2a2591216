package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stahnma/gh-metrics/internal/github"
	"github.com/stahnma/gh-metrics/internal/metrics"
)

func (a *App) newStarsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stars owner/name...",
		Short: "Show star and fork counts of repositories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStars(cmd, args)
		},
	}
}

func (a *App) runStars(cmd *cobra.Command, args []string) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	stats := make([]github.RepositoryStats, 0, len(args))
	for _, name := range args {
		repo, err := a.lookup(ctx, token, name)
		if err != nil {
			return err
		}
		stats = append(stats, github.RepositoryStats{Repository: repo})
	}

	for _, p := range metrics.StarsAndForks(stats) {
		if a.Config.SlackMode {
			fmt.Fprintf(w, "The repository :star2: `%s` has %d stars and %d forks :star2:.\n", p.Repository, p.Stars, p.Forks)
		} else {
			fmt.Fprintf(w, "The repository %s has %d stars and %d forks\n", p.Repository, p.Stars, p.Forks)
		}
	}
	return nil
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/stahnma/gh-metrics/internal/format"
	"github.com/stahnma/gh-metrics/internal/github"
	"github.com/stahnma/gh-metrics/internal/metrics"
	"github.com/stahnma/gh-metrics/internal/session"
)

func (a *App) newCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare owner/name... [flags]",
		Short: "Compare traffic of up to 5 repositories side by side",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCompare(cmd, args)
		},
	}
	cmd.Flags().Bool("json", false, "Print JSON instead of tables")
	return cmd
}

func (a *App) runCompare(cmd *cobra.Command, args []string) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()

	cmp, err := a.compare(cmd.Context(), token, args)
	if err != nil {
		return err
	}
	if asJSON {
		return format.WriteJSON(w, cmp, a.Config.SlackMode)
	}
	return a.writeComparison(w, cmp)
}

// compare looks up each owner/name and builds the comparison of their
// traffic, in argument order.
func (a *App) compare(ctx context.Context, token string, names []string) (metrics.Comparison, error) {
	if len(names) > session.MaxSelected {
		return metrics.Comparison{}, session.ErrSelectionLimit
	}

	sess := session.New(a.Logger)
	for _, name := range names {
		repo, err := a.lookup(ctx, token, name)
		if err != nil {
			return metrics.Comparison{}, err
		}
		if err := sess.Select(repo); err != nil && !errors.Is(err, session.ErrAlreadySelected) {
			return metrics.Comparison{}, err
		}
	}

	sess.FetchPending(ctx, func(ctx context.Context, repo github.Repository) github.RepositoryStats {
		return github.GetRepositoryMetrics(ctx, a.API, token, repo)
	})
	if err := ctx.Err(); err != nil {
		return metrics.Comparison{}, err
	}
	return metrics.Compare(sess.Stats()), nil
}

func (a *App) lookup(ctx context.Context, token, fullName string) (github.Repository, error) {
	owner, name, ok := github.SplitFullName(fullName)
	if !ok {
		return github.Repository{}, fmt.Errorf("invalid repository %q: expected owner/name", fullName)
	}
	repo, err := github.GetRepository(ctx, a.API, token, owner, name)
	if err != nil {
		return github.Repository{}, fmt.Errorf("looking up %s: %w", fullName, err)
	}
	return repo, nil
}

func (a *App) writeComparison(w io.Writer, cmp metrics.Comparison) error {
	summary := make([][]string, len(cmp.Summary))
	for i, s := range cmp.Summary {
		name := s.Repository
		if s.Partial {
			name += " *"
		}
		summary[i] = []string{
			name,
			format.Count(s.Stars),
			format.Count(s.Forks),
			format.Count(s.TotalViews),
			format.Count(s.UniqueVisitors),
			format.Count(s.TotalClones),
			fmt.Sprintf("%.2f", s.MeanDailyViews),
			format.Count(s.PeakDailyViews),
		}
	}
	header := []string{"REPOSITORY", "STARS", "FORKS", "VIEWS", "UNIQUE", "CLONES", "MEAN/DAY", "PEAK"}
	if err := format.WriteTable(w, header, summary, a.Config.SlackMode); err != nil {
		return err
	}

	for _, u := range cmp.Unavailable {
		fmt.Fprintf(w, "%s unavailable for %s (%s)\n", u.Series, u.Repository, u.Reason)
	}

	if err := a.writeRows(w, "Views", cmp.Views); err != nil {
		return err
	}
	if err := a.writeRows(w, "Clones", cmp.Clones); err != nil {
		return err
	}

	if len(cmp.Referrers) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nTop referrers")
	header = []string{"REFERRER"}
	for _, c := range cmp.Referrers[0].Cells {
		header = append(header, c.Repository)
	}
	rows := make([][]string, len(cmp.Referrers))
	for i, r := range cmp.Referrers {
		rows[i] = append([]string{r.Referrer}, cells(r.Cells)...)
	}
	return format.WriteTable(w, header, rows, a.Config.SlackMode)
}

func (a *App) writeRows(w io.Writer, title string, series []metrics.Row) error {
	if len(series) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\n%s\n", title)
	header := []string{"DATE"}
	for _, c := range series[0].Cells {
		header = append(header, c.Repository)
	}
	rows := make([][]string, len(series))
	for i, r := range series {
		rows[i] = append([]string{r.Date}, cells(r.Cells)...)
	}
	return format.WriteTable(w, header, rows, a.Config.SlackMode)
}

func cells(cs []metrics.Cell) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = format.Count(c.Count) + " / " + format.Count(c.Uniques)
	}
	return out
}

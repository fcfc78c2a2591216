package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/stahnma/gh-metrics/internal/format"
	"github.com/stahnma/gh-metrics/internal/metrics"
)

// Snapshot is one dated export of a comparison.
type Snapshot struct {
	Date       string             `json:"date"`
	Comparison metrics.Comparison `json:"comparison"`
}

func (a *App) newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [owner/name...]",
		Short: "Export a comparison snapshot in JSON format",
		Long:  "Export a comparison snapshot in JSON format. Without arguments the repositories in EXPORT_REPOS are used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ExportJSON(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}
}

// ExportJSON writes a dated snapshot of the comparison of names, or of
// the configured export repositories when names is empty.
func (a *App) ExportJSON(ctx context.Context, w io.Writer, names []string) error {
	if len(names) == 0 {
		names = a.Config.ExportRepos
	}
	if len(names) == 0 {
		return fmt.Errorf("no repositories to export: pass owner/name arguments or set EXPORT_REPOS")
	}
	token, err := a.token()
	if err != nil {
		return err
	}

	cmp, err := a.compare(ctx, token, names)
	if err != nil {
		return fmt.Errorf("comparing repositories: %w", err)
	}

	date := time.Now().Format("2006-Jan-02")
	return format.WriteJSON(w, Snapshot{Date: date, Comparison: cmp}, a.Config.SlackMode)
}

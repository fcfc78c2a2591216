package commands

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/stahnma/gh-metrics/internal/server"
	"github.com/stahnma/gh-metrics/internal/session"
)

const shutdownTimeout = 10 * time.Second

func (a *App) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [flags]",
		Short: "Run the comparison dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Serve(ctx, addr, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().String("addr", a.Config.ListenAddr, "Address to listen on")
	return cmd
}

// Serve runs the dashboard on addr until ctx is done, logging to logOut.
func (a *App) Serve(ctx context.Context, addr string, logOut io.Writer) error {
	a.Logger.SetOutput(logOut)
	sessions := session.NewManager(a.Config.SessionTTL, a.Logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(a.API, sessions, a.Logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	a.Logger.Printf("Listening on %s (cache TTL %s, session idle timeout %s)", addr, a.Cache.TTL(), a.Config.SessionTTL)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.Logger.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package commands

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/stahnma/gh-metrics/internal/cache"
	"github.com/stahnma/gh-metrics/internal/config"
	"github.com/stahnma/gh-metrics/internal/github"
	"github.com/stahnma/gh-metrics/internal/prefs"
)

// App holds shared application state.
type App struct {
	Config   config.Config
	Cache    *cache.Cache
	API      github.Fetcher
	Creds    prefs.Store
	Logger   *log.Logger
	GitSHA   string
	GitDirty string
}

// NewApp creates a new App from the given configuration.
func NewApp(cfg config.Config, gitSHA, gitDirty string) (*App, error) {
	logger := log.New(io.Discard, "", log.LstdFlags)
	if cfg.DebugMode {
		logger.SetOutput(os.Stderr)
	}

	c := cache.New(cfg.CacheTTL)
	api, err := github.NewAPI(c,
		github.WithBaseURL(cfg.GitHubAPIURL),
		github.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating GitHub client: %w", err)
	}

	return &App{
		Config:   cfg,
		Cache:    c,
		API:      api,
		Creds:    prefs.NewFileStore(cfg.CredentialsFile),
		Logger:   logger,
		GitSHA:   gitSHA,
		GitDirty: gitDirty,
	}, nil
}

// token returns GITHUB_TOKEN when set, otherwise the token saved by login.
func (a *App) token() (string, error) {
	if a.Config.GitHubToken != "" {
		return a.Config.GitHubToken, nil
	}
	creds, err := a.Creds.Load()
	if errors.Is(err, prefs.ErrNoCredentials) {
		return "", fmt.Errorf("GITHUB_TOKEN must be set or a token saved with login")
	}
	if err != nil {
		return "", err
	}
	return creds.Token, nil
}

// NewRootCommand creates the root cobra command with all subcommands.
func (a *App) NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   os.Args[0],
		Short: "Compare traffic and popularity of GitHub repositories.",
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(a.newWhoamiCommand())
	rootCmd.AddCommand(a.newLoginCommand())
	rootCmd.AddCommand(a.newLogoutCommand())
	rootCmd.AddCommand(a.newReposCommand())
	rootCmd.AddCommand(a.newStarsCommand())
	rootCmd.AddCommand(a.newCompareCommand())
	rootCmd.AddCommand(a.newExportCommand())
	rootCmd.AddCommand(a.newServeCommand())
	rootCmd.AddCommand(a.newVersionCommand())

	return rootCmd
}

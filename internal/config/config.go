package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults for settings left unset.
const (
	DefaultListenAddr = ":8080"
	DefaultCacheTTL   = 5 * time.Minute
	DefaultSessionTTL = 30 * time.Minute
)

// Config holds application configuration loaded from environment variables
// and an optional config file.
type Config struct {
	GitHubToken     string
	GitHubAPIURL    string
	SlackMode       bool
	DebugMode       bool
	ListenAddr      string
	CacheTTL        time.Duration
	SessionTTL      time.Duration
	CredentialsFile string
	S3Bucket        string
	S3ObjectKey     string
	AWSRegion       string
	ExportRepos     []string
}

// FromEnvironment creates a Config from environment variables. When
// GH_METRICS_CONFIG names a file, its values are read first and the
// environment overrides them.
func FromEnvironment() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("LISTEN_ADDR", DefaultListenAddr)
	v.SetDefault("CACHE_TTL", DefaultCacheTTL.String())
	v.SetDefault("SESSION_TTL", DefaultSessionTTL.String())

	if path := v.GetString("GH_METRICS_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cacheTTL, err := duration(v, "CACHE_TTL")
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := duration(v, "SESSION_TTL")
	if err != nil {
		return Config{}, err
	}

	return Config{
		GitHubToken:     v.GetString("GITHUB_TOKEN"),
		GitHubAPIURL:    v.GetString("GITHUB_API_URL"),
		SlackMode:       truthy(v.GetString("SLACK_MODE")),
		DebugMode:       truthy(v.GetString("DEBUG")),
		ListenAddr:      v.GetString("LISTEN_ADDR"),
		CacheTTL:        cacheTTL,
		SessionTTL:      sessionTTL,
		CredentialsFile: v.GetString("CREDENTIALS_FILE"),
		S3Bucket:        v.GetString("S3_BUCKET_NAME"),
		S3ObjectKey:     v.GetString("S3_OBJECT_KEY"),
		AWSRegion:       v.GetString("AWS_REGION"),
		ExportRepos:     splitList(v.GetString("EXPORT_REPOS")),
	}, nil
}

func truthy(s string) bool {
	return s != "" && s != "0" && strings.ToLower(s) != "false"
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

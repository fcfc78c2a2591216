package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/stahnma/gh-metrics/internal/cache"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com/"

const requestTimeout = 15 * time.Second

// Fetcher returns the JSON body of an authenticated GitHub API GET.
type Fetcher interface {
	Fetch(ctx context.Context, token, path string) (json.RawMessage, error)
}

// API is the authenticated request wrapper. Responses are cached per
// token and path so different tokens never share an entry.
type API struct {
	cache   *cache.Cache
	baseURL *url.URL
	base    http.RoundTripper
	logger  *log.Logger
}

// Option configures an API.
type Option func(*API) error

// WithBaseURL points the API at a different server, e.g. GitHub Enterprise
// or a test server. An empty value keeps the default.
func WithBaseURL(raw string) Option {
	return func(a *API) error {
		if raw == "" {
			return nil
		}
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parsing base URL %q: %w", raw, err)
		}
		a.baseURL = u
		return nil
	}
}

// WithTransport sets the round tripper used beneath the token transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(a *API) error {
		a.base = rt
		return nil
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *log.Logger) Option {
	return func(a *API) error {
		if l != nil {
			a.logger = l
		}
		return nil
	}
}

// NewAPI creates an API backed by the given cache.
func NewAPI(c *cache.Cache, opts ...Option) (*API, error) {
	base, _ := url.Parse(DefaultBaseURL)
	a := &API{
		cache:   c,
		baseURL: base,
		logger:  log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Fetch returns the parsed body of GET path, served from the cache while
// the entry is fresh.
func (a *API) Fetch(ctx context.Context, token, path string) (json.RawMessage, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	// GitHub tokens never contain "-/" and every path starts with "/", so
	// distinct (token, path) pairs cannot produce the same key.
	cacheKey := token + "-" + path
	if val, found := a.cache.Get(cacheKey); found {
		if payload, ok := val.(json.RawMessage); ok {
			a.logger.Printf("Cache hit for key: %s", path)
			return payload, nil
		}
	}
	a.logger.Printf("Cache miss for key: %s", path)

	client := a.clientFor(token)
	req, err := client.NewRequest(http.MethodGet, strings.TrimPrefix(path, "/"), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", path, err)
	}

	var payload json.RawMessage
	resp, err := client.Do(ctx, req, &payload)
	if err != nil {
		if resp != nil && resp.Response != nil {
			apiErr := newAPIError(path, resp.Response)
			a.logger.Printf("Error fetching from GitHub API: %v", apiErr)
			return nil, apiErr
		}
		a.logger.Printf("Error fetching %s from GitHub API: %v", path, err)
		return nil, fmt.Errorf("requesting %s: %w", path, err)
	}

	a.cache.Set(cacheKey, payload)
	return payload, nil
}

func (a *API) clientFor(token string) *gh.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   a.base,
			Source: ts,
		},
		Timeout: requestTimeout,
	}
	client := gh.NewClient(httpClient)
	client.BaseURL = a.baseURL
	return client
}

// fetchJSON fetches path through f and decodes it into v.
func fetchJSON(ctx context.Context, f Fetcher, token, path string, v any) error {
	payload, err := f.Fetch(ctx, token, path)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

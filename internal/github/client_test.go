package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stahnma/gh-metrics/internal/cache"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time { return f.t }

// setupTestAPI creates an API that talks to a mock HTTP server.
func setupTestAPI(t *testing.T, handler http.Handler, opts ...cache.Option) (*API, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	api, err := NewAPI(cache.New(cache.DefaultTTL, opts...),
		WithBaseURL(server.URL),
		WithTransport(server.Client().Transport),
	)
	if err != nil {
		t.Fatalf("NewAPI: %v", err)
	}
	return api, server
}

// jsonEqual compares two JSON documents ignoring formatting.
func jsonEqual(t *testing.T, got json.RawMessage, want string) {
	t.Helper()
	var g, w any
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("decoding %s: %v", got, err)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("decoding %s: %v", want, err)
	}
	if !reflect.DeepEqual(g, w) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestAPI_Fetch_SendsHeaders(t *testing.T) {
	api, _ := setupTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" {
			t.Errorf("path = %q, want /user", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github.v3+json" {
			t.Errorf("Accept = %q", got)
		}
		fmt.Fprint(w, `{"login":"octocat"}`)
	}))

	payload, err := api.Fetch(context.Background(), "secret", "/user")
	if err != nil {
		t.Fatal(err)
	}
	jsonEqual(t, payload, `{"login":"octocat"}`)
}

func TestAPI_Fetch_CachesWithinTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	var calls atomic.Int32
	api, _ := setupTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"login":"octocat"}`)
	}), cache.WithClock(clock.Now))

	ctx := context.Background()
	if _, err := api.Fetch(ctx, "secret", "/user"); err != nil {
		t.Fatal(err)
	}

	clock.t = clock.t.Add(4 * time.Minute)
	if _, err := api.Fetch(ctx, "secret", "/user"); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("second fetch within TTL should be served from cache, got %d calls", n)
	}

	clock.t = clock.t.Add(2 * time.Minute)
	if _, err := api.Fetch(ctx, "secret", "/user"); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("fetch after TTL should hit the network, got %d calls", n)
	}
}

func TestAPI_Fetch_TokensDoNotShareEntries(t *testing.T) {
	var calls atomic.Int32
	api, _ := setupTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprintf(w, `{"auth":%q}`, r.Header.Get("Authorization"))
	}))

	ctx := context.Background()
	first, err := api.Fetch(ctx, "token_a", "/user")
	if err != nil {
		t.Fatal(err)
	}
	second, err := api.Fetch(ctx, "token_b", "/user")
	if err != nil {
		t.Fatal(err)
	}

	if n := calls.Load(); n != 2 {
		t.Errorf("got %d calls, want 2", n)
	}
	jsonEqual(t, first, `{"auth":"Bearer token_a"}`)
	jsonEqual(t, second, `{"auth":"Bearer token_b"}`)
}

func TestAPI_Fetch_CacheKeyPerTokenAndPath(t *testing.T) {
	var calls atomic.Int32
	api, _ := setupTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprintf(w, `{"auth":%q,"path":%q}`, r.Header.Get("Authorization"), r.URL.Path)
	}))

	pairs := []struct{ token, path string }{
		{"ghp_abc", "/user"},
		{"ghp_abc", "/users/x/repos"},
		{"ghp_abcd", "/user"},
		{"github_pat_abc", "/user"},
	}
	ctx := context.Background()
	for round := 0; round < 2; round++ {
		for _, p := range pairs {
			payload, err := api.Fetch(ctx, p.token, p.path)
			if err != nil {
				t.Fatal(err)
			}
			jsonEqual(t, payload, fmt.Sprintf(`{"auth":"Bearer %s","path":%q}`, p.token, p.path))
		}
	}
	if n := calls.Load(); n != int32(len(pairs)) {
		t.Errorf("got %d calls, want one per distinct pair (%d)", n, len(pairs))
	}
}

func TestAPI_Fetch_Errors(t *testing.T) {
	testCases := []struct {
		name         string
		status       int
		wantStatus   int
		wantText     string
		unauthorized bool
	}{
		{name: "not found", status: http.StatusNotFound, wantStatus: 404, wantText: "Not Found"},
		{name: "unauthorized", status: http.StatusUnauthorized, wantStatus: 401, wantText: "Unauthorized", unauthorized: true},
		{name: "server error", status: http.StatusInternalServerError, wantStatus: 500, wantText: "Internal Server Error"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api, _ := setupTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, `{"message":"nope"}`)
			}))

			_, err := api.Fetch(context.Background(), "secret", "/user")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.StatusCode != tc.wantStatus || apiErr.StatusText != tc.wantText {
				t.Errorf("got %d %q, want %d %q", apiErr.StatusCode, apiErr.StatusText, tc.wantStatus, tc.wantText)
			}
			if want := fmt.Sprintf("%d %s", tc.wantStatus, tc.wantText); !strings.Contains(err.Error(), want) {
				t.Errorf("error %q should contain %q", err, want)
			}
			if got := errors.Is(err, ErrUnauthorized); got != tc.unauthorized {
				t.Errorf("errors.Is(err, ErrUnauthorized) = %v, want %v", got, tc.unauthorized)
			}
		})
	}
}

func TestAPI_Fetch_ErrorsAreNotCached(t *testing.T) {
	var calls atomic.Int32
	api, _ := setupTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"login":"octocat"}`)
	}))

	ctx := context.Background()
	if _, err := api.Fetch(ctx, "secret", "/user"); err == nil {
		t.Fatal("expected an error from the first fetch")
	}
	if _, err := api.Fetch(ctx, "secret", "/user"); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("got %d calls, want 2", n)
	}
}

func TestAPI_Fetch_MissingToken(t *testing.T) {
	api, err := NewAPI(cache.New(0))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := api.Fetch(context.Background(), "", "/user"); !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
}

func TestAPI_Fetch_QueryString(t *testing.T) {
	api, _ := setupTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/octocat/repos" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("per_page") != "100" || q.Get("sort") != "updated" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		fmt.Fprint(w, `[]`)
	}))

	repos, err := ListRepositories(context.Background(), api, "secret", "octocat")
	if err != nil {
		t.Fatal(err)
	}
	if len(repos) != 0 {
		t.Errorf("got %+v, want none", repos)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want FailureKind
	}{
		{nil, FailureNone},
		{&APIError{StatusCode: 401}, FailureUnauthorized},
		{&APIError{StatusCode: 403}, FailureForbidden},
		{fmt.Errorf("wrapped: %w", &APIError{StatusCode: 404}), FailureForbidden},
		{&APIError{StatusCode: 502}, FailureTransient},
		{errors.New("connection reset"), FailureTransient},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

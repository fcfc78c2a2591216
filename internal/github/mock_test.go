package github

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// mockFetcher implements Fetcher for testing.
type mockFetcher struct {
	fetchFn func(ctx context.Context, token, path string) (json.RawMessage, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, token, path string) (json.RawMessage, error) {
	return m.fetchFn(ctx, token, path)
}

// routeFetcher serves canned bodies or errors keyed by path and records calls.
type routeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	calls  []string
}

func newRouteFetcher() *routeFetcher {
	return &routeFetcher{bodies: map[string]string{}, errs: map[string]error{}}
}

func (r *routeFetcher) Fetch(_ context.Context, _, path string) (json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, path)
	if err, ok := r.errs[path]; ok {
		return nil, err
	}
	body, ok := r.bodies[path]
	if !ok {
		return nil, fmt.Errorf("unexpected path %s", path)
	}
	return json.RawMessage(body), nil
}

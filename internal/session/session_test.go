package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stahnma/gh-metrics/internal/github"
)

func repo(id int64) github.Repository {
	return github.Repository{ID: id, Name: fmt.Sprintf("r%d", id), FullName: fmt.Sprintf("o/r%d", id)}
}

// countingFetcher returns stats tagged with a call number.
type countingFetcher struct {
	calls atomic.Int32
}

func (c *countingFetcher) fetch(_ context.Context, r github.Repository) github.RepositoryStats {
	n := int(c.calls.Add(1))
	return github.RepositoryStats{
		Repository: r,
		Views:      github.Series[github.TrafficPoint]{Data: []github.TrafficPoint{{Count: n}}},
	}
}

func mustSelect(t *testing.T, s *Session, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		if err := s.Select(repo(id)); err != nil {
			t.Fatalf("Select(%d): %v", id, err)
		}
	}
}

func TestSelect_Limit(t *testing.T) {
	s := New(nil)
	mustSelect(t, s, 1, 2, 3, 4, 5)

	if err := s.Select(repo(6)); !errors.Is(err, ErrSelectionLimit) {
		t.Errorf("expected ErrSelectionLimit, got %v", err)
	}
	if n := len(s.Selected()); n != MaxSelected {
		t.Errorf("selected %d repositories, want %d", n, MaxSelected)
	}
	if s.IsSelected(6) {
		t.Error("repository 6 should not be selected")
	}
}

func TestSelect_Duplicate(t *testing.T) {
	s := New(nil)
	mustSelect(t, s, 1)
	if err := s.Select(repo(1)); !errors.Is(err, ErrAlreadySelected) {
		t.Errorf("expected ErrAlreadySelected, got %v", err)
	}
	if n := len(s.Selected()); n != 1 {
		t.Errorf("selected %d repositories, want 1", n)
	}
}

func TestDeselect_DropsSelectionAndStats(t *testing.T) {
	s := New(nil)
	f := &countingFetcher{}
	mustSelect(t, s, 1, 2)
	if got := s.FetchPending(context.Background(), f.fetch); got != 2 {
		t.Fatalf("FetchPending stored %d, want 2", got)
	}

	if err := s.Deselect(1); err != nil {
		t.Fatalf("Deselect: %v", err)
	}

	if s.IsSelected(1) {
		t.Error("repository 1 should no longer be selected")
	}
	stats := s.Stats()
	if len(stats) != 1 || stats[0].Repository.ID != 2 {
		t.Fatalf("Stats() = %+v, want only repository 2", stats)
	}
	if err := s.Deselect(1); !errors.Is(err, ErrNotSelected) {
		t.Errorf("expected ErrNotSelected, got %v", err)
	}
}

func TestReselect_TriggersFreshFetch(t *testing.T) {
	s := New(nil)
	f := &countingFetcher{}
	mustSelect(t, s, 1)
	s.FetchPending(context.Background(), f.fetch)

	if err := s.Deselect(1); err != nil {
		t.Fatal(err)
	}
	mustSelect(t, s, 1)
	if p := s.Pending(); p != 1 {
		t.Fatalf("Pending() = %d, want 1", p)
	}

	if got := s.FetchPending(context.Background(), f.fetch); got != 1 {
		t.Errorf("FetchPending stored %d, want 1", got)
	}
	if calls := f.calls.Load(); calls != 2 {
		t.Errorf("fetched %d times, want 2", calls)
	}
	if got := s.Stats()[0].Views.Data[0].Count; got != 2 {
		t.Errorf("stats came from fetch %d, want the second", got)
	}
}

func TestFetchPending_SkipsFetched(t *testing.T) {
	s := New(nil)
	f := &countingFetcher{}
	mustSelect(t, s, 1)
	s.FetchPending(context.Background(), f.fetch)
	mustSelect(t, s, 2)

	if got := s.FetchPending(context.Background(), f.fetch); got != 1 {
		t.Errorf("FetchPending stored %d, want 1", got)
	}
	if calls := f.calls.Load(); calls != 2 {
		t.Errorf("fetched %d times, want 2", calls)
	}
}

func TestFetchPending_SequentialInSelectionOrder(t *testing.T) {
	s := New(nil)
	var mu sync.Mutex
	var order []int64
	active := atomic.Int32{}
	fetch := func(_ context.Context, r github.Repository) github.RepositoryStats {
		if active.Add(1) > 1 {
			t.Error("fetches overlapped")
		}
		defer active.Add(-1)
		mu.Lock()
		order = append(order, r.ID)
		mu.Unlock()
		return github.RepositoryStats{Repository: r}
	}
	mustSelect(t, s, 3, 1, 2)

	s.FetchPending(context.Background(), fetch)

	if want := []int64{3, 1, 2}; !reflect.DeepEqual(order, want) {
		t.Errorf("fetch order = %v, want %v", order, want)
	}
}

func TestFetchPending_DiscardsStaleInflightResult(t *testing.T) {
	s := New(nil)
	mustSelect(t, s, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	var firstCancelled atomic.Bool
	fetch := func(ctx context.Context, r github.Repository) github.RepositoryStats {
		n := int(calls.Add(1))
		if n == 1 {
			close(started)
			<-release
			firstCancelled.Store(ctx.Err() != nil)
		}
		return github.RepositoryStats{
			Repository: r,
			Views:      github.Series[github.TrafficPoint]{Data: []github.TrafficPoint{{Count: n}}},
		}
	}

	done := make(chan int)
	go func() { done <- s.FetchPending(context.Background(), fetch) }()

	<-started
	if err := s.Deselect(1); err != nil {
		t.Fatal(err)
	}
	mustSelect(t, s, 1)
	close(release)

	// The stale result is discarded and the loop fetches again.
	if got := <-done; got != 1 {
		t.Errorf("FetchPending stored %d, want 1", got)
	}
	if !firstCancelled.Load() {
		t.Error("deselect should cancel the running fetch")
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("fetched %d times, want 2", c)
	}
	stats := s.Stats()
	if len(stats) != 1 || stats[0].Views.Data[0].Count != 2 {
		t.Errorf("Stats() = %+v, want the second fetch only", stats)
	}
}

func TestFetchPending_DeselectedWhileInflight(t *testing.T) {
	s := New(nil)
	mustSelect(t, s, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(_ context.Context, r github.Repository) github.RepositoryStats {
		close(started)
		<-release
		return github.RepositoryStats{Repository: r}
	}

	done := make(chan int)
	go func() { done <- s.FetchPending(context.Background(), fetch) }()

	<-started
	if err := s.Deselect(1); err != nil {
		t.Fatal(err)
	}
	close(release)

	if got := <-done; got != 0 {
		t.Errorf("FetchPending stored %d, want 0", got)
	}
	if st := s.Stats(); len(st) != 0 {
		t.Errorf("Stats() = %+v, want none", st)
	}
}

func TestFetchPending_CancelledRequestIsRefetched(t *testing.T) {
	s := New(nil)
	mustSelect(t, s, 1, 2)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	stored := s.FetchPending(ctx, func(fctx context.Context, r github.Repository) github.RepositoryStats {
		calls++
		cancel()
		return github.RepositoryStats{Repository: r, Views: github.Series[github.TrafficPoint]{Err: fctx.Err()}}
	})

	if calls != 1 {
		t.Errorf("fetched %d times, want 1", calls)
	}
	if stored != 0 {
		t.Errorf("FetchPending stored %d, want 0", stored)
	}
	if st := s.Stats(); len(st) != 0 {
		t.Errorf("Stats() = %+v, want none", st)
	}
	if p := s.Pending(); p != 2 {
		t.Fatalf("Pending() = %d, want 2", p)
	}

	f := &countingFetcher{}
	if got := s.FetchPending(context.Background(), f.fetch); got != 2 {
		t.Errorf("second FetchPending stored %d, want 2", got)
	}
	stats := s.Stats()
	if len(stats) != 2 || stats[0].Repository.ID != 1 || !stats[0].Views.OK() {
		t.Errorf("Stats() = %+v, want fresh stats for both repositories", stats)
	}
}

func TestToggle(t *testing.T) {
	s := New(nil)
	if err := s.Toggle(repo(1)); err != nil {
		t.Fatal(err)
	}
	if !s.IsSelected(1) {
		t.Error("first Toggle should select")
	}
	if err := s.Toggle(repo(1)); err != nil {
		t.Fatal(err)
	}
	if s.IsSelected(1) {
		t.Error("second Toggle should deselect")
	}
}

func TestToggle_Limit(t *testing.T) {
	s := New(nil)
	mustSelect(t, s, 1, 2, 3, 4, 5)
	if err := s.Toggle(repo(6)); !errors.Is(err, ErrSelectionLimit) {
		t.Errorf("expected ErrSelectionLimit, got %v", err)
	}
	if err := s.Toggle(repo(3)); err != nil {
		t.Errorf("Toggle of a selected repository should deselect, got %v", err)
	}
}

func TestLookup(t *testing.T) {
	s := New(nil)
	s.SetRepositories("octocat", []github.Repository{repo(1), repo(2)})

	r, ok := s.Lookup(2)
	if !ok || r.FullName != "o/r2" {
		t.Errorf("Lookup(2) = %+v, %v", r, ok)
	}
	if _, ok := s.Lookup(9); ok {
		t.Error("Lookup(9) should miss")
	}

	account, repos := s.Repositories()
	if account != "octocat" || len(repos) != 2 {
		t.Errorf("Repositories() = %q, %d repos", account, len(repos))
	}
}

func TestReset(t *testing.T) {
	s := New(nil)
	f := &countingFetcher{}
	s.SetRepositories("octocat", []github.Repository{repo(1)})
	mustSelect(t, s, 1)
	s.FetchPending(context.Background(), f.fetch)
	s.Notify(LevelInfo, "hello", "")

	s.Reset()

	account, repos := s.Repositories()
	if account != "" || len(repos) != 0 {
		t.Errorf("Repositories() = %q, %d repos after Reset", account, len(repos))
	}
	if len(s.Selected()) != 0 || len(s.Stats()) != 0 {
		t.Error("selection and stats should be empty after Reset")
	}
}

func TestNotices(t *testing.T) {
	s := New(nil)
	s.Notify(LevelError, "Selection Limit", "You can compare up to 5 repositories at once")
	s.Notify(LevelInfo, "Logged Out", "")

	notices := s.DrainNotices()
	if len(notices) != 2 {
		t.Fatalf("got %d notices, want 2", len(notices))
	}
	if notices[0].Level != LevelError {
		t.Errorf("first notice level = %q, want %q", notices[0].Level, LevelError)
	}
	if rest := s.DrainNotices(); len(rest) != 0 {
		t.Errorf("DrainNotices should empty the queue, got %+v", rest)
	}
}

// Package session holds the per-user dashboard state: the listed
// repositories, the selection being compared and the stats fetched for it.
package session

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/stahnma/gh-metrics/internal/github"
)

// MaxSelected is how many repositories can be compared at once.
const MaxSelected = 5

var (
	// ErrSelectionLimit is returned when selecting beyond MaxSelected.
	ErrSelectionLimit = errors.New("you can compare up to 5 repositories at once")

	// ErrAlreadySelected is returned when selecting a repository twice.
	ErrAlreadySelected = errors.New("repository already selected")

	// ErrNotSelected is returned when deselecting an unknown repository.
	ErrNotSelected = errors.New("repository not selected")
)

// MetricsFetcher fetches the stats of one repository.
type MetricsFetcher func(ctx context.Context, repo github.Repository) github.RepositoryStats

type inflight struct {
	generation uint64
	cancel     context.CancelFunc
}

// Session is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	account      string
	repositories []github.Repository

	selected    []github.Repository
	stats       map[int64]github.RepositoryStats
	generations map[int64]uint64
	inflight    map[int64]inflight

	notices []Notice
	logger  *log.Logger
}

// New creates an empty session.
func New(logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Session{
		stats:       make(map[int64]github.RepositoryStats),
		generations: make(map[int64]uint64),
		inflight:    make(map[int64]inflight),
		logger:      logger,
	}
}

// SetRepositories records the listing shown for account.
func (s *Session) SetRepositories(account string, repos []github.Repository) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = account
	s.repositories = append([]github.Repository(nil), repos...)
}

// Repositories returns the current account and its listing.
func (s *Session) Repositories() (string, []github.Repository) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account, append([]github.Repository(nil), s.repositories...)
}

// Lookup finds a repository by ID in the listing or the selection.
func (s *Session) Lookup(id int64) (github.Repository, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.repositories {
		if r.ID == id {
			return r, true
		}
	}
	for _, r := range s.selected {
		if r.ID == id {
			return r, true
		}
	}
	return github.Repository{}, false
}

// Select adds repo to the comparison. The selection is left unchanged when
// it is full or already holds repo.
func (s *Session) Select(repo github.Repository) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(repo.ID) >= 0 {
		return ErrAlreadySelected
	}
	if len(s.selected) >= MaxSelected {
		return ErrSelectionLimit
	}
	s.selected = append(s.selected, repo)
	s.generations[repo.ID]++
	return nil
}

// Deselect removes repo from the selection together with its stats and
// abandons any fetch still running for it.
func (s *Session) Deselect(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return ErrNotSelected
	}
	s.selected = append(s.selected[:i], s.selected[i+1:]...)
	delete(s.stats, id)
	s.generations[id]++
	if f, ok := s.inflight[id]; ok {
		f.cancel()
		delete(s.inflight, id)
	}
	return nil
}

// Toggle deselects repo if selected and selects it otherwise.
func (s *Session) Toggle(repo github.Repository) error {
	if s.IsSelected(repo.ID) {
		return s.Deselect(repo.ID)
	}
	return s.Select(repo)
}

// IsSelected reports whether the repository is part of the comparison.
func (s *Session) IsSelected(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(id) >= 0
}

// Selected returns the selection in the order it was made.
func (s *Session) Selected() []github.Repository {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]github.Repository(nil), s.selected...)
}

// Stats returns the fetched stats in selection order. Repositories still
// waiting for their fetch are left out.
func (s *Session) Stats() []github.RepositoryStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]github.RepositoryStats, 0, len(s.selected))
	for _, r := range s.selected {
		if st, ok := s.stats[r.ID]; ok {
			out = append(out, st)
		}
	}
	return out
}

// Pending reports how many selected repositories have no stats yet.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.selected {
		if _, ok := s.stats[r.ID]; !ok {
			n++
		}
	}
	return n
}

// FetchPending fetches stats for every selected repository that has none,
// one repository at a time. A result is kept only if its repository is
// still selected under the same generation it was requested for, so a
// deselect (and reselect) while the fetch runs discards it. A fetch whose
// context ended before it returned is not stored either. It returns the
// number of stats stored.
func (s *Session) FetchPending(ctx context.Context, fetch MetricsFetcher) int {
	stored := 0
	for {
		s.mu.Lock()
		repo, ok := s.nextPendingLocked()
		if !ok {
			s.mu.Unlock()
			return stored
		}
		gen := s.generations[repo.ID]
		fctx, cancel := context.WithCancel(ctx)
		s.inflight[repo.ID] = inflight{generation: gen, cancel: cancel}
		s.mu.Unlock()

		result := fetch(fctx, repo)
		aborted := fctx.Err() != nil
		cancel()

		s.mu.Lock()
		if f, ok := s.inflight[repo.ID]; ok && f.generation == gen {
			delete(s.inflight, repo.ID)
		}
		switch {
		case s.generations[repo.ID] != gen || s.indexLocked(repo.ID) < 0:
			s.logger.Printf("Discarding stale metrics for %s", repo.FullName)
		case aborted:
			// Left pending so the next request fetches it again.
			s.logger.Printf("Abandoned metrics fetch for %s", repo.FullName)
		default:
			s.stats[repo.ID] = result
			stored++
		}
		s.mu.Unlock()

		if ctx.Err() != nil {
			return stored
		}
	}
}

// Reset drops everything, as on logout.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.inflight {
		f.cancel()
	}
	s.account = ""
	s.repositories = nil
	s.selected = nil
	s.stats = make(map[int64]github.RepositoryStats)
	s.inflight = make(map[int64]inflight)
	// Generations survive the reset so fetches started before it stay stale.
	for id := range s.generations {
		s.generations[id]++
	}
}

func (s *Session) nextPendingLocked() (github.Repository, bool) {
	for _, r := range s.selected {
		if _, done := s.stats[r.ID]; done {
			continue
		}
		if _, running := s.inflight[r.ID]; running {
			continue
		}
		return r, true
	}
	return github.Repository{}, false
}

func (s *Session) indexLocked(id int64) int {
	for i, r := range s.selected {
		if r.ID == id {
			return i
		}
	}
	return -1
}

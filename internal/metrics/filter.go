package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/stahnma/gh-metrics/internal/github"
)

// SortKey selects the field repositories are ordered by.
type SortKey string

const (
	SortByName    SortKey = "name"
	SortByStars   SortKey = "stars"
	SortByForks   SortKey = "forks"
	SortByUpdated SortKey = "updated"
)

// ParseSortKey maps user input to a SortKey, falling back to name.
func ParseSortKey(s string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortByStars:
		return SortByStars
	case SortByForks:
		return SortByForks
	case SortByUpdated:
		return SortByUpdated
	default:
		return SortByName
	}
}

// Label is the human-readable name of the key.
func (k SortKey) Label() string {
	switch k {
	case SortByStars:
		return "Stars"
	case SortByForks:
		return "Forks"
	case SortByUpdated:
		return "Last Updated"
	default:
		return "Name"
	}
}

// FilterRepositories returns the repositories whose name or description
// contains query (case-insensitive), ordered by key. The input is not
// modified.
func FilterRepositories(repos []github.Repository, query string, key SortKey, desc bool) []github.Repository {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]github.Repository, 0, len(repos))
	for _, r := range repos {
		if query == "" ||
			strings.Contains(strings.ToLower(r.Name), query) ||
			strings.Contains(strings.ToLower(r.Description), query) {
			out = append(out, r)
		}
	}

	less := lessFunc(key)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func lessFunc(key SortKey) func(a, b github.Repository) bool {
	switch key {
	case SortByStars:
		return func(a, b github.Repository) bool { return a.Stars < b.Stars }
	case SortByForks:
		return func(a, b github.Repository) bool { return a.Forks < b.Forks }
	case SortByUpdated:
		return func(a, b github.Repository) bool { return updated(a).Before(updated(b)) }
	default:
		return func(a, b github.Repository) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}
}

func updated(r github.Repository) time.Time {
	if r.UpdatedAt == nil {
		return time.Time{}
	}
	return *r.UpdatedAt
}

package github

import (
	"encoding/json"
	"strings"
	"time"

	gh "github.com/google/go-github/v68/github"
)

// User is the authenticated account behind a token.
type User struct {
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`
}

// DisplayName returns the user's name, falling back to the login.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Login
}

// Repository is a repository as listed by the API.
type Repository struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	FullName    string     `json:"full_name"`
	Description string     `json:"description,omitempty"`
	Stars       int        `json:"stars"`
	Forks       int        `json:"forks"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Split returns the owner and name parts of FullName. ok is false unless
// FullName has exactly the form owner/name.
func (r Repository) Split() (owner, name string, ok bool) {
	return SplitFullName(r.FullName)
}

// SplitFullName splits an owner/name repository reference.
func SplitFullName(fullName string) (owner, name string, ok bool) {
	owner, name, ok = strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}

func repositoryFromAPI(raw *gh.Repository) Repository {
	repo := Repository{
		ID:          raw.GetID(),
		Name:        raw.GetName(),
		FullName:    raw.GetFullName(),
		Description: raw.GetDescription(),
		Stars:       raw.GetStargazersCount(),
		Forks:       raw.GetForksCount(),
	}
	if raw.UpdatedAt != nil {
		updated := raw.UpdatedAt.Time
		repo.UpdatedAt = &updated
	}
	return repo
}

// TrafficPoint is one day of views or clones.
type TrafficPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
	Uniques   int       `json:"uniques"`
}

// Referrer is an external site sending traffic to a repository.
type Referrer struct {
	Referrer string `json:"referrer"`
	Count    int    `json:"count"`
	Uniques  int    `json:"uniques"`
}

// Series is the outcome of one traffic sub-fetch: the data on success, or
// an empty fallback together with the error that caused it.
type Series[T any] struct {
	Data []T
	Err  error
}

func succeeded[T any](data []T) Series[T] {
	if data == nil {
		data = []T{}
	}
	return Series[T]{Data: data}
}

func failed[T any](err error) Series[T] {
	return Series[T]{Data: []T{}, Err: err}
}

// OK reports whether the sub-fetch succeeded.
func (s Series[T]) OK() bool {
	return s.Err == nil
}

// Failure classifies the sub-fetch error.
func (s Series[T]) Failure() FailureKind {
	return Classify(s.Err)
}

func (s Series[T]) MarshalJSON() ([]byte, error) {
	out := struct {
		Data    []T    `json:"data"`
		Error   string `json:"error,omitempty"`
		Failure string `json:"failure,omitempty"`
	}{Data: s.Data}
	if out.Data == nil {
		out.Data = []T{}
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
		out.Failure = s.Failure().String()
	}
	return json.Marshal(out)
}

// RepositoryStats is a repository together with its traffic series.
type RepositoryStats struct {
	Repository Repository           `json:"repository"`
	Views      Series[TrafficPoint] `json:"views"`
	Clones     Series[TrafficPoint] `json:"clones"`
	Referrers  Series[Referrer]     `json:"referrers"`
}

// Degraded reports whether any series fell back to empty.
func (s RepositoryStats) Degraded() bool {
	return !s.Views.OK() || !s.Clones.OK() || !s.Referrers.OK()
}

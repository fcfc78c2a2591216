package server

import (
	"errors"
	"net/http"

	"github.com/stahnma/gh-metrics/internal/format"
	"github.com/stahnma/gh-metrics/internal/github"
	"github.com/stahnma/gh-metrics/internal/metrics"
)

type errorBody struct {
	Error string `json:"error"`
}

type compareBody struct {
	Selected   []github.Repository `json:"selected"`
	Comparison metrics.Comparison  `json:"comparison"`
}

// handleAPIRepos lists the repositories of ?user=, defaulting to the
// saved account. The q, sort and dir parameters filter and order the list.
func (s *Server) handleAPIRepos(w http.ResponseWriter, r *http.Request) {
	creds, err := s.credentials(w, r).Load()
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
		return
	}

	ctx := r.Context()
	q := r.URL.Query()
	account := q.Get("user")
	if account == "" {
		if account, err = s.account(ctx, creds); err != nil {
			s.apiError(w, err)
			return
		}
	}

	repos, err := github.ListRepositories(ctx, s.api, creds.Token, account)
	if err != nil {
		s.logger.Printf("Error fetching repositories for %s: %v", account, err)
		s.apiError(w, err)
		return
	}
	key := metrics.ParseSortKey(q.Get("sort"))
	writeJSON(w, http.StatusOK, metrics.FilterRepositories(repos, q.Get("q"), key, q.Get("dir") == "desc"))
}

// handleAPICompare returns the aligned comparison of the session's
// selection, fetching whatever is still missing.
func (s *Server) handleAPICompare(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.serverError(w, err)
		return
	}
	creds, err := s.credentials(w, r).Load()
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
		return
	}
	sess.FetchPending(r.Context(), s.fetcher(creds.Token))
	writeJSON(w, http.StatusOK, compareBody{
		Selected:   sess.Selected(),
		Comparison: metrics.Compare(sess.Stats()),
	})
}

func (s *Server) apiError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, github.ErrUnauthorized) {
		status = http.StatusUnauthorized
	}
	var apiErr *github.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	format.WriteJSON(w, v, false)
}

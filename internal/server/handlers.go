package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/stahnma/gh-metrics/internal/github"
	"github.com/stahnma/gh-metrics/internal/metrics"
	"github.com/stahnma/gh-metrics/internal/prefs"
	"github.com/stahnma/gh-metrics/internal/session"
)

var sortKeys = []metrics.SortKey{
	metrics.SortByName,
	metrics.SortByStars,
	metrics.SortByForks,
	metrics.SortByUpdated,
}

type repoView struct {
	github.Repository
	Selected bool
}

type dashboard struct {
	Authenticated bool
	Account       string
	Notices       []session.Notice
	Query         string
	Sort          metrics.SortKey
	Desc          bool
	SortKeys      []metrics.SortKey
	Repositories  []repoView
	Selected      []github.Repository
	Comparison    metrics.Comparison
	MaxSelected   int
	Return        string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.serverError(w, err)
		return
	}
	store := s.credentials(w, r)
	creds, err := store.Load()
	if err != nil {
		s.render(w, dashboard{Notices: sess.DrainNotices(), SortKeys: sortKeys})
		return
	}

	ctx := r.Context()
	account, err := s.loadRepositories(ctx, sess, creds)
	if errors.Is(err, github.ErrUnauthorized) {
		store.Clear()
		sess.Reset()
		sess.Notify(session.LevelError, "Authentication Failed", "Your token is no longer valid. Please log in again.")
		s.render(w, dashboard{Notices: sess.DrainNotices(), SortKeys: sortKeys})
		return
	}
	sess.FetchPending(ctx, s.fetcher(creds.Token))

	q := r.URL.Query()
	key := metrics.ParseSortKey(q.Get("sort"))
	desc := q.Get("dir") == "desc"
	_, listing := sess.Repositories()
	filtered := metrics.FilterRepositories(listing, q.Get("q"), key, desc)
	views := make([]repoView, len(filtered))
	for i, repo := range filtered {
		views[i] = repoView{Repository: repo, Selected: sess.IsSelected(repo.ID)}
	}

	s.render(w, dashboard{
		Authenticated: true,
		Account:       account,
		Notices:       sess.DrainNotices(),
		Query:         q.Get("q"),
		Sort:          key,
		Desc:          desc,
		SortKeys:      sortKeys,
		Repositories:  views,
		Selected:      sess.Selected(),
		Comparison:    metrics.Compare(sess.Stats()),
		MaxSelected:   session.MaxSelected,
		Return:        r.URL.RequestURI(),
	})
}

// loadRepositories makes sure the session lists the repositories of the
// saved account and returns that account. A listing failure leaves the
// list empty and queues a notice; it is retried when the account is
// submitted again.
func (s *Server) loadRepositories(ctx context.Context, sess *session.Session, creds prefs.Credentials) (string, error) {
	account, err := s.account(ctx, creds)
	if err != nil {
		s.logger.Printf("Error resolving account: %v", err)
		if errors.Is(err, github.ErrUnauthorized) {
			return "", err
		}
		sess.Notify(session.LevelError, "Error Fetching Repositories", err.Error())
		return "", nil
	}
	if current, _ := sess.Repositories(); current == account {
		return account, nil
	}
	repos, err := github.ListRepositories(ctx, s.api, creds.Token, account)
	if err != nil {
		s.logger.Printf("Error fetching repositories for %s: %v", account, err)
		if errors.Is(err, github.ErrUnauthorized) {
			return "", err
		}
		sess.Notify(session.LevelError, "Error Fetching Repositories", err.Error())
		repos = nil
	}
	sess.SetRepositories(account, repos)
	return account, nil
}

// account is the saved username, or the token owner when none is saved.
func (s *Server) account(ctx context.Context, creds prefs.Credentials) (string, error) {
	if creds.Username != "" {
		return creds.Username, nil
	}
	user, err := github.GetAuthenticatedUser(ctx, s.api, creds.Token)
	if err != nil {
		return "", err
	}
	return user.Login, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.serverError(w, err)
		return
	}
	token := strings.TrimSpace(r.FormValue("token"))
	if token == "" {
		sess.Notify(session.LevelError, "Authentication Failed", "Please enter a GitHub token.")
		redirectBack(w, r)
		return
	}

	user, err := github.GetAuthenticatedUser(r.Context(), s.api, token)
	if err != nil {
		s.logger.Printf("Authentication failed: %v", err)
		sess.Notify(session.LevelError, "Authentication Failed", err.Error())
		redirectBack(w, r)
		return
	}

	sess.Reset()
	if err := s.credentials(w, r).Save(prefs.Credentials{Token: token, Username: user.Login}); err != nil {
		s.serverError(w, err)
		return
	}
	sess.Notify(session.LevelInfo, "Authentication Successful", fmt.Sprintf("Welcome, %s!", user.DisplayName()))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout forgets the token and drops the whole session. The notice
// lands in the fresh session that replaces it.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.credentials(w, r).Clear()
	if ck, err := r.Cookie(SessionCookie); err == nil {
		s.sessions.Delete(ck.Value)
	}
	sess, err := s.session(w, r)
	if err != nil {
		s.serverError(w, err)
		return
	}
	sess.Notify(session.LevelInfo, "Logged Out", "Your token has been removed from this browser.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleAccount switches the account whose repositories are listed. An
// empty username goes back to the token owner.
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.serverError(w, err)
		return
	}
	store := s.credentials(w, r)
	creds, err := store.Load()
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	creds.Username = strings.TrimSpace(r.FormValue("username"))
	if err := store.Save(creds); err != nil {
		s.serverError(w, err)
		return
	}
	sess.SetRepositories("", nil)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	s.changeSelection(w, r, (*session.Session).Select)
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	s.changeSelection(w, r, func(sess *session.Session, repo github.Repository) error {
		return sess.Deselect(repo.ID)
	})
}

// handleToggle backs the dashboard's per-row button.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.changeSelection(w, r, (*session.Session).Toggle)
}

// changeSelection applies op to the repository named by the form and
// returns to the dashboard. Selecting twice and deselecting an unselected
// repository are no-ops.
func (s *Server) changeSelection(w http.ResponseWriter, r *http.Request, op func(*session.Session, github.Repository) error) {
	sess, repo, ok := s.formRepository(w, r)
	if !ok {
		return
	}
	switch err := op(sess, repo); {
	case errors.Is(err, session.ErrSelectionLimit):
		sess.Notify(session.LevelError, "Selection Limit", err.Error())
	case err != nil && !errors.Is(err, session.ErrAlreadySelected) && !errors.Is(err, session.ErrNotSelected):
		s.serverError(w, err)
		return
	}
	redirectBack(w, r)
}

// formRepository resolves the "id" form field against the session.
func (s *Server) formRepository(w http.ResponseWriter, r *http.Request) (*session.Session, github.Repository, bool) {
	sess, err := s.session(w, r)
	if err != nil {
		s.serverError(w, err)
		return nil, github.Repository{}, false
	}
	id, err := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid repository id", http.StatusBadRequest)
		return nil, github.Repository{}, false
	}
	repo, found := sess.Lookup(id)
	if !found {
		http.Error(w, "Unknown repository", http.StatusNotFound)
		return nil, github.Repository{}, false
	}
	return sess, repo, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

func (s *Server) render(w http.ResponseWriter, data dashboard) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		s.logger.Printf("Error rendering dashboard: %v", err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Printf("Internal error: %v", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

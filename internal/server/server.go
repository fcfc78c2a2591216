// Package server serves the comparison dashboard and its JSON API.
package server

import (
	"context"
	"embed"
	"html/template"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/stahnma/gh-metrics/internal/format"
	"github.com/stahnma/gh-metrics/internal/github"
	"github.com/stahnma/gh-metrics/internal/metrics"
	"github.com/stahnma/gh-metrics/internal/prefs"
	"github.com/stahnma/gh-metrics/internal/session"
)

// SessionCookie names the cookie carrying the session ID.
const SessionCookie = "gh-metrics-session"

//go:embed templates/*.html
var templateFS embed.FS

type seriesView struct {
	Title string
	Rows  []metrics.Row
}

var funcs = template.FuncMap{
	"count": format.Count,
	"ago":   format.Ago,
	"series": func(title string, rows []metrics.Row) seriesView {
		return seriesView{Title: title, Rows: rows}
	},
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	api      github.Fetcher
	sessions *session.Manager
	logger   *log.Logger
	tmpl     *template.Template
}

// New creates a Server. A nil logger discards output.
func New(api github.Fetcher, sessions *session.Manager, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		api:      api,
		sessions: sessions,
		logger:   logger,
		tmpl:     template.Must(template.New("dashboard.html").Funcs(funcs).ParseFS(templateFS, "templates/*.html")),
	}
}

// Routes returns the HTTP handler for every endpoint.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("POST /account", s.handleAccount)
	mux.HandleFunc("POST /select", s.handleSelect)
	mux.HandleFunc("POST /deselect", s.handleDeselect)
	mux.HandleFunc("POST /toggle", s.handleToggle)
	mux.HandleFunc("GET /api/repos", s.handleAPIRepos)
	mux.HandleFunc("GET /api/compare", s.handleAPICompare)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// session returns the caller's session, starting one when the cookie is
// missing or refers to an expired session.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	if ck, err := r.Cookie(SessionCookie); err == nil {
		if sess, ok := s.sessions.Get(ck.Value); ok {
			return sess, nil
		}
	}
	id, sess, err := s.sessions.Create()
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	return sess, nil
}

func (s *Server) credentials(w http.ResponseWriter, r *http.Request) *prefs.CookieStore {
	return prefs.Cookies(w, r, r.TLS != nil)
}

// fetcher binds token to the metrics fetch used by the session.
func (s *Server) fetcher(token string) session.MetricsFetcher {
	return func(ctx context.Context, repo github.Repository) github.RepositoryStats {
		return github.GetRepositoryMetrics(ctx, s.api, token, repo)
	}
}

// redirectBack returns to the dashboard, keeping the filter the form was
// submitted from.
func redirectBack(w http.ResponseWriter, r *http.Request) {
	target := "/"
	if back := r.FormValue("return"); strings.HasPrefix(back, "/") && !strings.HasPrefix(back, "//") {
		if u, err := url.Parse(back); err == nil && u.Path == "/" {
			target = u.RequestURI()
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

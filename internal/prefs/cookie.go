package prefs

import (
	"net/http"
	"time"
)

const cookieLifetime = 365 * 24 * time.Hour

// CookieStore keeps Credentials in browser cookies for the duration of one
// request: Load reads the request, Save and Clear write the response.
type CookieStore struct {
	w      http.ResponseWriter
	r      *http.Request
	secure bool
}

// Cookies returns a CookieStore for one request. secure marks cookies as
// HTTPS-only.
func Cookies(w http.ResponseWriter, r *http.Request, secure bool) *CookieStore {
	return &CookieStore{w: w, r: r, secure: secure}
}

// Load returns the stored credentials; a missing token yields ErrNoCredentials.
func (s *CookieStore) Load() (Credentials, error) {
	var c Credentials
	if ck, err := s.r.Cookie(TokenKey); err == nil {
		c.Token = ck.Value
	}
	if ck, err := s.r.Cookie(UsernameKey); err == nil {
		c.Username = ck.Value
	}
	if c.Token == "" {
		return Credentials{}, ErrNoCredentials
	}
	return c, nil
}

// Save sets both cookies. An empty username clears that cookie.
func (s *CookieStore) Save(c Credentials) error {
	s.set(TokenKey, c.Token)
	s.set(UsernameKey, c.Username)
	return nil
}

// Clear expires both cookies.
func (s *CookieStore) Clear() error {
	s.set(TokenKey, "")
	s.set(UsernameKey, "")
	return nil
}

func (s *CookieStore) set(name, value string) {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
	if value == "" {
		ck.MaxAge = -1
	} else {
		ck.Expires = time.Now().Add(cookieLifetime)
	}
	http.SetCookie(s.w, ck)
}

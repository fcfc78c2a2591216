// Package prefs persists the token and username between runs: in browser
// cookies for the dashboard and in a credentials file for the CLI.
package prefs

import "errors"

const (
	// TokenKey is the storage key of the personal access token.
	TokenKey = "github-metrics-token"

	// UsernameKey is the storage key of the account being browsed.
	UsernameKey = "github-metrics-username"
)

// ErrNoCredentials is returned by Load when nothing is stored.
var ErrNoCredentials = errors.New("no saved credentials")

// Credentials is the persisted state.
type Credentials struct {
	Token    string `toml:"github-metrics-token"`
	Username string `toml:"github-metrics-username"`
}

// Store loads, saves and clears Credentials.
type Store interface {
	Load() (Credentials, error)
	Save(Credentials) error
	Clear() error
}

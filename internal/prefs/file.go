package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileStore keeps Credentials in a TOML file readable only by the owner.
type FileStore struct {
	path string
}

// NewFileStore returns a store at path, or at DefaultPath when empty.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath()
	}
	return &FileStore{path: path}
}

// DefaultPath returns ~/.config/gh-metrics/credentials.toml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gh-metrics", "credentials.toml")
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the file. A missing file or an empty token yields ErrNoCredentials.
func (s *FileStore) Load() (Credentials, error) {
	var c Credentials
	if _, err := toml.DecodeFile(s.path, &c); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Credentials{}, ErrNoCredentials
		}
		return Credentials{}, fmt.Errorf("reading credentials: %w", err)
	}
	if c.Token == "" {
		return Credentials{}, ErrNoCredentials
	}
	return c, nil
}

// Save writes c, creating parent directories as needed. The file is
// written with 0600 permissions.
func (s *FileStore) Save(c Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening credentials file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(c); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}

// Clear removes the file. Clearing an absent file is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credentials: %w", err)
	}
	return nil
}

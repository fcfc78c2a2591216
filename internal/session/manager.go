package session

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultIdleTimeout is how long an unused session is kept.
const DefaultIdleTimeout = 30 * time.Minute

// Manager keeps sessions in memory, keyed by a random ID, and forgets
// them after an idle timeout.
type Manager struct {
	sessions *gocache.Cache
	idle     time.Duration
	logger   *log.Logger
}

// NewManager creates a Manager. A non-positive idle selects DefaultIdleTimeout.
func NewManager(idle time.Duration, logger *log.Logger) *Manager {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	m := &Manager{
		sessions: gocache.New(idle, idle),
		idle:     idle,
		logger:   logger,
	}
	m.sessions.OnEvicted(func(id string, val any) {
		if s, ok := val.(*Session); ok {
			s.Reset()
		}
	})
	return m
}

// Get returns the session with id and extends its lifetime.
func (m *Manager) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	val, found := m.sessions.Get(id)
	if !found {
		return nil, false
	}
	s, ok := val.(*Session)
	if !ok {
		return nil, false
	}
	m.sessions.Set(id, s, gocache.DefaultExpiration)
	return s, true
}

// Create starts a new session and returns its ID.
func (m *Manager) Create() (string, *Session, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, err
	}
	id := hex.EncodeToString(buf)
	s := New(m.logger)
	m.sessions.Set(id, s, gocache.DefaultExpiration)
	return id, s, nil
}

// Delete forgets the session with id and resets it, so requests still
// holding it see an empty session.
func (m *Manager) Delete(id string) {
	m.sessions.Delete(id)
}

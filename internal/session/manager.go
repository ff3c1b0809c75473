package session

import (
	"sync"
	"time"

	"github.com/amirk1998/secure-bank/internal/metrics"
	"github.com/amirk1998/secure-bank/internal/policy"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

// Manager indexes live sessions by token hash.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      policy.Clock
}

// Ended identifies a session the manager dropped.
type Ended struct {
	TokenHash string
	UserID    int
}

func NewManager(now policy.Clock) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{sessions: make(map[string]*Session), now: now}
}

// Create registers a new session. A session already held under the same
// hash is replaced.
func (m *Manager) Create(tokenHash string, userID int, deviceID string) *Session {
	s := newSession(tokenHash, userID, deviceID, m.now)

	m.mu.Lock()
	if old, ok := m.sessions[tokenHash]; ok {
		m.release(old)
	}
	m.sessions[tokenHash] = s
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	return s
}

// Get returns the live session for tokenHash. An idle-expired session is
// dropped and reported as ErrSessionExpired.
func (m *Manager) Get(tokenHash string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[tokenHash]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.ErrUnauthorized
	}

	s.mu.Lock()
	expired := s.expired()
	s.mu.Unlock()

	if expired {
		m.Destroy(tokenHash)
		return nil, errors.ErrSessionExpired
	}
	return s, nil
}

// Destroy drops the session, clearing its counters. It reports whether a
// session was present.
func (m *Manager) Destroy(tokenHash string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[tokenHash]
	if !ok {
		return false
	}
	m.release(s)
	delete(m.sessions, tokenHash)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return true
}

// DestroyUser drops every session owned by userID.
func (m *Manager) DestroyUser(userID int) []Ended {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ended []Ended
	for hash, s := range m.sessions {
		if s.userID == userID {
			m.release(s)
			delete(m.sessions, hash)
			ended = append(ended, Ended{TokenHash: hash, UserID: userID})
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return ended
}

// Sweep drops every idle-expired session and returns them.
func (m *Manager) Sweep() []Ended {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ended []Ended
	for hash, s := range m.sessions {
		s.mu.Lock()
		expired := s.expired()
		s.mu.Unlock()
		if expired {
			delete(m.sessions, hash)
			ended = append(ended, Ended{TokenHash: hash, UserID: s.userID})
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return ended
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// release settles gauges for a session leaving the registry. Caller must hold m.mu.
func (m *Manager) release(s *Session) {
	s.mu.Lock()
	s.refresh()
	if s.breaker.FrozenUntil() != nil {
		metrics.FrozenSessions.Dec()
	}
	s.breaker.Reset()
	s.throttle.Reset()
	s.mu.Unlock()
}

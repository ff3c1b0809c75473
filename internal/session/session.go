// Package session keeps the live state of authenticated sessions: the click
// breaker, the access throttle and the idle timer. State lives only in
// memory; the sessions table is an audit trail, not a store.
package session

import (
	"sync"
	"time"

	"github.com/amirk1998/secure-bank/internal/metrics"
	"github.com/amirk1998/secure-bank/internal/policy"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

// Session is one authenticated tab. Every method locks it, so handlers may
// share a *Session across goroutines.
type Session struct {
	mu sync.Mutex

	tokenHash string
	userID    int
	deviceID  string
	startedAt time.Time

	breaker  *policy.ClickBreaker
	throttle *policy.Throttle
	idle     *policy.IdleTimer

	activeFeature  string
	pendingFeature string

	now policy.Clock
}

// Snapshot is a point-in-time view of a session, safe to serialize.
type Snapshot struct {
	UserID              int            `json:"userId"`
	DeviceID            string         `json:"deviceId"`
	StartedAt           time.Time      `json:"startedAt"`
	ClickCount          int            `json:"clickCount"`
	Frozen              bool           `json:"frozen"`
	FrozenUntil         *time.Time     `json:"frozenUntil,omitempty"`
	FreezeRemaining     string         `json:"freezeRemaining,omitempty"`
	ActiveFeature       string         `json:"activeFeature,omitempty"`
	FeatureAccessCounts map[string]int `json:"featureAccessCounts"`
	IdleRemaining       string         `json:"idleRemaining"`
}

func newSession(tokenHash string, userID int, deviceID string, now policy.Clock) *Session {
	return &Session{
		tokenHash: tokenHash,
		userID:    userID,
		deviceID:  deviceID,
		startedAt: now(),
		breaker:   policy.NewClickBreaker(now),
		throttle:  policy.NewThrottle(),
		idle:      policy.NewIdleTimer(now),
		now:       now,
	}
}

func (s *Session) UserID() int {
	return s.userID
}

func (s *Session) TokenHash() string {
	return s.tokenHash
}

func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// refresh lifts an expired freeze and restarts the idle countdown from the
// instant the freeze ended. Caller must hold s.mu.
func (s *Session) refresh() {
	if restored, at := s.breaker.Refresh(); restored {
		s.idle.RestartAt(at)
		metrics.FrozenSessions.Dec()
	}
}

// expired reports whether the session idled out. Caller must hold s.mu.
func (s *Session) expired() bool {
	s.refresh()
	return s.idle.Expired(s.breaker.Frozen())
}

// CheckFrozen returns a *errors.TimedError while the click breaker holds the session.
func (s *Session) CheckFrozen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh()
	return s.breaker.Check()
}

// RecordInteractions applies a batch of client events in order. Clicks
// feed the breaker; activity events restart the idle timer unless frozen.
// froze is true when this batch tripped the breaker.
func (s *Session) RecordInteractions(events []string) (froze bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range events {
		s.refresh()
		if s.breaker.Frozen() {
			continue
		}
		if policy.ActivityEvents[ev] {
			s.idle.Touch()
		}
		if ev == "click" && s.breaker.Click() {
			froze = true
			metrics.FrozenSessions.Inc()
		}
	}
	return froze
}

// EnterFeature navigates to feature. A refused entry is remembered so that
// re-authentication can activate it.
func (s *Session) EnterFeature(feature string) policy.AccessDecision {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.idle.Touch()
	decision := s.throttle.Enter(feature)
	if decision == policy.AccessAllowed {
		s.activeFeature = feature
		s.pendingFeature = ""
	} else {
		s.pendingFeature = feature
	}
	return decision
}

// Reauthenticated restarts the gated counter at one and activates the
// feature whose entry was refused. It returns the activated feature.
func (s *Session) Reauthenticated() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	feature := s.pendingFeature
	if feature == "" {
		feature = policy.GatedFeature
	}
	s.throttle.Reauthenticated(feature)
	s.activeFeature = feature
	s.pendingFeature = ""
	s.idle.Touch()
	return feature
}

// RequireFeature returns ErrFeatureNotActive unless feature is the active one.
func (s *Session) RequireFeature(feature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeFeature != feature {
		return errors.NewAppError(errors.ErrFeatureNotActive, feature+" is not open in this session", 409)
	}
	return nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh()
	snap := Snapshot{
		UserID:              s.userID,
		DeviceID:            s.deviceID,
		StartedAt:           s.startedAt,
		ClickCount:          s.breaker.Count(),
		ActiveFeature:       s.activeFeature,
		FeatureAccessCounts: s.throttle.Counts(),
		IdleRemaining:       errors.FormatCountdown(s.idle.Remaining()),
	}
	if until := s.breaker.FrozenUntil(); until != nil {
		snap.Frozen = true
		snap.FrozenUntil = until
		snap.FreezeRemaining = errors.FormatCountdown(until.Sub(s.now()))
		snap.IdleRemaining = errors.FormatCountdown(policy.IdleTimeout)
	}
	return snap
}

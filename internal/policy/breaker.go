package policy

import (
	"time"

	"github.com/amirk1998/secure-bank/pkg/errors"
)

const (
	ClickLimit     = 15
	FreezeDuration = 15 * time.Minute
	IdleTimeout    = 5 * time.Minute
)

// ActivityEvents are the interaction types that keep a session alive.
var ActivityEvents = map[string]bool{
	"mousemove":  true,
	"keydown":    true,
	"click":      true,
	"scroll":     true,
	"touchstart": true,
}

// ClickBreaker freezes a session once it sees more than ClickLimit clicks.
// Clicks arriving while frozen are ignored.
type ClickBreaker struct {
	count       int
	frozenUntil *time.Time
	now         Clock
}

var _ RateLimitedAction = (*ClickBreaker)(nil)

func NewClickBreaker(now Clock) *ClickBreaker {
	return &ClickBreaker{now: systemClock(now)}
}

func (b *ClickBreaker) Name() string   { return "click_breaker" }
func (b *ClickBreaker) Threshold() int { return ClickLimit }
func (b *ClickBreaker) Count() int     { return b.count }

func (b *ClickBreaker) Reset() {
	b.count = 0
	b.frozenUntil = nil
}

// Refresh lifts an expired freeze. restored is true on the call that lifts
// it, and at is the instant the freeze ended.
func (b *ClickBreaker) Refresh() (restored bool, at time.Time) {
	if b.frozenUntil == nil {
		return false, time.Time{}
	}
	if b.now().Before(*b.frozenUntil) {
		return false, time.Time{}
	}
	at = *b.frozenUntil
	b.Reset()
	return true, at
}

// Click counts one click and reports whether it froze the session.
func (b *ClickBreaker) Click() (froze bool) {
	b.Refresh()
	if b.frozenUntil != nil {
		return false
	}

	b.count++
	if b.count > ClickLimit {
		until := b.now().Add(FreezeDuration)
		b.frozenUntil = &until
		return true
	}
	return false
}

// Frozen reports whether a freeze is in force.
func (b *ClickBreaker) Frozen() bool {
	b.Refresh()
	return b.frozenUntil != nil
}

// FrozenUntil returns the end of the current freeze, if any.
func (b *ClickBreaker) FrozenUntil() *time.Time {
	b.Refresh()
	if b.frozenUntil == nil {
		return nil
	}
	t := *b.frozenUntil
	return &t
}

// Check returns a *errors.TimedError while frozen.
func (b *ClickBreaker) Check() error {
	until := b.FrozenUntil()
	if until == nil {
		return nil
	}
	return &errors.TimedError{
		Err:     errors.ErrSessionFrozen,
		Message: "Due to unusual activity, your session is frozen.",
		Until:   *until,
		Now:     b.now(),
	}
}

// IdleTimer expires a session after IdleTimeout without activity.
type IdleTimer struct {
	last    time.Time
	timeout time.Duration
	now     Clock
}

func NewIdleTimer(now Clock) *IdleTimer {
	now = systemClock(now)
	return &IdleTimer{last: now(), timeout: IdleTimeout, now: now}
}

// Touch records activity now.
func (i *IdleTimer) Touch() {
	i.last = i.now()
}

// RestartAt restarts the countdown from t.
func (i *IdleTimer) RestartAt(t time.Time) {
	i.last = t
}

// LastActivity returns when the timer was last reset.
func (i *IdleTimer) LastActivity() time.Time {
	return i.last
}

// Expired reports whether the session idled out. A frozen session never does.
func (i *IdleTimer) Expired(frozen bool) bool {
	if frozen {
		return false
	}
	return !i.now().Before(i.last.Add(i.timeout))
}

// Remaining is the time left before the session idles out.
func (i *IdleTimer) Remaining() time.Duration {
	d := i.last.Add(i.timeout).Sub(i.now())
	if d < 0 {
		return 0
	}
	return d
}

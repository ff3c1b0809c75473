package policy

import (
	"fmt"
	"time"

	"github.com/amirk1998/secure-bank/pkg/errors"
)

const (
	MaxFailedLogins = 7
	LockoutDuration = 5 * time.Minute
)

// LockoutState is the per-account portion of the lockout machine that is persisted.
type LockoutState struct {
	FailedAttempts int
	Until          *time.Time
}

// Lockout guards primary-credential login for one account.
type Lockout struct {
	state *LockoutState
	now   Clock
}

var _ RateLimitedAction = (*Lockout)(nil)

func NewLockout(state *LockoutState, now Clock) *Lockout {
	return &Lockout{state: state, now: systemClock(now)}
}

func (l *Lockout) Name() string   { return "account_lockout" }
func (l *Lockout) Threshold() int { return MaxFailedLogins }
func (l *Lockout) Count() int     { return l.state.FailedAttempts }

// Reset clears the counter and any lock.
func (l *Lockout) Reset() {
	l.state.FailedAttempts = 0
	l.state.Until = nil
}

// Admit must be called before the credential is checked. A live lock is
// returned as a *errors.TimedError and does not consume an attempt. An
// expired lock is cleared, and cleared reports that the state changed.
func (l *Lockout) Admit() (cleared bool, err error) {
	if l.state.Until == nil {
		return false, nil
	}

	now := l.now()
	if now.Before(*l.state.Until) {
		te := &errors.TimedError{Err: errors.ErrAccountLocked, Until: *l.state.Until, Now: now}
		te.Message = fmt.Sprintf("Too many failed attempts. Please try again in %d minute(s).", te.RemainingMinutes())
		return false, te
	}

	l.Reset()
	return true, nil
}

// RecordFailure counts one wrong credential in memory and reports the
// outcome as Failure does.
func (l *Lockout) RecordFailure() error {
	l.state.FailedAttempts++
	if l.state.FailedAttempts >= MaxFailedLogins && l.state.Until == nil {
		until := l.now().Add(LockoutDuration)
		l.state.Until = &until
	}
	return l.Failure()
}

// Failure describes a failure already counted in the state, for example by
// an atomic store update. It returns a locked error once the threshold is
// reached, otherwise a credentials error that tells the user how many
// attempts remain.
func (l *Lockout) Failure() error {
	if l.state.FailedAttempts >= MaxFailedLogins && l.state.Until != nil {
		return &errors.TimedError{
			Err:     errors.ErrAccountLocked,
			Message: fmt.Sprintf("Too many failed attempts. Your account has been locked for %d minutes.", int(LockoutDuration.Minutes())),
			Until:   *l.state.Until,
			Now:     l.now(),
		}
	}

	return errors.NewAppError(
		errors.ErrInvalidCredentials,
		fmt.Sprintf("Invalid email or password. You have %d attempt(s) remaining.", l.Remaining()),
		401,
	)
}

// RecordSuccess resets the machine after a correct credential.
func (l *Lockout) RecordSuccess() {
	l.Reset()
}

// Remaining is the number of failures left before the account locks.
func (l *Lockout) Remaining() int {
	if r := MaxFailedLogins - l.state.FailedAttempts; r > 0 {
		return r
	}
	return 0
}

// Locked reports whether a lock is in force right now.
func (l *Lockout) Locked() bool {
	return l.state.Until != nil && l.now().Before(*l.state.Until)
}

package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimedError_Remaining(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	err := &TimedError{Err: ErrAccountLocked, Until: now.Add(4*time.Minute + time.Second), Now: now}

	assert.Equal(t, 5, err.RemainingMinutes())
	assert.Equal(t, "04:01", err.Countdown())

	wrapped := fmt.Errorf("login: %w", err)
	assert.True(t, Is(wrapped, ErrAccountLocked))

	var te *TimedError
	assert.True(t, As(wrapped, &te))
}

func TestTimedError_PastUntil(t *testing.T) {
	now := time.Now()
	err := &TimedError{Err: ErrSessionFrozen, Until: now.Add(-time.Second), Now: now}
	assert.Equal(t, time.Duration(0), err.Remaining())
	assert.Equal(t, "00:00", err.Countdown())
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "15:00", FormatCountdown(15*time.Minute))
	assert.Equal(t, "00:59", FormatCountdown(59*time.Second+900*time.Millisecond))
}

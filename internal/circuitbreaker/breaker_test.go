package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := New(3, time.Minute).WithClock(func() time.Time { return now })

	for i := 0; i < 2; i++ {
		b.RecordFailure("risk")
		assert.True(t, b.Allow("risk"))
	}
	b.RecordFailure("risk")
	assert.Equal(t, StateOpen, b.State("risk"))
	assert.False(t, b.Allow("risk"))
	assert.True(t, b.Allow("voice"), "keys are independent")
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := New(1, time.Minute).WithClock(func() time.Time { return now })

	b.RecordFailure("risk")
	assert.False(t, b.Allow("risk"))

	now = now.Add(time.Minute)
	assert.True(t, b.Allow("risk"))
	assert.Equal(t, StateHalfOpen, b.State("risk"))
	assert.False(t, b.Allow("risk"), "only one trial call at a time")

	b.RecordSuccess("risk")
	assert.Equal(t, StateClosed, b.State("risk"))
	assert.True(t, b.Allow("risk"))
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := New(1, time.Minute).WithClock(func() time.Time { return now })

	b.RecordFailure("chat")
	now = now.Add(time.Minute)
	assert.True(t, b.Allow("chat"))
	b.RecordFailure("chat")
	assert.Equal(t, StateOpen, b.State("chat"))
	assert.False(t, b.Allow("chat"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}

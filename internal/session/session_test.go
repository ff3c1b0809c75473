package session

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirk1998/secure-bank/internal/metrics"
	"github.com/amirk1998/secure-bank/internal/policy"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager() (*Manager, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewManager(clock.Now), clock
}

func clicks(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "click"
	}
	return out
}

func TestManager_GetUnknown(t *testing.T) {
	m, _ := newTestManager()
	_, err := m.Get("missing")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestSession_FreezeOnSixteenthClick(t *testing.T) {
	m, clock := newTestManager()
	s := m.Create("tok", 1, "dev")

	assert.False(t, s.RecordInteractions(clicks(15)))
	require.NoError(t, s.CheckFrozen())

	assert.True(t, s.RecordInteractions(clicks(1)))

	err := s.CheckFrozen()
	var te *errors.TimedError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "15:00", te.Countdown())

	clock.Advance(time.Minute)
	snap := s.Snapshot()
	assert.True(t, snap.Frozen)
	assert.Equal(t, "14:00", snap.FreezeRemaining)
}

func TestSession_FrozenIgnoresClicksAndDoesNotIdleOut(t *testing.T) {
	m, clock := newTestManager()
	s := m.Create("tok", 1, "dev")
	s.RecordInteractions(clicks(16))

	clock.Advance(10 * time.Minute)
	s.RecordInteractions(clicks(50))
	_, err := m.Get("tok")
	require.NoError(t, err)
	assert.Equal(t, 16, s.Snapshot().ClickCount)
}

func TestSession_FreezeExpiryRestoresAndRestartsIdle(t *testing.T) {
	m, clock := newTestManager()
	s := m.Create("tok", 1, "dev")
	s.RecordInteractions(clicks(16))

	clock.Advance(policy.FreezeDuration + 4*time.Minute)
	_, err := m.Get("tok")
	require.NoError(t, err, "idle countdown starts at the end of the freeze")

	snap := s.Snapshot()
	assert.False(t, snap.Frozen)
	assert.Equal(t, 0, snap.ClickCount)

	clock.Advance(time.Minute)
	_, err = m.Get("tok")
	assert.ErrorIs(t, err, errors.ErrSessionExpired)
}

func TestSession_IdleTimeout(t *testing.T) {
	m, clock := newTestManager()
	s := m.Create("tok", 1, "dev")

	clock.Advance(4 * time.Minute)
	s.RecordInteractions([]string{"scroll"})
	clock.Advance(4 * time.Minute)
	_, err := m.Get("tok")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = m.Get("tok")
	assert.ErrorIs(t, err, errors.ErrSessionExpired)
	assert.Equal(t, 0, m.Count())
}

func TestSession_UnknownEventsDoNotTouchIdle(t *testing.T) {
	m, clock := newTestManager()
	s := m.Create("tok", 1, "dev")

	clock.Advance(4 * time.Minute)
	s.RecordInteractions([]string{"focus", "resize"})
	clock.Advance(time.Minute)
	_, err := m.Get("tok")
	assert.ErrorIs(t, err, errors.ErrSessionExpired)
}

func TestSession_ThrottleAndReauth(t *testing.T) {
	m, _ := newTestManager()
	s := m.Create("tok", 1, "dev")

	for i := 0; i < policy.AccessLimit; i++ {
		assert.Equal(t, policy.AccessAllowed, s.EnterFeature(policy.GatedFeature))
	}
	assert.Equal(t, policy.AccessRequireReauth, s.EnterFeature(policy.GatedFeature))
	assert.ErrorIs(t, s.RequireFeature("Beneficiaries"), errors.ErrFeatureNotActive)

	assert.Equal(t, policy.GatedFeature, s.Reauthenticated())
	require.NoError(t, s.RequireFeature(policy.GatedFeature))
	assert.Equal(t, 1, s.Snapshot().FeatureAccessCounts[policy.GatedFeature])

	assert.Equal(t, policy.AccessAllowed, s.EnterFeature(policy.HomeFeature))
	_, counted := s.Snapshot().FeatureAccessCounts[policy.GatedFeature]
	assert.False(t, counted)
}

func TestManager_SweepAndDestroy(t *testing.T) {
	m, clock := newTestManager()
	m.Create("a", 1, "dev")
	m.Create("b", 2, "dev")
	m.Create("c", 1, "dev2")

	assert.True(t, m.Destroy("b"))
	assert.False(t, m.Destroy("b"))

	ended := m.DestroyUser(1)
	assert.Len(t, ended, 2)
	assert.Equal(t, 0, m.Count())

	m.Create("d", 3, "dev")
	clock.Advance(policy.IdleTimeout)
	swept := m.Sweep()
	require.Len(t, swept, 1)
	assert.Equal(t, 3, swept[0].UserID)
}

func TestManager_DestroySettlesFrozenGauge(t *testing.T) {
	m, clock := newTestManager()
	before := testutil.ToFloat64(metrics.FrozenSessions)

	frozen := m.Create("held", 1, "dev")
	frozen.RecordInteractions(clicks(16))
	lapsed := m.Create("lapsed", 2, "dev")
	lapsed.RecordInteractions(clicks(16))
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.FrozenSessions))

	assert.True(t, m.Destroy("held"))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.FrozenSessions))

	// The freeze lapses with nothing touching the session before it is destroyed.
	clock.Advance(policy.FreezeDuration + time.Second)
	assert.True(t, m.Destroy("lapsed"))
	assert.Equal(t, before, testutil.ToFloat64(metrics.FrozenSessions))
}

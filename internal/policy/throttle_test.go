package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThrottle_FourthEntryRequiresReauth(t *testing.T) {
	th := NewThrottle()

	for i := 1; i <= 3; i++ {
		assert.Equal(t, AccessAllowed, th.Enter(GatedFeature), "entry %d", i)
	}
	assert.Equal(t, AccessRequireReauth, th.Enter(GatedFeature))
	assert.Equal(t, 3, th.Count(), "the crossing entry is not stored")
	assert.Equal(t, AccessRequireReauth, th.Enter(GatedFeature))
}

func TestThrottle_ReauthResetsToOne(t *testing.T) {
	th := NewThrottle()
	for i := 0; i < 3; i++ {
		th.Enter(GatedFeature)
	}
	assert.Equal(t, AccessRequireReauth, th.Enter(GatedFeature))

	th.Reauthenticated(GatedFeature)
	assert.Equal(t, 1, th.Count())

	assert.Equal(t, AccessAllowed, th.Enter(GatedFeature))
	assert.Equal(t, AccessAllowed, th.Enter(GatedFeature))
	assert.Equal(t, AccessRequireReauth, th.Enter(GatedFeature))
}

func TestThrottle_HomeClearsCounter(t *testing.T) {
	th := NewThrottle()
	th.Enter(GatedFeature)
	th.Enter(GatedFeature)
	th.Enter(HomeFeature)
	assert.Equal(t, 0, th.Count())
	_, present := th.Counts()[GatedFeature]
	assert.False(t, present)
}

func TestThrottle_OtherFeaturesUncounted(t *testing.T) {
	th := NewThrottle()
	for i := 0; i < 10; i++ {
		assert.Equal(t, AccessAllowed, th.Enter("Fixed Deposits"))
	}
	assert.Equal(t, 0, th.Count())
	th.Reauthenticated("Fixed Deposits")
	assert.Empty(t, th.Counts())
}

package policy

const (
	// GatedFeature is the only feature whose entries are counted.
	GatedFeature = "Pay and Transfer"
	// HomeFeature clears the gated counter when entered.
	HomeFeature = "Dashboard"
	AccessLimit = 3
)

type AccessDecision string

const (
	AccessAllowed       AccessDecision = "Allowed"
	AccessRequireReauth AccessDecision = "RequireReauth"
)

// Throttle counts entries into the gated feature within one session.
// It is not safe for concurrent use; the owning session serializes access.
type Throttle struct {
	feature string
	limit   int
	counts  map[string]int
}

var _ RateLimitedAction = (*Throttle)(nil)

func NewThrottle() *Throttle {
	return &Throttle{
		feature: GatedFeature,
		limit:   AccessLimit,
		counts:  make(map[string]int),
	}
}

func (t *Throttle) Name() string   { return "access_throttle" }
func (t *Throttle) Threshold() int { return t.limit }
func (t *Throttle) Count() int     { return t.counts[t.feature] }

// Reset drops the gated counter entirely.
func (t *Throttle) Reset() {
	delete(t.counts, t.feature)
}

// Enter records navigation to feature. The entry that would exceed the
// limit is not stored; the next attempt has to cross it again.
func (t *Throttle) Enter(feature string) AccessDecision {
	if feature == HomeFeature {
		t.Reset()
		return AccessAllowed
	}
	if feature != t.feature {
		return AccessAllowed
	}

	next := t.counts[feature] + 1
	if next > t.limit {
		return AccessRequireReauth
	}
	t.counts[feature] = next
	return AccessAllowed
}

// Reauthenticated restarts the count at one, standing for the entry the
// re-authentication just granted.
func (t *Throttle) Reauthenticated(feature string) {
	if feature == t.feature {
		t.counts[feature] = 1
	}
}

// Counts returns a copy of the per-feature counters.
func (t *Throttle) Counts() map[string]int {
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

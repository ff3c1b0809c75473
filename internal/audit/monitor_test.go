package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuerier struct {
	events  []*Event
	filters QueryFilters
}

func (s *stubQuerier) QueryLogs(_ context.Context, f QueryFilters) ([]*Event, error) {
	s.filters = f
	return s.events, nil
}

type captureRecorder struct {
	events []*Event
}

func (c *captureRecorder) Log(e *Event) error {
	c.events = append(c.events, e)
	return nil
}

func failed(userID int) *Event {
	return &Event{Action: ActionLogin, UserID: User(userID), Success: false}
}

func TestMonitor_FlagsOncePerAccount(t *testing.T) {
	q := &stubQuerier{}
	for i := 0; i < 6; i++ {
		q.events = append(q.events, failed(7))
	}
	q.events = append(q.events, failed(8), failed(8), &Event{Action: ActionLogin, UserID: User(8), Success: true})

	rec := &captureRecorder{}
	m := NewMonitor(q, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))
	fixed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	flagged, err := m.DetectFailedLogins(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []int{7}, flagged)
	require.Len(t, rec.events, 1)
	assert.Equal(t, LevelCritical, rec.events[0].Level)
	assert.Equal(t, ActionFailedLoginThreshold, rec.events[0].Action)
	assert.Equal(t, "6 failed attempts detected", rec.events[0].ErrorMsg)

	assert.Equal(t, fixed.Add(-5*time.Minute), *q.filters.StartTime)
	assert.Contains(t, q.filters.Actions, ActionLogin)
}

func TestMeta(t *testing.T) {
	assert.Equal(t, `{"tier":"High"}`, Meta(map[string]any{"tier": "High"}))
	assert.Equal(t, "", Meta(nil))
}

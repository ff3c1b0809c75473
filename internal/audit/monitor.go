package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	failedLoginWindow    = 5 * time.Minute
	failedLoginThreshold = 5
)

// EventQuerier reads back audit events.
type EventQuerier interface {
	QueryLogs(ctx context.Context, filters QueryFilters) ([]*Event, error)
}

type Monitor struct {
	querier  EventQuerier
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewMonitor creates a new security monitor
func NewMonitor(querier EventQuerier, recorder Recorder, logger *slog.Logger) *Monitor {
	return &Monitor{
		querier:  querier,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// DetectFailedLogins raises one CRITICAL event per account that collected
// failedLoginThreshold or more failed password logins in the window.
func (m *Monitor) DetectFailedLogins(ctx context.Context) (flagged []int, err error) {
	now := m.now().UTC()
	since := now.Add(-failedLoginWindow)

	logs, err := m.querier.QueryLogs(ctx, QueryFilters{
		StartTime: &since,
		EndTime:   &now,
		Actions:   []string{ActionLogin, ActionAccountLocked},
		Limit:     1000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}

	failures := make(map[int]int)
	var order []int
	for _, event := range logs {
		if event.Success || event.UserID == nil {
			continue
		}
		if failures[*event.UserID] == 0 {
			order = append(order, *event.UserID)
		}
		failures[*event.UserID]++
	}

	for _, userID := range order {
		count := failures[userID]
		if count < failedLoginThreshold {
			continue
		}

		m.logger.Warn("security alert: repeated failed logins",
			"user_id", userID, "count", count, "window", failedLoginWindow)

		if err := m.recorder.Log(&Event{
			Level:    LevelCritical,
			UserID:   User(userID),
			Action:   ActionFailedLoginThreshold,
			Resource: "authentication",
			Success:  false,
			ErrorMsg: fmt.Sprintf("%d failed attempts detected", count),
		}); err != nil {
			m.logger.Error("failed to record security alert", "user_id", userID, "error", err)
		}
		flagged = append(flagged, userID)
	}

	return flagged, nil
}

// DetectSuspiciousActivity runs all security checks
func (m *Monitor) DetectSuspiciousActivity(ctx context.Context) error {
	if _, err := m.DetectFailedLogins(ctx); err != nil {
		m.logger.Error("failed to detect failed logins", "error", err)
		return err
	}
	return nil
}

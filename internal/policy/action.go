// Package policy holds the counting gates that protect accounts and
// sessions, plus the fixed-deposit arithmetic and withdrawal decision table.
//
// Each gate is its own state machine. They share the RateLimitedAction
// shape but never state: thresholds, scopes and durations all differ.
package policy

import "time"

// Clock returns the current time. Tests inject a fixed one.
type Clock func() time.Time

// RateLimitedAction is a counter compared against a threshold, with a
// consequence once crossed and a trigger that resets it.
type RateLimitedAction interface {
	Name() string
	Threshold() int
	Count() int
	Reset()
}

func systemClock(now Clock) Clock {
	if now == nil {
		return time.Now
	}
	return now
}

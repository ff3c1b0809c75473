package policy

import "time"

var (
	// SeniorCutoff: holders born before this date go to document review.
	SeniorCutoff = time.Date(1965, time.January, 1, 0, 0, 0, 0, time.UTC)
	// MinorCutoff: holders born on or after this date trigger a freeze.
	MinorCutoff = time.Date(2008, time.January, 1, 0, 0, 0, 0, time.UTC)
)

type WithdrawalRoute string

const (
	RouteBlocked     WithdrawalRoute = "Blocked"
	RouteUnderReview WithdrawalRoute = "UnderReview"
	RouteFreeze      WithdrawalRoute = "Freeze"
	RouteProceed     WithdrawalRoute = "Proceed"
)

// RouteWithdrawal evaluates the premature withdrawal decision table in order.
func RouteWithdrawal(birthDate time.Time, accountFrozen bool) WithdrawalRoute {
	dob := dateOnly(birthDate)
	switch {
	case accountFrozen:
		return RouteBlocked
	case dob.Before(SeniorCutoff):
		return RouteUnderReview
	case !dob.Before(MinorCutoff):
		return RouteFreeze
	default:
		return RouteProceed
	}
}

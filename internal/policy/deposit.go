package policy

import (
	"fmt"
	"math"
	"time"

	"github.com/amirk1998/secure-bank/pkg/errors"
)

const (
	MinDepositPrincipal = 10000.0
	MinDepositMonths    = 3
	MaxDepositMonths    = 120

	baseRate         = 4.5
	rateStepPerYear  = 0.25
	maxRate          = 7.5
	prematureDayRate = 0.0001
)

// AnnualRate returns the quoted rate in percent for a term in months.
func AnnualRate(durationMonths int) float64 {
	return math.Min(baseRate+(float64(durationMonths)/12)*rateStepPerYear, maxRate)
}

// MaturityAmount applies simple interest over the term.
func MaturityAmount(principal, annualRate float64, durationMonths int) float64 {
	return RoundMoney(principal + principal*(annualRate/100)*(float64(durationMonths)/12))
}

// PrematureReturn is principal plus 0.01% per whole day held.
func PrematureReturn(principal float64, days int) float64 {
	if days < 0 {
		days = 0
	}
	return RoundMoney(principal + principal*float64(days)*prematureDayRate)
}

// DaysElapsed counts calendar days from created to now, never negative.
func DaysElapsed(created, now time.Time) int {
	c := dateOnly(created)
	n := dateOnly(now)
	days := int(n.Sub(c).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// ValidateDeposit checks the principal and term against the bounds and the
// current savings balance.
func ValidateDeposit(principal float64, durationMonths int, savingsBalance float64) error {
	if math.IsNaN(principal) || principal < MinDepositPrincipal {
		return errors.NewAppError(errors.ErrInvalidAmount,
			fmt.Sprintf("minimum deposit amount is %.0f", MinDepositPrincipal), 400)
	}
	if durationMonths < MinDepositMonths || durationMonths > MaxDepositMonths {
		return errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("duration must be between %d and %d months", MinDepositMonths, MaxDepositMonths), 400)
	}
	if principal > savingsBalance {
		return errors.NewAppError(errors.ErrInsufficientFunds, "amount cannot exceed your savings balance", 400)
	}
	return nil
}

// RoundMoney rounds to two decimal places.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

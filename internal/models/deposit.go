package models

import "time"

type DepositStatus string

const (
	DepositActive DepositStatus = "Active"
	DepositFrozen DepositStatus = "Frozen"
)

type FixedDeposit struct {
	ID             string        `json:"id"`
	UserID         int           `json:"-"`
	Principal      float64       `json:"principal"`
	InterestRate   float64       `json:"interestRate"`
	DurationMonths int           `json:"durationMonths"`
	CreatedAt      time.Time     `json:"creationDate"`
	MaturityDate   time.Time     `json:"maturityDate"`
	MaturityAmount float64       `json:"maturityAmount"`
	Status         DepositStatus `json:"status"`
}

type CreateDepositRequest struct {
	Principal      float64 `json:"principal"`
	DurationMonths int     `json:"durationMonths"`
}

// WithdrawalOutcome is the single result of a premature withdrawal attempt.
type WithdrawalOutcome string

const (
	WithdrawalBlocked     WithdrawalOutcome = "Blocked"
	WithdrawalUnderReview WithdrawalOutcome = "UnderReview"
	WithdrawalFrozen      WithdrawalOutcome = "Frozen"
	WithdrawalProceed     WithdrawalOutcome = "Proceed"
)

type WithdrawalDecision struct {
	Outcome WithdrawalOutcome `json:"outcome"`
	Message string            `json:"message"`

	// Amount is set only when Outcome is Proceed.
	Amount      float64 `json:"amount,omitempty"`
	DaysElapsed int     `json:"daysElapsed,omitempty"`
}

type WithdrawalReviewRequest struct {
	Reason       string `json:"reason"`
	DocumentName string `json:"documentName"`
	DocumentSize int64  `json:"documentSize"`
}

type WithdrawalConfirmation struct {
	DepositID      string  `json:"depositId"`
	AmountCredited float64 `json:"amountCredited"`
	SavingsBalance float64 `json:"savingsBalance"`
}

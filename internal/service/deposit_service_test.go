package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

type depositEnv struct {
	svc      *DepositService
	users    *fakeUsers
	deposits *fakeDeposits
	audit    *fakeRecorder
	clock    *fakeClock
	userID   int
}

func newDepositEnv(t *testing.T, dob time.Time) *depositEnv {
	t.Helper()
	users := newFakeUsers()
	user := &models.User{
		Email:          "asha@example.com",
		DateOfBirth:    dob,
		SavingsBalance: models.DefaultSavingsBalance,
	}
	require.NoError(t, users.Create(context.Background(), user))

	deposits := newFakeDeposits()
	recorder := &fakeRecorder{}
	clock := newClock()
	svc := NewDepositService(deposits, &fakeLedger{users: users, deposits: deposits}, recorder, discardLogger())
	svc.now = clock.Now

	return &depositEnv{svc: svc, users: users, deposits: deposits, audit: recorder, clock: clock, userID: user.ID}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateDeposit_DebitsSavings(t *testing.T) {
	env := newDepositEnv(t, date(1990, 5, 1))

	fd, err := env.svc.Create(context.Background(), env.userID, &models.CreateDepositRequest{Principal: 10000, DurationMonths: 12})
	require.NoError(t, err)
	assert.Regexp(t, `^FD-[0-9A-F]{8}$`, fd.ID)
	assert.Equal(t, 4.75, fd.InterestRate)
	assert.Equal(t, 10475.0, fd.MaturityAmount)
	assert.Equal(t, env.clock.Now().AddDate(1, 0, 0), fd.MaturityDate)
	assert.Equal(t, 113456.78, env.users.get(env.userID).SavingsBalance)
}

func TestCreateDeposit_Rejections(t *testing.T) {
	env := newDepositEnv(t, date(1990, 5, 1))
	ctx := context.Background()

	_, err := env.svc.Create(ctx, env.userID, &models.CreateDepositRequest{Principal: 9999, DurationMonths: 12})
	assert.ErrorIs(t, err, errors.ErrInvalidAmount)

	_, err = env.svc.Create(ctx, env.userID, &models.CreateDepositRequest{Principal: 10000, DurationMonths: 121})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = env.svc.Create(ctx, env.userID, &models.CreateDepositRequest{Principal: 200000, DurationMonths: 12})
	assert.ErrorIs(t, err, errors.ErrInsufficientFunds)

	require.NoError(t, env.users.SetFrozen(ctx, env.userID, true))
	_, err = env.svc.Create(ctx, env.userID, &models.CreateDepositRequest{Principal: 10000, DurationMonths: 12})
	assert.ErrorIs(t, err, errors.ErrAccountFrozen)
	assert.Equal(t, models.DefaultSavingsBalance, env.users.get(env.userID).SavingsBalance)
}

func TestWithdrawal_Routes(t *testing.T) {
	tests := []struct {
		name    string
		dob     time.Time
		frozen  bool
		outcome models.WithdrawalOutcome
	}{
		{"senior goes to review", date(1964, 12, 31), false, models.WithdrawalUnderReview},
		{"senior cutoff proceeds", date(1965, 1, 1), false, models.WithdrawalProceed},
		{"below minor cutoff proceeds", date(2007, 12, 31), false, models.WithdrawalProceed},
		{"minor cutoff freezes", date(2008, 1, 1), false, models.WithdrawalFrozen},
		{"frozen account is blocked", date(1990, 1, 1), true, models.WithdrawalBlocked},
		{"frozen senior is blocked", date(1950, 1, 1), true, models.WithdrawalBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newDepositEnv(t, tt.dob)
			ctx := context.Background()
			fd, err := env.svc.Create(ctx, env.userID, &models.CreateDepositRequest{Principal: 20000, DurationMonths: 24})
			require.NoError(t, err)
			require.NoError(t, env.users.SetFrozen(ctx, env.userID, tt.frozen))

			decision, err := env.svc.AttemptWithdrawal(ctx, env.users.get(env.userID), fd.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, decision.Outcome)

			// The deposit is never removed by an attempt.
			_, err = env.deposits.GetByID(ctx, env.userID, fd.ID)
			assert.NoError(t, err)
		})
	}
}

func TestWithdrawal_FreezeFreezesEveryDeposit(t *testing.T) {
	env := newDepositEnv(t, date(2009, 6, 15))
	ctx := context.Background()

	first, err := env.svc.Create(ctx, env.userID, &models.CreateDepositRequest{Principal: 10000, DurationMonths: 6})
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, env.userID, &models.CreateDepositRequest{Principal: 15000, DurationMonths: 36})
	require.NoError(t, err)

	user := env.users.get(env.userID)
	decision, err := env.svc.AttemptWithdrawal(ctx, user, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalFrozen, decision.Outcome)
	assert.True(t, user.IsFrozen)
	assert.True(t, env.users.get(env.userID).IsFrozen)

	list, err := env.svc.List(ctx, env.userID)
	require.NoError(t, err)
	for _, fd := range list {
		assert.Equal(t, models.DepositFrozen, fd.Status)
	}
	assert.Contains(t, env.audit.actions(), "ACCOUNT_FROZEN")

	again, err := env.svc.AttemptWithdrawal(ctx, env.users.get(env.userID), first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalBlocked, again.Outcome)
}

func TestWithdrawal_ProceedAndConfirm(t *testing.T) {
	env := newDepositEnv(t, date(1990, 5, 1))
	ctx := context.Background()

	fd, err := env.svc.Create(ctx, env.userID, &models.CreateDepositRequest{Principal: 10000, DurationMonths: 12})
	require.NoError(t, err)
	env.clock.Advance(100 * 24 * time.Hour)

	decision, err := env.svc.AttemptWithdrawal(ctx, env.users.get(env.userID), fd.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalProceed, decision.Outcome)
	assert.Equal(t, 100, decision.DaysElapsed)
	assert.Equal(t, 10100.0, decision.Amount)

	conf, err := env.svc.ConfirmWithdrawal(ctx, env.userID, fd.ID)
	require.NoError(t, err)
	assert.Equal(t, 10100.0, conf.AmountCredited)
	assert.Equal(t, 123556.78, conf.SavingsBalance)

	_, err = env.deposits.GetByID(ctx, env.userID, fd.ID)
	assert.ErrorIs(t, err, errors.ErrRecordNotFound)

	_, err = env.svc.ConfirmWithdrawal(ctx, env.userID, fd.ID)
	assert.ErrorIs(t, err, errors.ErrRecordNotFound)
}

func TestConfirmWithdrawal_OnlyOnProceedRoute(t *testing.T) {
	env := newDepositEnv(t, date(1960, 1, 1))
	ctx := context.Background()

	fd, err := env.svc.Create(ctx, env.userID, &models.CreateDepositRequest{Principal: 10000, DurationMonths: 12})
	require.NoError(t, err)

	_, err = env.svc.ConfirmWithdrawal(ctx, env.userID, fd.ID)
	assert.ErrorIs(t, err, errors.ErrWithdrawalPending)
}

func TestSubmitReview(t *testing.T) {
	env := newDepositEnv(t, date(1960, 1, 1))
	ctx := context.Background()
	fd, err := env.svc.Create(ctx, env.userID, &models.CreateDepositRequest{Principal: 10000, DurationMonths: 12})
	require.NoError(t, err)
	user := env.users.get(env.userID)

	_, err = env.svc.SubmitReview(ctx, user, fd.ID, &models.WithdrawalReviewRequest{Reason: "medical"})
	assert.Equal(t, "Please provide a reason and upload a proof document.", appMessage(t, err))

	msg, err := env.svc.SubmitReview(ctx, user, fd.ID, &models.WithdrawalReviewRequest{
		Reason:       "medical expenses",
		DocumentName: "bill.pdf",
		DocumentSize: 2048,
	})
	require.NoError(t, err)
	assert.Equal(t, "Your request for FD "+fd.ID+" is under review. You will be notified of the outcome.", msg)

	// Nothing changes: the deposit stays and the account is not frozen.
	_, err = env.deposits.GetByID(ctx, env.userID, fd.ID)
	assert.NoError(t, err)
	assert.False(t, env.users.get(env.userID).IsFrozen)
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amirk1998/secure-bank/internal/audit"
	"github.com/amirk1998/secure-bank/internal/metrics"
	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/internal/policy"
	"github.com/amirk1998/secure-bank/pkg/errors"
	"github.com/amirk1998/secure-bank/pkg/validator"
)

const (
	maxReviewReason   = 2000
	maxReviewDocument = 10 << 20
)

// User-facing withdrawal messages.
const (
	msgAccountFrozen   = "Your account is frozen. Please contact customer support."
	msgSeniorReview    = "As a senior citizen, please provide a reason and a supporting document for this withdrawal."
	msgFrozenByPolicy  = "Your account has been frozen. All fixed deposits are now frozen."
	msgProceedTemplate = "You will receive %.2f for withdrawing this deposit early."
)

type DepositService struct {
	deposits    DepositStore
	ledger      Ledger
	validator   *validator.Validator
	auditLogger audit.Recorder
	logger      *slog.Logger
	now         func() time.Time
}

func NewDepositService(deposits DepositStore, ledger Ledger, auditLogger audit.Recorder, logger *slog.Logger) *DepositService {
	return &DepositService{
		deposits:    deposits,
		ledger:      ledger,
		validator:   validator.New(),
		auditLogger: auditLogger,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *DepositService) List(ctx context.Context, userID int) ([]*models.FixedDeposit, error) {
	return s.deposits.ListByUser(ctx, userID)
}

// Create opens a deposit and debits its principal from savings in one transaction.
func (s *DepositService) Create(ctx context.Context, userID int, req *models.CreateDepositRequest) (*models.FixedDeposit, error) {
	var fd *models.FixedDeposit

	err := s.ledger.Atomically(ctx, func(st LedgerStores) error {
		user, err := st.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.IsFrozen {
			metrics.PolicyRejectionsTotal.WithLabelValues("account_frozen").Inc()
			return errors.NewAppError(errors.ErrAccountFrozen, msgAccountFrozen, 403)
		}
		if err := policy.ValidateDeposit(req.Principal, req.DurationMonths, user.SavingsBalance); err != nil {
			return err
		}

		now := s.now().UTC()
		rate := policy.AnnualRate(req.DurationMonths)
		fd = &models.FixedDeposit{
			ID:             newReference("FD-"),
			UserID:         userID,
			Principal:      policy.RoundMoney(req.Principal),
			InterestRate:   rate,
			DurationMonths: req.DurationMonths,
			CreatedAt:      now,
			MaturityDate:   now.AddDate(0, req.DurationMonths, 0),
			MaturityAmount: policy.MaturityAmount(req.Principal, rate, req.DurationMonths),
			Status:         models.DepositActive,
		}
		if err := st.Deposits.Create(ctx, fd); err != nil {
			return err
		}
		return st.Users.UpdateBalance(ctx, userID, policy.RoundMoney(user.SavingsBalance-fd.Principal))
	})
	if err != nil {
		return nil, err
	}

	s.audit(&audit.Event{
		Level:    audit.LevelInfo,
		UserID:   audit.User(userID),
		Action:   audit.ActionDepositCreate,
		Resource: "deposit",
		Success:  true,
		Metadata: audit.Meta(map[string]any{"deposit_id": fd.ID, "principal": fd.Principal}),
	})
	return fd, nil
}

// AttemptWithdrawal applies the premature withdrawal decision table. Only
// the freeze route changes state here.
func (s *DepositService) AttemptWithdrawal(ctx context.Context, user *models.User, depositID string) (*models.WithdrawalDecision, error) {
	fd, err := s.deposits.GetByID(ctx, user.ID, depositID)
	if err != nil {
		return nil, depositLookupError(err)
	}

	route := policy.RouteWithdrawal(user.DateOfBirth, user.IsFrozen)
	s.audit(&audit.Event{
		Level:    audit.LevelInfo,
		UserID:   audit.User(user.ID),
		Action:   audit.ActionWithdrawal,
		Resource: "deposit",
		Success:  route == policy.RouteProceed,
		Metadata: audit.Meta(map[string]any{"deposit_id": fd.ID, "route": string(route)}),
	})

	switch route {
	case policy.RouteBlocked:
		metrics.PolicyRejectionsTotal.WithLabelValues("account_frozen").Inc()
		return &models.WithdrawalDecision{Outcome: models.WithdrawalBlocked, Message: msgAccountFrozen}, nil

	case policy.RouteUnderReview:
		return &models.WithdrawalDecision{Outcome: models.WithdrawalUnderReview, Message: msgSeniorReview}, nil

	case policy.RouteFreeze:
		if err := s.freezeAccount(ctx, user.ID); err != nil {
			return nil, err
		}
		user.IsFrozen = true
		return &models.WithdrawalDecision{Outcome: models.WithdrawalFrozen, Message: msgFrozenByPolicy}, nil

	default:
		days := policy.DaysElapsed(fd.CreatedAt, s.now())
		amount := policy.PrematureReturn(fd.Principal, days)
		return &models.WithdrawalDecision{
			Outcome:     models.WithdrawalProceed,
			Message:     fmt.Sprintf(msgProceedTemplate, amount),
			Amount:      amount,
			DaysElapsed: days,
		}, nil
	}
}

func (s *DepositService) freezeAccount(ctx context.Context, userID int) error {
	var frozen int64
	err := s.ledger.Atomically(ctx, func(st LedgerStores) error {
		if err := st.Users.SetFrozen(ctx, userID, true); err != nil {
			return err
		}
		n, err := st.Deposits.FreezeAll(ctx, userID)
		frozen = n
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to freeze account: %w", err)
	}

	metrics.PolicyRejectionsTotal.WithLabelValues("withdrawal_freeze").Inc()
	s.audit(&audit.Event{
		Level:    audit.LevelCritical,
		UserID:   audit.User(userID),
		Action:   audit.ActionAccountFrozen,
		Resource: "account",
		Success:  true,
		Metadata: audit.Meta(map[string]any{"deposits_frozen": frozen}),
	})
	return nil
}

// ConfirmWithdrawal closes the deposit and credits the early-withdrawal
// return. It is only reachable on the Proceed route.
func (s *DepositService) ConfirmWithdrawal(ctx context.Context, userID int, depositID string) (*models.WithdrawalConfirmation, error) {
	var result *models.WithdrawalConfirmation

	err := s.ledger.Atomically(ctx, func(st LedgerStores) error {
		user, err := st.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if route := policy.RouteWithdrawal(user.DateOfBirth, user.IsFrozen); route != policy.RouteProceed {
			metrics.PolicyRejectionsTotal.WithLabelValues("withdrawal").Inc()
			return errors.NewAppError(errors.ErrWithdrawalPending, "this withdrawal cannot be completed online", 403)
		}

		fd, err := st.Deposits.GetByID(ctx, userID, depositID)
		if err != nil {
			return depositLookupError(err)
		}

		amount := policy.PrematureReturn(fd.Principal, policy.DaysElapsed(fd.CreatedAt, s.now()))
		if err := st.Deposits.Delete(ctx, userID, fd.ID); err != nil {
			return err
		}

		balance := policy.RoundMoney(user.SavingsBalance + amount)
		if err := st.Users.UpdateBalance(ctx, userID, balance); err != nil {
			return err
		}

		result = &models.WithdrawalConfirmation{
			DepositID:      fd.ID,
			AmountCredited: amount,
			SavingsBalance: balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(&audit.Event{
		Level:    audit.LevelInfo,
		UserID:   audit.User(userID),
		Action:   audit.ActionWithdrawal,
		Resource: "deposit",
		Success:  true,
		Metadata: audit.Meta(map[string]any{"deposit_id": result.DepositID, "amount": result.AmountCredited}),
	})
	return result, nil
}

// SubmitReview accepts a senior citizen's withdrawal request for review.
// Nothing about the review outcome is stored.
func (s *DepositService) SubmitReview(ctx context.Context, user *models.User, depositID string, req *models.WithdrawalReviewRequest) (string, error) {
	if route := policy.RouteWithdrawal(user.DateOfBirth, user.IsFrozen); route != policy.RouteUnderReview {
		return "", errors.NewAppError(errors.ErrWithdrawalPending, "this deposit does not require a review", 409)
	}

	reason := s.validator.SanitizeString(req.Reason)
	if reason == "" || strings.TrimSpace(req.DocumentName) == "" || req.DocumentSize <= 0 {
		return "", errors.NewAppError(errors.ErrInvalidInput, "Please provide a reason and upload a proof document.", 400)
	}
	if err := s.validator.ValidateText("reason", reason, maxReviewReason); err != nil {
		return "", err
	}
	if req.DocumentSize > maxReviewDocument {
		return "", errors.NewAppError(errors.ErrInvalidInput, "proof document is too large", 413)
	}

	fd, err := s.deposits.GetByID(ctx, user.ID, depositID)
	if err != nil {
		return "", depositLookupError(err)
	}

	s.audit(&audit.Event{
		Level:    audit.LevelInfo,
		UserID:   audit.User(user.ID),
		Action:   audit.ActionWithdrawal,
		Resource: "deposit",
		Success:  true,
		Metadata: audit.Meta(map[string]any{
			"deposit_id": fd.ID,
			"route":      string(policy.RouteUnderReview),
			"document":   req.DocumentName,
		}),
	})

	return fmt.Sprintf("Your request for FD %s is under review. You will be notified of the outcome.", fd.ID), nil
}

func (s *DepositService) audit(e *audit.Event) {
	if err := s.auditLogger.Log(e); err != nil {
		s.logger.Error("failed to write audit event", "action", e.Action, "error", err)
	}
}

func depositLookupError(err error) error {
	if errors.Is(err, errors.ErrRecordNotFound) {
		return errors.NewAppError(errors.ErrRecordNotFound, "fixed deposit not found", 404)
	}
	return err
}

// newReference returns prefix followed by eight upper-case hex characters.
func newReference(prefix string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

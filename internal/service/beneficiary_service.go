package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/pkg/errors"
	"github.com/amirk1998/secure-bank/pkg/validator"
)

const minBeneficiaryName = 2

type BeneficiaryService struct {
	beneficiaries BeneficiaryStore
	validator     *validator.Validator
	logger        *slog.Logger
	now           func() time.Time
}

func NewBeneficiaryService(beneficiaries BeneficiaryStore, logger *slog.Logger) *BeneficiaryService {
	return &BeneficiaryService{
		beneficiaries: beneficiaries,
		validator:     validator.New(),
		logger:        logger,
		now:           time.Now,
	}
}

func (s *BeneficiaryService) List(ctx context.Context, userID int) ([]*models.Beneficiary, error) {
	return s.beneficiaries.ListByUser(ctx, userID)
}

// Add saves a bank account beneficiary. The same account number twice is a conflict.
func (s *BeneficiaryService) Add(ctx context.Context, userID int, req *models.AddBeneficiaryRequest) (*models.Beneficiary, error) {
	b, err := bankBeneficiary(s.validator, userID, req, s.now())
	if err != nil {
		return nil, err
	}

	created, err := s.beneficiaries.Add(ctx, b)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "this beneficiary has already been added", 409)
	}

	s.logger.InfoContext(ctx, "beneficiary added", "user_id", userID, "type", b.Type)
	return b, nil
}

func (s *BeneficiaryService) Delete(ctx context.Context, userID int, id string) error {
	return s.beneficiaries.Delete(ctx, userID, id)
}

// bankBeneficiary validates a bank account form and builds the record it describes.
func bankBeneficiary(v *validator.Validator, userID int, req *models.AddBeneficiaryRequest, now time.Time) (*models.Beneficiary, error) {
	name := v.SanitizeString(req.Name)
	ifsc := strings.ToUpper(v.SanitizeString(req.IFSC))
	account := v.SanitizeString(req.AccountNumber)
	confirm := v.SanitizeString(req.ConfirmAccountNumber)

	if len([]rune(name)) < minBeneficiaryName {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "beneficiary name must be at least 2 characters", 400)
	}
	if err := v.ValidateIFSC(ifsc); err != nil {
		return nil, err
	}
	if err := v.ValidateAccountNumber(account); err != nil {
		return nil, err
	}
	if account != confirm {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "account numbers do not match", 400)
	}

	return &models.Beneficiary{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          name,
		Type:          models.BeneficiaryBankAccount,
		AccountNumber: account,
		IFSC:          ifsc,
		CreatedAt:     now.UTC(),
	}, nil
}

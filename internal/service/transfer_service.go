package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amirk1998/secure-bank/internal/audit"
	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/internal/policy"
	"github.com/amirk1998/secure-bank/internal/risk"
	"github.com/amirk1998/secure-bank/pkg/errors"
	"github.com/amirk1998/secure-bank/pkg/validator"
)

// Assessor scores one transaction attempt. It never fails; see risk.Gate.
type Assessor interface {
	Assess(ctx context.Context, signals models.BehavioralSignals) (models.RiskAssessment, risk.Tier)
}

type TransferService struct {
	gate          Assessor
	beneficiaries BeneficiaryStore
	validator     *validator.Validator
	auditLogger   audit.Recorder
	logger        *slog.Logger
	now           func() time.Time
}

func NewTransferService(gate Assessor, beneficiaries BeneficiaryStore, auditLogger audit.Recorder, logger *slog.Logger) *TransferService {
	return &TransferService{
		gate:          gate,
		beneficiaries: beneficiaries,
		validator:     validator.New(),
		auditLogger:   auditLogger,
		logger:        logger,
		now:           time.Now,
	}
}

// Assess runs a UPI/mobile transfer attempt through the risk gate. Low and
// Medium tiers save the recipient; High never does.
func (s *TransferService) Assess(ctx context.Context, p *Principal, req *models.TransferAssessRequest, clientIP string) (*models.TransferAssessResponse, error) {
	if err := p.Session.RequireFeature(policy.GatedFeature); err != nil {
		return nil, err
	}

	recipient := s.validator.SanitizeString(req.Recipient)
	if err := s.validator.ValidateRequired("recipient", recipient); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateAmount(req.Amount); err != nil {
		return nil, errors.NewAppError(err, "please enter a valid amount", 400)
	}
	if err := s.validator.ValidateText("notes", req.Notes, 500); err != nil {
		return nil, err
	}

	signals := req.Signals
	if len(signals.BaselineKeyHoldTimes) == 0 {
		signals.BaselineKeyHoldTimes = p.User.BaselineKeyHoldTimes
	}
	if signals.SessionDuration <= 0 {
		signals.SessionDuration = s.now().Sub(p.Session.StartedAt()).Seconds()
	}
	if strings.TrimSpace(signals.IP) == "" {
		signals.IP = clientIP
	}

	assessment, tier := s.gate.Assess(ctx, signals)

	resp := &models.TransferAssessResponse{
		Assessment: assessment,
		Tier:       string(tier),
		Decision:   tier.Decision(),
	}

	if tier.PersistsBeneficiary() {
		created, err := s.beneficiaries.Add(ctx, &models.Beneficiary{
			ID:        uuid.NewString(),
			UserID:    p.User.ID,
			Name:      recipient,
			Type:      models.BeneficiaryUPI,
			Details:   recipient,
			CreatedAt: s.now().UTC(),
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to save beneficiary", "user_id", p.User.ID, "error", err)
		} else {
			resp.BeneficiarySaved = created
		}
	}

	level := audit.LevelInfo
	if tier != risk.TierLow {
		level = audit.LevelWarning
	}
	s.audit(&audit.Event{
		Level:     level,
		UserID:    audit.User(p.User.ID),
		Action:    audit.ActionTransferAssess,
		Resource:  "transfer",
		IPAddress: clientIP,
		Success:   tier != risk.TierHigh,
		Metadata: audit.Meta(map[string]any{
			"tier":       string(tier),
			"risk_score": assessment.RiskScore,
			"amount":     req.Amount,
		}),
	})

	return resp, nil
}

// NEFT records a simulated bank transfer and saves the payee. Bank
// transfers are not risk assessed.
func (s *TransferService) NEFT(ctx context.Context, p *Principal, req *models.NEFTTransferRequest) (*models.NEFTTransferResponse, error) {
	if err := s.validator.ValidateAmount(req.Amount); err != nil {
		return nil, errors.NewAppError(err, "please enter a valid amount", 400)
	}
	if err := s.validator.ValidateText("message", req.Message, 500); err != nil {
		return nil, err
	}

	b, err := bankBeneficiary(s.validator, p.User.ID, &req.AddBeneficiaryRequest, s.now())
	if err != nil {
		return nil, err
	}

	if _, err := s.beneficiaries.Add(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save beneficiary: %w", err)
	}

	reference := newReference("NEFT")

	s.audit(&audit.Event{
		Level:    audit.LevelInfo,
		UserID:   audit.User(p.User.ID),
		Action:   audit.ActionTransferNEFT,
		Resource: "transfer",
		Success:  true,
		Metadata: audit.Meta(map[string]any{"reference": reference, "amount": req.Amount}),
	})

	return &models.NEFTTransferResponse{
		Reference:   reference,
		Amount:      policy.RoundMoney(req.Amount),
		Beneficiary: b,
	}, nil
}

func (s *TransferService) audit(e *audit.Event) {
	if err := s.auditLogger.Log(e); err != nil {
		s.logger.Error("failed to write audit event", "action", e.Action, "error", err)
	}
}

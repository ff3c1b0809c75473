package service

import (
	"context"
	"log/slog"

	"github.com/amirk1998/secure-bank/internal/audit"
	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/internal/oracle"
	"github.com/amirk1998/secure-bank/pkg/errors"
	"github.com/amirk1998/secure-bank/pkg/validator"
)

const (
	maxSignatureImage = 5 << 20
	maxSpeechText     = 2000

	signatureUnavailable = "Signature verification is unavailable. Please try again later."
)

type VerificationService struct {
	signatures  oracle.SignatureVerifier
	speaker     oracle.Speaker
	validator   *validator.Validator
	auditLogger audit.Recorder
	logger      *slog.Logger
}

func NewVerificationService(signatures oracle.SignatureVerifier, speaker oracle.Speaker, auditLogger audit.Recorder, logger *slog.Logger) *VerificationService {
	return &VerificationService{
		signatures:  signatures,
		speaker:     speaker,
		validator:   validator.New(),
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// VerifySignature asks the oracle to judge a signature image. An oracle
// failure is reported as an invalid signature.
func (s *VerificationService) VerifySignature(ctx context.Context, userID int, image string) (*models.SignatureVerdict, error) {
	if err := validateDataURI(image, "image/", maxSignatureImage); err != nil {
		return nil, err
	}

	verdict, err := s.signatures.VerifySignature(ctx, image)
	if err != nil || verdict == nil {
		s.logger.WarnContext(ctx, "signature verification failed", "user_id", userID, "error", err)
		verdict = &models.SignatureVerdict{IsValid: false, Confidence: 0, Reason: signatureUnavailable}
	}

	if err := s.auditLogger.Log(&audit.Event{
		Level:    audit.LevelInfo,
		UserID:   audit.User(userID),
		Action:   audit.ActionSignatureVerify,
		Resource: "verification",
		Success:  verdict.IsValid,
		Metadata: audit.Meta(map[string]any{"confidence": verdict.Confidence}),
	}); err != nil {
		s.logger.Error("failed to write audit event", "action", audit.ActionSignatureVerify, "error", err)
	}

	return verdict, nil
}

// Synthesize returns the oracle's audio for text as a data URI.
func (s *VerificationService) Synthesize(ctx context.Context, text string) (string, error) {
	text = s.validator.SanitizeString(text)
	if err := s.validator.ValidateRequired("text", text); err != nil {
		return "", err
	}
	if err := s.validator.ValidateText("text", text, maxSpeechText); err != nil {
		return "", err
	}

	audio, err := s.speaker.Synthesize(ctx, text)
	if err != nil {
		s.logger.WarnContext(ctx, "speech synthesis failed", "error", err)
		return "", errors.NewAppError(errors.ErrOracleUnavailable, "speech is unavailable right now", 503)
	}
	return audio, nil
}

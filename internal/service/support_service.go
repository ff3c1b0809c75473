package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/internal/oracle"
	"github.com/amirk1998/secure-bank/pkg/errors"
	"github.com/amirk1998/secure-bank/pkg/validator"
)

const (
	maxComplaintText  = 5000
	maxComplaintImage = 5 << 20
	maxChatQuestion   = 1000

	chatFallback = "I'm sorry, I'm having trouble connecting right now. Please try again later."
)

type SupportService struct {
	complaints ComplaintStore
	assistant  oracle.Assistant
	validator  *validator.Validator
	logger     *slog.Logger
	now        func() time.Time
}

func NewSupportService(complaints ComplaintStore, assistant oracle.Assistant, logger *slog.Logger) *SupportService {
	return &SupportService{
		complaints: complaints,
		assistant:  assistant,
		validator:  validator.New(),
		logger:     logger,
		now:        time.Now,
	}
}

// Raise files a complaint. Either text or an image is required.
func (s *SupportService) Raise(ctx context.Context, userID int, req *models.CreateComplaintRequest) (*models.Complaint, error) {
	query := s.validator.SanitizeString(req.Query)
	image := strings.TrimSpace(req.Image)

	if query == "" && image == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Please describe your issue or attach an image.", 400)
	}
	if err := s.validator.ValidateText("query", query, maxComplaintText); err != nil {
		return nil, err
	}
	if image != "" {
		if err := validateDataURI(image, "image/", maxComplaintImage); err != nil {
			return nil, err
		}
	}

	c := &models.Complaint{
		ID:        newReference("CMP-"),
		UserID:    userID,
		Query:     query,
		Image:     image,
		Status:    models.ComplaintSubmitted,
		CreatedAt: s.now().UTC(),
	}
	if err := s.complaints.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "complaint raised", "user_id", userID, "complaint_id", c.ID)
	return c, nil
}

func (s *SupportService) List(ctx context.Context, userID int) ([]*models.Complaint, error) {
	return s.complaints.ListByUser(ctx, userID)
}

// Track looks a complaint up by id, ignoring case.
func (s *SupportService) Track(ctx context.Context, userID int, id string) (*models.Complaint, error) {
	id = s.validator.SanitizeString(id)
	if id == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "complaint id is required", 400)
	}

	c, err := s.complaints.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, errors.ErrRecordNotFound) {
			return nil, errors.NewAppError(errors.ErrRecordNotFound, "No complaint found with this ID.", 404)
		}
		return nil, err
	}
	return c, nil
}

// Chat forwards a question to the assistant. Failures produce a fixed apology.
func (s *SupportService) Chat(ctx context.Context, question string) (string, error) {
	question = s.validator.SanitizeString(question)
	if err := s.validator.ValidateRequired("question", question); err != nil {
		return "", err
	}
	if err := s.validator.ValidateText("question", question, maxChatQuestion); err != nil {
		return "", err
	}

	answer, err := s.assistant.Ask(ctx, question)
	if err != nil || strings.TrimSpace(answer) == "" {
		s.logger.WarnContext(ctx, "chat assistant unavailable", "error", err)
		return chatFallback, nil
	}
	return answer, nil
}

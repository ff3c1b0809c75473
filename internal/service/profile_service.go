package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/amirk1998/secure-bank/internal/audit"
	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/internal/policy"
	"github.com/amirk1998/secure-bank/pkg/errors"
	"github.com/amirk1998/secure-bank/pkg/validator"
)

// AccountView is the account holder's profile with the devices seen on login.
type AccountView struct {
	User    *models.User     `json:"user"`
	Devices []*models.Device `json:"devices"`
}

type ProfileService struct {
	users       UserStore
	devices     DeviceStore
	validator   *validator.Validator
	auditLogger audit.Recorder
	logger      *slog.Logger
	now         func() time.Time
}

func NewProfileService(users UserStore, devices DeviceStore, auditLogger audit.Recorder, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		users:       users,
		devices:     devices,
		validator:   validator.New(),
		auditLogger: auditLogger,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *ProfileService) Get(ctx context.Context, userID int) (*AccountView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	devices, err := s.devices.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &AccountView{User: user, Devices: devices}, nil
}

// Update changes the editable profile fields. Blank fields keep their
// current value; each distinct date of birth counts against the limit.
func (s *ProfileService) Update(ctx context.Context, userID int, req *models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name := s.validator.SanitizeString(req.FullName); name != "" {
		if err := s.validator.ValidateFullName(name); err != nil {
			return nil, err
		}
		user.FullName = name
	}

	if gender := strings.ToLower(s.validator.SanitizeString(req.Gender)); gender != "" {
		if err := s.validator.ValidateGender(gender); err != nil {
			return nil, err
		}
		user.Gender = gender
	}

	dobChanged := false
	if raw := s.validator.SanitizeString(req.DateOfBirth); raw != "" {
		dob, err := s.validator.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		if dob.After(s.now()) {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "date of birth cannot be in the future", 400)
		}
		if !dob.Equal(user.DateOfBirth) {
			if err := policy.CheckDobUpdate(user.DobUpdateCount); err != nil {
				return nil, err
			}
			user.DateOfBirth = dob
			user.DobUpdateCount++
			dobChanged = true
		}
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	s.audit(&audit.Event{
		Level:    audit.LevelInfo,
		UserID:   audit.User(userID),
		Action:   audit.ActionProfileUpdate,
		Resource: "profile",
		Success:  true,
		Metadata: audit.Meta(map[string]any{"dob_changed": dobChanged, "dob_update_count": user.DobUpdateCount}),
	})
	return user, nil
}

func (s *ProfileService) audit(e *audit.Event) {
	if err := s.auditLogger.Log(e); err != nil {
		s.logger.Error("failed to write audit event", "action", e.Action, "error", err)
	}
}

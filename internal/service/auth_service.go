package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirk1998/secure-bank/internal/audit"
	"github.com/amirk1998/secure-bank/internal/metrics"
	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/internal/oracle"
	"github.com/amirk1998/secure-bank/internal/policy"
	"github.com/amirk1998/secure-bank/internal/ratelimit"
	"github.com/amirk1998/secure-bank/internal/security"
	"github.com/amirk1998/secure-bank/internal/session"
	"github.com/amirk1998/secure-bank/pkg/errors"
	"github.com/amirk1998/secure-bank/pkg/validator"
)

const (
	minBaselineSamples  = 10
	keptBaselineSamples = 20
	maxAudioPayload     = 10 << 20
)

// SecurityQuestions are the recovery questions offered at registration.
var SecurityQuestions = []string{
	"What is the name of your first school?",
	"What is the name of your best friend?",
	"What is your pet's name?",
	"What is your mother's maiden name?",
	"What is your favorite color?",
}

// Login methods, used as metric labels.
const (
	MethodPassword = "password"
	MethodMnemonic = "mnemonic"
	MethodRecovery = "security_question"
	MethodVoice    = "voice"
)

type AuthDependencies struct {
	Users       UserStore
	Devices     DeviceStore
	SessionLog  SessionStore
	Sessions    *session.Manager
	Hasher      security.CredentialVerifier
	Tokens      TokenHasher
	Cipher      FieldCipher
	Voice       oracle.VoiceVerifier
	Transcriber oracle.Transcriber
	Locator     Locator
	RateLimiter *ratelimit.RateLimiter
	Audit       audit.Recorder
	Logger      *slog.Logger
}

type AuthService struct {
	users       UserStore
	devices     DeviceStore
	sessionLog  SessionStore
	sessions    *session.Manager
	hasher      security.CredentialVerifier
	tokens      TokenHasher
	cipher      FieldCipher
	voice       oracle.VoiceVerifier
	transcriber oracle.Transcriber
	locator     Locator
	validator   *validator.Validator
	rateLimiter *ratelimit.RateLimiter
	auditLogger audit.Recorder
	logger      *slog.Logger
	now         func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:       deps.Users,
		devices:     deps.Devices,
		sessionLog:  deps.SessionLog,
		sessions:    deps.Sessions,
		hasher:      deps.Hasher,
		tokens:      deps.Tokens,
		cipher:      deps.Cipher,
		voice:       deps.Voice,
		transcriber: deps.Transcriber,
		locator:     deps.Locator,
		validator:   validator.New(),
		rateLimiter: deps.RateLimiter,
		auditLogger: deps.Audit,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

// Register registers a new user and returns its one-time recovery phrase.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.RegisterResponse, error) {
	if err := s.rateLimiter.CheckLimit("register"); err != nil {
		s.audit(&audit.Event{
			Level:    audit.LevelWarning,
			Action:   audit.ActionRegister,
			Resource: "auth",
			ErrorMsg: "rate limit exceeded",
		})
		return nil, err
	}

	req.FullName = s.validator.SanitizeString(req.FullName)
	req.Email = s.validator.NormalizeEmail(req.Email)
	req.Mobile = s.validator.SanitizeString(req.Mobile)
	req.Gender = strings.ToLower(s.validator.SanitizeString(req.Gender))

	dob, err := s.validateRegistration(req)
	if err != nil {
		s.audit(&audit.Event{
			Level:    audit.LevelWarning,
			Action:   audit.ActionRegister,
			Resource: "auth",
			ErrorMsg: err.Error(),
		})
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	answerHash, err := s.hasher.Hash(normalizeAnswer(req.SecurityAnswer))
	if err != nil {
		return nil, fmt.Errorf("failed to hash security answer: %w", err)
	}

	mnemonic, err := security.GenerateMnemonic()
	if err != nil {
		return nil, fmt.Errorf("failed to generate recovery phrase: %w", err)
	}

	mnemonicHash, err := s.hasher.Hash(s.validator.NormalizePhrase(mnemonic))
	if err != nil {
		return nil, fmt.Errorf("failed to hash recovery phrase: %w", err)
	}

	baseline := req.KeyHoldTimes
	if len(baseline) > keptBaselineSamples {
		baseline = baseline[len(baseline)-keptBaselineSamples:]
	}

	user := &models.User{
		Email:                req.Email,
		FullName:             req.FullName,
		Mobile:               req.Mobile,
		DateOfBirth:          dob,
		Gender:               req.Gender,
		PasswordHash:         passwordHash,
		SecurityQuestion:     req.SecurityQuestion,
		SecurityAnswerHash:   answerHash,
		MnemonicHash:         mnemonicHash,
		BaselineKeyHoldTimes: append([]float64(nil), baseline...),
		SavingsBalance:       models.DefaultSavingsBalance,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, errors.ErrUserAlreadyExists) {
			s.audit(&audit.Event{
				Level:    audit.LevelWarning,
				Action:   audit.ActionRegister,
				Resource: "auth",
				ErrorMsg: "duplicate email",
			})
			return nil, errors.NewAppError(errors.ErrUserAlreadyExists, "An account with this email already exists.", 409)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.audit(&audit.Event{
		Level:    audit.LevelInfo,
		UserID:   audit.User(user.ID),
		Action:   audit.ActionRegister,
		Resource: "auth",
		Success:  true,
	})

	return &models.RegisterResponse{User: user, Mnemonic: mnemonic}, nil
}

func (s *AuthService) validateRegistration(req *models.RegisterRequest) (time.Time, error) {
	if err := s.validator.ValidateFullName(req.FullName); err != nil {
		return time.Time{}, err
	}
	if err := s.validator.ValidateEmail(req.Email); err != nil {
		return time.Time{}, err
	}
	if err := s.validator.ValidateMobile(req.Mobile); err != nil {
		return time.Time{}, err
	}
	dob, err := s.validator.ParseDate(req.DateOfBirth)
	if err != nil {
		return time.Time{}, err
	}
	if dob.After(s.now()) {
		return time.Time{}, errors.NewAppError(errors.ErrInvalidInput, "date of birth cannot be in the future", 400)
	}
	if err := s.validator.ValidateGender(req.Gender); err != nil {
		return time.Time{}, err
	}
	if err := s.validator.ValidatePassword(req.Password); err != nil {
		return time.Time{}, err
	}
	if !isSecurityQuestion(req.SecurityQuestion) {
		return time.Time{}, errors.NewAppError(errors.ErrInvalidInput, "please select a security question", 400)
	}
	if err := s.validator.ValidateRequired("security answer", req.SecurityAnswer); err != nil {
		return time.Time{}, err
	}
	if len(req.KeyHoldTimes) < minBaselineSamples {
		return time.Time{}, errors.NewAppError(errors.ErrInsufficientBaseline,
			"Not enough behavioral data captured. Please type naturally.", 400)
	}
	return dob, nil
}

// Login authenticates with email and password under the account lockout policy.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	email := s.validator.NormalizeEmail(req.Email)

	if err := s.rateLimiter.CheckLimit("login:" + email); err != nil {
		s.audit(&audit.Event{
			Level:     audit.LevelWarning,
			Action:    audit.ActionLogin,
			Resource:  "auth",
			IPAddress: req.IPAddress,
			ErrorMsg:  "rate limit exceeded",
		})
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, errors.ErrUserNotFound) {
			return nil, err
		}
		s.hasher.VerifyDummy(req.Password)
		s.recordLoginFailure(MethodPassword, nil, req.IPAddress, "unknown email")
		return nil, errors.NewAppError(errors.ErrInvalidCredentials, "Invalid email or password.", 401)
	}

	state := policy.LockoutState{FailedAttempts: user.FailedLoginAttempts, Until: user.LockoutUntil}
	lockout := policy.NewLockout(&state, s.now)

	cleared, err := lockout.Admit()
	if err != nil {
		metrics.PolicyRejectionsTotal.WithLabelValues("account_lockout").Inc()
		s.recordLoginFailure(MethodPassword, &user.ID, req.IPAddress, "account locked")
		return nil, err
	}
	if cleared {
		if err := s.users.ClearExpiredLockout(ctx, user.ID, s.now()); err != nil {
			return nil, err
		}
	}

	valid, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	if !valid {
		// Counted in the store so concurrent failures all land.
		state, err = s.users.RecordLoginFailure(ctx, user.ID, s.now())
		if err != nil {
			return nil, err
		}
		failure := lockout.Failure()

		if state.FailedAttempts == policy.MaxFailedLogins {
			s.audit(&audit.Event{
				Level:     audit.LevelCritical,
				UserID:    audit.User(user.ID),
				Action:    audit.ActionAccountLocked,
				Resource:  "auth",
				IPAddress: req.IPAddress,
				ErrorMsg:  fmt.Sprintf("account locked after %d failed attempts", policy.MaxFailedLogins),
			})
		}
		s.recordLoginFailure(MethodPassword, &user.ID, req.IPAddress, "invalid password")
		return nil, failure
	}

	if state.FailedAttempts > 0 || state.Until != nil {
		if err := s.users.ResetLockout(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	return s.startSession(ctx, user, MethodPassword, audit.ActionLogin, req.LoginContext)
}

// LoginWithMnemonic authenticates with the recovery phrase. The lockout
// policy is neither consulted nor updated.
func (s *AuthService) LoginWithMnemonic(ctx context.Context, req *models.MnemonicLoginRequest) (*models.LoginResponse, error) {
	email := s.validator.NormalizeEmail(req.Email)
	phrase := s.validator.NormalizePhrase(req.Mnemonic)
	failure := errors.NewAppError(errors.ErrInvalidCredentials, "Invalid email or mnemonic phrase.", 401)

	if err := s.rateLimiter.CheckLimit("login:" + email); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, errors.ErrUserNotFound) {
			return nil, err
		}
		s.hasher.VerifyDummy(phrase)
		s.recordLoginFailure(MethodMnemonic, nil, req.IPAddress, "unknown email")
		return nil, failure
	}

	valid, err := s.hasher.Verify(phrase, user.MnemonicHash)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if !valid {
		s.recordLoginFailure(MethodMnemonic, &user.ID, req.IPAddress, "invalid mnemonic")
		return nil, failure
	}

	return s.startSession(ctx, user, MethodMnemonic, audit.ActionLoginMnemonic, req.LoginContext)
}

// RecoveryQuestion returns the security question chosen at registration.
func (s *AuthService) RecoveryQuestion(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, s.validator.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			return "", errors.NewAppError(errors.ErrUserNotFound, "No account or security question found for this email.", 404)
		}
		return "", err
	}
	if user.SecurityQuestion == "" {
		return "", errors.NewAppError(errors.ErrUserNotFound, "No account or security question found for this email.", 404)
	}
	return user.SecurityQuestion, nil
}

// LoginWithSecurityAnswer authenticates with the recovery answer. The
// lockout policy is neither consulted nor updated.
func (s *AuthService) LoginWithSecurityAnswer(ctx context.Context, req *models.SecurityAnswerLoginRequest) (*models.LoginResponse, error) {
	email := s.validator.NormalizeEmail(req.Email)
	answer := normalizeAnswer(req.Answer)
	failure := errors.NewAppError(errors.ErrInvalidCredentials, "The security answer is not correct. Please try again.", 401)

	if err := s.rateLimiter.CheckLimit("login:" + email); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, errors.ErrUserNotFound) {
			return nil, err
		}
		s.hasher.VerifyDummy(answer)
		s.recordLoginFailure(MethodRecovery, nil, req.IPAddress, "unknown email")
		return nil, failure
	}

	valid, err := s.hasher.Verify(answer, user.SecurityAnswerHash)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if !valid {
		s.recordLoginFailure(MethodRecovery, &user.ID, req.IPAddress, "invalid security answer")
		return nil, failure
	}

	return s.startSession(ctx, user, MethodRecovery, audit.ActionLoginRecovery, req.LoginContext)
}

// EnrollVoice transcribes the sample to learn the passphrase and stores
// both, encrypted. It returns the passphrase heard.
func (s *AuthService) EnrollVoice(ctx context.Context, userID int, sample string) (string, error) {
	if err := validateDataURI(sample, "audio/", maxAudioPayload); err != nil {
		return "", err
	}

	phrase, err := s.transcriber.Transcribe(ctx, sample)
	if err != nil {
		s.logger.WarnContext(ctx, "voice transcription failed", "user_id", userID, "error", err)
		return "", errors.NewAppError(errors.ErrOracleUnavailable,
			"Could not understand the audio. Please speak clearly and try again.", 503)
	}
	phrase = oracle.NormalizeTranscript(phrase)
	if phrase == "" {
		return "", errors.NewAppError(errors.ErrInvalidInput,
			"Could not understand the audio. Please speak clearly and try again.", 422)
	}

	encPhrase, err := s.cipher.Encrypt(phrase)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt passphrase: %w", err)
	}
	encSample, err := s.cipher.Encrypt(sample)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt voice sample: %w", err)
	}

	if err := s.users.UpdateVoice(ctx, userID, encPhrase, encSample); err != nil {
		return "", err
	}

	s.audit(&audit.Event{
		Level:    audit.LevelInfo,
		UserID:   audit.User(userID),
		Action:   audit.ActionVoiceEnroll,
		Resource: "auth",
		Success:  true,
	})

	return phrase, nil
}

// LoginWithVoice succeeds only when the oracle verifies both the speaker
// and the phrase. An oracle failure counts as not verified.
func (s *AuthService) LoginWithVoice(ctx context.Context, req *models.VoiceLoginRequest) (*models.LoginResponse, error) {
	email := s.validator.NormalizeEmail(req.Email)
	if err := validateDataURI(req.Sample, "audio/", maxAudioPayload); err != nil {
		return nil, err
	}

	if err := s.rateLimiter.CheckLimit("login:" + email); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, errors.ErrUserNotFound) {
		return nil, err
	}
	if user == nil || !user.VoiceEnrolled() {
		s.recordLoginFailure(MethodVoice, nil, req.IPAddress, "voice not enrolled")
		return nil, errors.NewAppError(errors.ErrVoiceNotEnrolled, "Voice login is not configured for this account.", 400)
	}

	phrase, err := s.cipher.Decrypt(user.VoicePassphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: voice passphrase", errors.ErrCorruptRecord)
	}
	enrolled, err := s.cipher.Decrypt(user.VoiceSample)
	if err != nil {
		return nil, fmt.Errorf("%w: voice sample", errors.ErrCorruptRecord)
	}

	verdict, err := s.voice.VerifyVoice(ctx, oracle.VoiceCheck{
		LoginAudioDataURI:        req.Sample,
		RegistrationAudioDataURI: enrolled,
		Phrase:                   phrase,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "voice verification failed", "user_id", user.ID, "error", err)
		s.recordLoginFailure(MethodVoice, &user.ID, req.IPAddress, "oracle unavailable")
		return nil, errors.NewAppError(errors.ErrInvalidCredentials, "Authentication failed. Please try again.", 401)
	}

	if verdict == nil || !verdict.Verified() {
		reason := ""
		if verdict != nil {
			reason = verdict.Reason
		}
		if reason == "" {
			reason = "Authentication failed. Please try again."
		}
		s.recordLoginFailure(MethodVoice, &user.ID, req.IPAddress, reason)
		return nil, errors.NewAppError(errors.ErrInvalidCredentials, reason, 401)
	}

	return s.startSession(ctx, user, MethodVoice, audit.ActionLoginVoice, req.LoginContext)
}

// startSession opens a session after any successful login and records the device.
func (s *AuthService) startSession(ctx context.Context, user *models.User, method, action string, lc models.LoginContext) (*models.LoginResponse, error) {
	token, err := security.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	tokenHash := s.tokens.HashToken(token)

	deviceID := s.validator.SanitizeString(lc.DeviceID)
	location := s.locator.Describe(ctx, lc.IPAddress)

	newDevice := false
	if deviceID != "" {
		newDevice, err = s.devices.Touch(ctx, &models.Device{
			UserID:    user.ID,
			DeviceID:  deviceID,
			IPAddress: lc.IPAddress,
			Location:  location,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := s.sessionLog.Create(ctx, &models.SessionRecord{
		UserID:    user.ID,
		TokenHash: tokenHash,
		DeviceID:  deviceID,
		IPAddress: lc.IPAddress,
		UserAgent: lc.UserAgent,
	}); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now

	sess := s.sessions.Create(tokenHash, user.ID, deviceID)

	metrics.LoginAttemptsTotal.WithLabelValues(method, "success").Inc()
	s.audit(&audit.Event{
		Level:     audit.LevelInfo,
		UserID:    audit.User(user.ID),
		Action:    action,
		Resource:  "auth",
		IPAddress: lc.IPAddress,
		Success:   true,
		Metadata:  audit.Meta(map[string]any{"device_id": deviceID, "location": location}),
	})
	if newDevice {
		s.audit(&audit.Event{
			Level:     audit.LevelWarning,
			UserID:    audit.User(user.ID),
			Action:    audit.ActionNewDevice,
			Resource:  "auth",
			IPAddress: lc.IPAddress,
			Success:   true,
			Metadata:  audit.Meta(map[string]any{"device_id": deviceID, "location": location}),
		})
	}

	return &models.LoginResponse{
		User:         user,
		SessionToken: token,
		StartedAt:    sess.StartedAt(),
		NewDevice:    newDevice,
		IPAddress:    lc.IPAddress,
		Location:     location,
	}, nil
}

func (s *AuthService) recordLoginFailure(method string, userID *int, ip, reason string) {
	metrics.LoginAttemptsTotal.WithLabelValues(method, "failure").Inc()

	action := audit.ActionLogin
	switch method {
	case MethodMnemonic:
		action = audit.ActionLoginMnemonic
	case MethodRecovery:
		action = audit.ActionLoginRecovery
	case MethodVoice:
		action = audit.ActionLoginVoice
	}

	s.audit(&audit.Event{
		Level:     audit.LevelWarning,
		UserID:    userID,
		Action:    action,
		Resource:  "auth",
		IPAddress: ip,
		ErrorMsg:  reason,
	})
}

func (s *AuthService) audit(e *audit.Event) {
	if err := s.auditLogger.Log(e); err != nil {
		s.logger.Error("failed to write audit event", "action", e.Action, "error", err)
	}
}

func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

func isSecurityQuestion(q string) bool {
	for _, known := range SecurityQuestions {
		if q == known {
			return true
		}
	}
	return false
}

// validateDataURI checks that payload is a base64 data URI of the given
// media type prefix and no larger than max bytes.
func validateDataURI(payload, mediaPrefix string, max int) error {
	if payload == "" {
		return errors.NewAppError(errors.ErrInvalidInput, "a recording or image is required", 400)
	}
	if len(payload) > max {
		return errors.NewAppError(errors.ErrInvalidInput, "payload is too large", 413)
	}
	if !strings.HasPrefix(payload, "data:"+mediaPrefix) || !strings.Contains(payload, ";base64,") {
		return errors.NewAppError(errors.ErrInvalidInput, "payload must be a base64 data URI of type "+mediaPrefix+"*", 400)
	}
	return nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirk1998/secure-bank/internal/audit"
	"github.com/amirk1998/secure-bank/internal/metrics"
	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/internal/policy"
	"github.com/amirk1998/secure-bank/internal/ratelimit"
	"github.com/amirk1998/secure-bank/internal/repository"
	"github.com/amirk1998/secure-bank/internal/security"
	"github.com/amirk1998/secure-bank/internal/session"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

// Principal is the caller behind a live session.
type Principal struct {
	Session *session.Session
	User    *models.User
}

// FeatureResult is the outcome of navigating to a feature.
type FeatureResult struct {
	Feature  string                `json:"feature"`
	Decision policy.AccessDecision `json:"decision"`
}

type SessionService struct {
	users       UserStore
	sessionLog  SessionStore
	sessions    *session.Manager
	hasher      security.CredentialVerifier
	tokens      TokenHasher
	rateLimiter *ratelimit.RateLimiter
	auditLogger audit.Recorder
	logger      *slog.Logger
}

func NewSessionService(users UserStore, sessionLog SessionStore, sessions *session.Manager,
	hasher security.CredentialVerifier, tokens TokenHasher, rateLimiter *ratelimit.RateLimiter,
	auditLogger audit.Recorder, logger *slog.Logger) *SessionService {
	return &SessionService{
		users:       users,
		sessionLog:  sessionLog,
		sessions:    sessions,
		hasher:      hasher,
		tokens:      tokens,
		rateLimiter: rateLimiter,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// ResolveSession maps a bearer token to its live session and account.
// An account that cannot be loaded ends the session.
func (s *SessionService) ResolveSession(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, errors.ErrUnauthorized
	}
	tokenHash := s.tokens.HashToken(token)

	sess, err := s.sessions.Get(tokenHash)
	if err != nil {
		if errors.Is(err, errors.ErrSessionExpired) {
			s.closeRecord(ctx, tokenHash, repository.EndIdle)
			s.audit(&audit.Event{
				Level:    audit.LevelInfo,
				Action:   audit.ActionSessionExpired,
				Resource: "session",
				Success:  true,
			})
			return nil, errors.NewAppError(errors.ErrSessionExpired, "session expired", 401)
		}
		return nil, err
	}

	user, err := s.users.GetByID(ctx, sess.UserID())
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) || errors.Is(err, errors.ErrCorruptRecord) {
			s.logger.WarnContext(ctx, "terminating session with unreadable account",
				"user_id", sess.UserID(), "error", err)
			s.sessions.Destroy(tokenHash)
			s.closeRecord(ctx, tokenHash, repository.EndCorrupt)
			return nil, errors.ErrUnauthorized
		}
		return nil, err
	}

	return &Principal{Session: sess, User: user}, nil
}

// EnterFeature applies the access throttle. A refusal is a normal outcome.
func (s *SessionService) EnterFeature(p *Principal, feature string) FeatureResult {
	decision := p.Session.EnterFeature(feature)
	if decision == policy.AccessRequireReauth {
		metrics.PolicyRejectionsTotal.WithLabelValues("access_throttle").Inc()
		s.audit(&audit.Event{
			Level:    audit.LevelWarning,
			UserID:   audit.User(p.User.ID),
			Action:   audit.ActionReauthRequired,
			Resource: "session",
			Metadata: audit.Meta(map[string]any{"feature": feature}),
		})
	}
	return FeatureResult{Feature: feature, Decision: decision}
}

// Reauthenticate checks the account password again and grants the feature
// whose entry was refused.
func (s *SessionService) Reauthenticate(ctx context.Context, p *Principal, password string) (FeatureResult, error) {
	if err := s.rateLimiter.CheckLimit(fmt.Sprintf("reauth:%d", p.User.ID)); err != nil {
		s.audit(&audit.Event{
			Level:    audit.LevelWarning,
			UserID:   audit.User(p.User.ID),
			Action:   audit.ActionReauth,
			Resource: "session",
			ErrorMsg: "rate limit exceeded",
		})
		return FeatureResult{}, err
	}

	valid, err := s.hasher.Verify(password, p.User.PasswordHash)
	if err != nil {
		return FeatureResult{}, err
	}
	if !valid {
		s.audit(&audit.Event{
			Level:    audit.LevelWarning,
			UserID:   audit.User(p.User.ID),
			Action:   audit.ActionReauth,
			Resource: "session",
			ErrorMsg: "incorrect password",
		})
		return FeatureResult{}, errors.NewAppError(errors.ErrInvalidCredentials, "Incorrect Password", 401)
	}

	feature := p.Session.Reauthenticated()
	s.audit(&audit.Event{
		Level:    audit.LevelInfo,
		UserID:   audit.User(p.User.ID),
		Action:   audit.ActionReauth,
		Resource: "session",
		Success:  true,
		Metadata: audit.Meta(map[string]any{"feature": feature}),
	})
	return FeatureResult{Feature: feature, Decision: policy.AccessAllowed}, nil
}

// RecordInteractions feeds client events to the click breaker and idle timer.
func (s *SessionService) RecordInteractions(p *Principal, events []string) session.Snapshot {
	if p.Session.RecordInteractions(events) {
		metrics.PolicyRejectionsTotal.WithLabelValues("click_breaker").Inc()
		s.audit(&audit.Event{
			Level:    audit.LevelWarning,
			UserID:   audit.User(p.User.ID),
			Action:   audit.ActionSessionFrozen,
			Resource: "session",
			Success:  true,
			Metadata: audit.Meta(map[string]any{"duration": policy.FreezeDuration.String()}),
		})
	}
	return p.Session.Snapshot()
}

// Logout destroys the session and closes its record.
func (s *SessionService) Logout(ctx context.Context, p *Principal) {
	tokenHash := p.Session.TokenHash()
	s.sessions.Destroy(tokenHash)
	s.closeRecord(ctx, tokenHash, repository.EndLogout)
	s.audit(&audit.Event{
		Level:    audit.LevelInfo,
		UserID:   audit.User(p.User.ID),
		Action:   audit.ActionLogout,
		Resource: "session",
		Success:  true,
	})
}

// SweepSessions drops idle sessions and returns how many ended.
func (s *SessionService) SweepSessions(ctx context.Context) int {
	ended := s.sessions.Sweep()
	for _, e := range ended {
		s.closeRecord(ctx, e.TokenHash, repository.EndIdle)
		s.audit(&audit.Event{
			Level:    audit.LevelInfo,
			UserID:   audit.User(e.UserID),
			Action:   audit.ActionSessionExpired,
			Resource: "session",
			Success:  true,
		})
	}
	return len(ended)
}

func (s *SessionService) closeRecord(ctx context.Context, tokenHash, reason string) {
	if err := s.sessionLog.End(ctx, tokenHash, reason); err != nil && !errors.Is(err, errors.ErrRecordNotFound) {
		s.logger.ErrorContext(ctx, "failed to close session record", "reason", reason, "error", err)
	}
}

func (s *SessionService) audit(e *audit.Event) {
	if err := s.auditLogger.Log(e); err != nil {
		s.logger.Error("failed to write audit event", "action", e.Action, "error", err)
	}
}

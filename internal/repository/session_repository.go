package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirk1998/secure-bank/internal/database"
	"github.com/amirk1998/secure-bank/internal/models"
)

// Reasons a session record is closed with.
const (
	EndLogout  = "logout"
	EndIdle    = "idle_timeout"
	EndCorrupt = "corrupt_account"
	EndRestart = "server_restart"
)

// SessionRepository keeps the audit trail of authenticated sessions.
type SessionRepository struct {
	db database.DBTX
}

func NewSessionRepository(db database.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, rec *models.SessionRecord) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
        INSERT INTO sessions (user_id, token_hash, device_id, ip_address, user_agent, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, rec.UserID, rec.TokenHash, rec.DeviceID, rec.IPAddress, rec.UserAgent, now)
	if err != nil {
		return fmt.Errorf("failed to create session record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get session ID: %w", err)
	}

	rec.ID = int(id)
	rec.CreatedAt = now
	return nil
}

// End closes the record for tokenHash. Closing an already closed record is a no-op.
func (r *SessionRepository) End(ctx context.Context, tokenHash, reason string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE sessions
        SET ended_at = ?, end_reason = ?
        WHERE token_hash = ? AND ended_at IS NULL
    `, time.Now().UTC(), reason, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to end session record: %w", err)
	}
	return nil
}

// EndOpen closes every record left open, e.g. by a restart that dropped
// the in-memory sessions.
func (r *SessionRepository) EndOpen(ctx context.Context, reason string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
        UPDATE sessions
        SET ended_at = ?, end_reason = ?
        WHERE ended_at IS NULL
    `, time.Now().UTC(), reason)
	if err != nil {
		return 0, fmt.Errorf("failed to end open sessions: %w", err)
	}
	return result.RowsAffected()
}

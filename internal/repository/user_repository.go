package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirk1998/secure-bank/internal/database"
	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/internal/policy"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

const userColumns = `
        id, email, full_name, mobile, date_of_birth, gender, password_hash,
        security_question, security_answer_hash, mnemonic_hash,
        baseline_key_hold_times, voice_passphrase, voice_sample,
        failed_login_attempts, lockout_until, is_frozen, savings_balance,
        dob_update_count, created_at, updated_at, last_login`

type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *UserRepository) WithTx(tx database.DBTX) *UserRepository {
	return &UserRepository{db: tx}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
        INSERT INTO users (email, full_name, mobile, date_of_birth, gender, password_hash,
                           security_question, security_answer_hash, mnemonic_hash,
                           baseline_key_hold_times, savings_balance, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	baseline, err := json.Marshal(user.BaselineKeyHoldTimes)
	if err != nil {
		return fmt.Errorf("failed to encode baseline: %w", err)
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.FullName,
		user.Mobile,
		user.DateOfBirth,
		user.Gender,
		user.PasswordHash,
		user.SecurityQuestion,
		user.SecurityAnswerHash,
		user.MnemonicHash,
		string(baseline),
		user.SavingsBalance,
		now,
		now,
	)
	if isUniqueViolation(err) {
		return errors.ErrUserAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user ID: %w", err)
	}

	user.ID = int(id)
	user.CreatedAt = now
	user.UpdatedAt = now

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var baseline string
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.Mobile,
		&user.DateOfBirth,
		&user.Gender,
		&user.PasswordHash,
		&user.SecurityQuestion,
		&user.SecurityAnswerHash,
		&user.MnemonicHash,
		&baseline,
		&user.VoicePassphrase,
		&user.VoiceSample,
		&user.FailedLoginAttempts,
		&user.LockoutUntil,
		&user.IsFrozen,
		&user.SavingsBalance,
		&user.DobUpdateCount,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLogin,
	)

	if err == sql.ErrNoRows {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.BaselineKeyHoldTimes, err = decodeBaseline(baseline); err != nil {
		return nil, err
	}

	return user, nil
}

func decodeBaseline(raw string) ([]float64, error) {
	if raw == "" {
		return nil, nil
	}
	var out []float64
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: baseline key hold times: %v", errors.ErrCorruptRecord, err)
	}
	return out, nil
}

// RecordLoginFailure counts one wrong password in a single statement and
// returns the resulting state. The statement that takes the counter to
// policy.MaxFailedLogins also starts the lock, so concurrent failures can
// neither lose a count nor extend a lock already in force.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, userID int, now time.Time) (policy.LockoutState, error) {
	query := `
        UPDATE users
        SET failed_login_attempts = failed_login_attempts + 1,
            lockout_until = CASE
                WHEN failed_login_attempts + 1 >= ? AND lockout_until IS NULL THEN ?
                ELSE lockout_until
            END,
            updated_at = ?
        WHERE id = ?
    `

	now = now.UTC()
	until := now.Add(policy.LockoutDuration)
	if err := r.execOne(ctx, "record login failure", query, policy.MaxFailedLogins, until, now, userID); err != nil {
		return policy.LockoutState{}, err
	}

	var state policy.LockoutState
	err := r.db.QueryRowContext(ctx,
		`SELECT failed_login_attempts, lockout_until FROM users WHERE id = ?`, userID,
	).Scan(&state.FailedAttempts, &state.Until)
	if err == sql.ErrNoRows {
		return policy.LockoutState{}, errors.ErrUserNotFound
	}
	if err != nil {
		return policy.LockoutState{}, fmt.Errorf("failed to read lockout state: %w", err)
	}
	return state, nil
}

// ClearExpiredLockout lifts a lock whose expiry has passed. A lock set by
// a concurrent request after now is left alone.
func (r *UserRepository) ClearExpiredLockout(ctx context.Context, userID int, now time.Time) error {
	query := `
        UPDATE users
        SET failed_login_attempts = 0, lockout_until = NULL, updated_at = ?
        WHERE id = ? AND lockout_until IS NOT NULL AND lockout_until <= ?
    `

	_, err := r.db.ExecContext(ctx, query, now.UTC(), userID, now.UTC())
	if err != nil {
		return fmt.Errorf("failed to clear lockout: %w", err)
	}
	return nil
}

// ResetLockout zeroes the failure counter after a correct password.
func (r *UserRepository) ResetLockout(ctx context.Context, userID int) error {
	query := `
        UPDATE users
        SET failed_login_attempts = 0, lockout_until = NULL, updated_at = ?
        WHERE id = ?
    `

	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to reset lockout: %w", err)
	}
	return nil
}

// UpdateLastLogin updates user's last login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID int, at time.Time) error {
	query := `
        UPDATE users
        SET last_login = ?
        WHERE id = ?
    `

	_, err := r.db.ExecContext(ctx, query, at.UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

// UpdateVoice stores the encrypted voice passphrase and sample.
func (r *UserRepository) UpdateVoice(ctx context.Context, userID int, passphrase, sample string) error {
	query := `
        UPDATE users
        SET voice_passphrase = ?, voice_sample = ?, updated_at = ?
        WHERE id = ?
    `

	return r.execOne(ctx, "update voice enrollment", query, passphrase, sample, time.Now().UTC(), userID)
}

// UpdateProfile writes the editable profile fields and the dob change counter.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
        UPDATE users
        SET full_name = ?, gender = ?, date_of_birth = ?, dob_update_count = ?, updated_at = ?
        WHERE id = ?
    `

	now := time.Now().UTC()
	if err := r.execOne(ctx, "update profile", query,
		user.FullName, user.Gender, user.DateOfBirth, user.DobUpdateCount, now, user.ID); err != nil {
		return err
	}
	user.UpdatedAt = now
	return nil
}

// UpdateBalance sets the savings balance.
func (r *UserRepository) UpdateBalance(ctx context.Context, userID int, balance float64) error {
	query := `
        UPDATE users
        SET savings_balance = ?, updated_at = ?
        WHERE id = ?
    `

	return r.execOne(ctx, "update balance", query, balance, time.Now().UTC(), userID)
}

// SetFrozen marks the account frozen or active.
func (r *UserRepository) SetFrozen(ctx context.Context, userID int, frozen bool) error {
	query := `
        UPDATE users
        SET is_frozen = ?, updated_at = ?
        WHERE id = ?
    `

	return r.execOne(ctx, "set frozen", query, frozen, time.Now().UTC(), userID)
}

func (r *UserRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return errors.ErrUserNotFound
	}

	return nil
}

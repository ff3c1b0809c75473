package errors

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Custom error types for better error handling
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrSessionExpired     = errors.New("session expired")

	// Policy rejections. These are expected outcomes, not faults.
	ErrAccountLocked     = errors.New("account locked")
	ErrSessionFrozen     = errors.New("session frozen")
	ErrReauthRequired    = errors.New("re-authentication required")
	ErrAccountFrozen     = errors.New("account frozen")
	ErrDobUpdateLimit    = errors.New("date of birth update limit reached")
	ErrFeatureNotActive  = errors.New("feature not active")
	ErrTransferBlocked   = errors.New("transfer blocked")
	ErrVoiceNotEnrolled  = errors.New("voice login not enrolled")
	ErrWithdrawalPending = errors.New("withdrawal not permitted for this account")

	// Validation errors
	ErrInvalidInput         = errors.New("invalid input")
	ErrWeakPassword         = errors.New("password does not meet requirements")
	ErrInvalidEmail         = errors.New("invalid email format")
	ErrInvalidMobile        = errors.New("invalid mobile number")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInsufficientBaseline = errors.New("not enough typing samples")
	ErrInsufficientFunds    = errors.New("insufficient funds")

	// Database errors
	ErrDatabaseConnection = errors.New("database connection failed")
	ErrTransactionFailed  = errors.New("transaction failed")
	ErrRecordNotFound     = errors.New("record not found")
	ErrCorruptRecord      = errors.New("stored record is corrupt")

	// Encryption errors
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrInvalidKey       = errors.New("invalid encryption key")

	// External capability errors
	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrOracleMalformed   = errors.New("oracle returned malformed response")

	// Rate limiting errors
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// Backup errors
	ErrBackupFailed  = errors.New("backup operation failed")
	ErrRestoreFailed = errors.New("restore operation failed")
)

// AppError wraps errors with additional context
type AppError struct {
	Err     error
	Message string
	Code    int
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error
func NewAppError(err error, message string, code int) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// TimedError is a policy rejection that lifts at a known instant.
type TimedError struct {
	Err     error
	Message string
	Until   time.Time
	Now     time.Time
}

func (e *TimedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *TimedError) Unwrap() error {
	return e.Err
}

// Remaining is the time left until the rejection lifts, never negative.
func (e *TimedError) Remaining() time.Duration {
	d := e.Until.Sub(e.Now)
	if d < 0 {
		return 0
	}
	return d
}

// RemainingMinutes rounds the remaining time up to whole minutes.
func (e *TimedError) RemainingMinutes() int {
	return int(math.Ceil(e.Remaining().Minutes()))
}

// Countdown formats the remaining time as MM:SS.
func (e *TimedError) Countdown() string {
	return FormatCountdown(e.Remaining())
}

// FormatCountdown renders d as MM:SS, truncating to whole seconds.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// Is, As and New re-export the standard helpers so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }

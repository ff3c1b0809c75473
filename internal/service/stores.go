// Package service implements the account, session and banking operations
// on top of the repositories, the policy gates and the oracle boundary.
package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/amirk1998/secure-bank/internal/database"
	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/internal/policy"
	"github.com/amirk1998/secure-bank/internal/repository"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	RecordLoginFailure(ctx context.Context, userID int, now time.Time) (policy.LockoutState, error)
	ClearExpiredLockout(ctx context.Context, userID int, now time.Time) error
	ResetLockout(ctx context.Context, userID int) error
	UpdateLastLogin(ctx context.Context, userID int, at time.Time) error
	UpdateVoice(ctx context.Context, userID int, passphrase, sample string) error
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateBalance(ctx context.Context, userID int, balance float64) error
	SetFrozen(ctx context.Context, userID int, frozen bool) error
}

type DeviceStore interface {
	Touch(ctx context.Context, device *models.Device) (bool, error)
	ListByUser(ctx context.Context, userID int) ([]*models.Device, error)
}

type SessionStore interface {
	Create(ctx context.Context, rec *models.SessionRecord) error
	End(ctx context.Context, tokenHash, reason string) error
}

type DepositStore interface {
	Create(ctx context.Context, fd *models.FixedDeposit) error
	ListByUser(ctx context.Context, userID int) ([]*models.FixedDeposit, error)
	GetByID(ctx context.Context, userID int, id string) (*models.FixedDeposit, error)
	Delete(ctx context.Context, userID int, id string) error
	FreezeAll(ctx context.Context, userID int) (int64, error)
}

type BeneficiaryStore interface {
	Add(ctx context.Context, b *models.Beneficiary) (bool, error)
	ListByUser(ctx context.Context, userID int) ([]*models.Beneficiary, error)
	Delete(ctx context.Context, userID int, id string) error
}

type ComplaintStore interface {
	Create(ctx context.Context, c *models.Complaint) error
	ListByUser(ctx context.Context, userID int) ([]*models.Complaint, error)
	GetByID(ctx context.Context, userID int, id string) (*models.Complaint, error)
}

// Locator turns an IP address into a display location.
type Locator interface {
	Describe(ctx context.Context, ip string) string
}

// TokenHasher derives the lookup key stored for a session token.
type TokenHasher interface {
	HashToken(token string) string
}

// FieldCipher encrypts individual fields at rest.
type FieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// LedgerStores are the stores that must change together.
type LedgerStores struct {
	Users    UserStore
	Deposits DepositStore
}

// Ledger runs fn with stores bound to a single transaction.
type Ledger interface {
	Atomically(ctx context.Context, fn func(LedgerStores) error) error
}

type sqlLedger struct {
	tm       database.Transactor
	users    *repository.UserRepository
	deposits *repository.DepositRepository
}

// NewSQLLedger binds the ledger to the transaction manager.
func NewSQLLedger(tm database.Transactor, repos *repository.Repositories) Ledger {
	return &sqlLedger{tm: tm, users: repos.Users, deposits: repos.Deposits}
}

func (l *sqlLedger) Atomically(ctx context.Context, fn func(LedgerStores) error) error {
	return l.tm.Execute(ctx, func(tx *sql.Tx) error {
		return fn(LedgerStores{
			Users:    l.users.WithTx(tx),
			Deposits: l.deposits.WithTx(tx),
		})
	})
}

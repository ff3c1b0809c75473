package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/amirk1998/secure-bank/pkg/errors"
)

const defaultTxTimeout = 30 * time.Second

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transactor runs fn atomically.
type Transactor interface {
	Execute(ctx context.Context, fn func(*sql.Tx) error) error
}

type TransactionManager struct {
	db      *sql.DB
	timeout time.Duration
}

func NewTransactionManager(db *sql.DB) *TransactionManager {
	return &TransactionManager{db: db, timeout: defaultTxTimeout}
}

// Execute runs fn in one serializable transaction. An error from fn is
// returned unchanged after rollback; begin and commit failures wrap
// errors.ErrTransactionFailed.
func (tm *TransactionManager) Execute(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, tm.timeout)
	defer cancel()

	tx, err := tm.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("%w: begin: %v", errors.ErrTransactionFailed, err)
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && err != nil {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	finished = true
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", errors.ErrTransactionFailed, err)
	}
	return nil
}

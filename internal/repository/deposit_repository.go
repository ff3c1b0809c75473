package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/amirk1998/secure-bank/internal/database"
	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

type DepositRepository struct {
	db database.DBTX
}

func NewDepositRepository(db database.DBTX) *DepositRepository {
	return &DepositRepository{db: db}
}

func (r *DepositRepository) WithTx(tx database.DBTX) *DepositRepository {
	return &DepositRepository{db: tx}
}

func (r *DepositRepository) Create(ctx context.Context, fd *models.FixedDeposit) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO fixed_deposits (id, user_id, principal, interest_rate, duration_months,
                                    created_at, maturity_date, maturity_amount, status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		fd.ID,
		fd.UserID,
		fd.Principal,
		fd.InterestRate,
		fd.DurationMonths,
		fd.CreatedAt,
		fd.MaturityDate,
		fd.MaturityAmount,
		string(fd.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to create fixed deposit: %w", err)
	}
	return nil
}

// ListByUser returns the user's deposits, newest first.
func (r *DepositRepository) ListByUser(ctx context.Context, userID int) ([]*models.FixedDeposit, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, user_id, principal, interest_rate, duration_months,
               created_at, maturity_date, maturity_amount, status
        FROM fixed_deposits
        WHERE user_id = ?
        ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fixed deposits: %w", err)
	}
	defer rows.Close()

	deposits := []*models.FixedDeposit{}
	for rows.Next() {
		fd := &models.FixedDeposit{}
		var status string
		if err := rows.Scan(&fd.ID, &fd.UserID, &fd.Principal, &fd.InterestRate, &fd.DurationMonths,
			&fd.CreatedAt, &fd.MaturityDate, &fd.MaturityAmount, &status); err != nil {
			return nil, fmt.Errorf("failed to scan fixed deposit: %w", err)
		}
		fd.Status = models.DepositStatus(status)
		deposits = append(deposits, fd)
	}

	return deposits, rows.Err()
}

// GetByID returns one deposit owned by userID.
func (r *DepositRepository) GetByID(ctx context.Context, userID int, id string) (*models.FixedDeposit, error) {
	fd := &models.FixedDeposit{}
	var status string
	err := r.db.QueryRowContext(ctx, `
        SELECT id, user_id, principal, interest_rate, duration_months,
               created_at, maturity_date, maturity_amount, status
        FROM fixed_deposits
        WHERE id = ? AND user_id = ?
    `, id, userID).Scan(&fd.ID, &fd.UserID, &fd.Principal, &fd.InterestRate, &fd.DurationMonths,
		&fd.CreatedAt, &fd.MaturityDate, &fd.MaturityAmount, &status)

	if err == sql.ErrNoRows {
		return nil, errors.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fixed deposit: %w", err)
	}

	fd.Status = models.DepositStatus(status)
	return fd, nil
}

// Delete removes a deposit owned by userID.
func (r *DepositRepository) Delete(ctx context.Context, userID int, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM fixed_deposits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete fixed deposit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return errors.ErrRecordNotFound
	}

	return nil
}

// FreezeAll moves every deposit of userID to Frozen.
func (r *DepositRepository) FreezeAll(ctx context.Context, userID int) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE fixed_deposits SET status = ? WHERE user_id = ?`,
		string(models.DepositFrozen), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to freeze fixed deposits: %w", err)
	}
	return result.RowsAffected()
}

package repository

import (
	"context"
	"fmt"

	"github.com/amirk1998/secure-bank/internal/database"
	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

type BeneficiaryRepository struct {
	db database.DBTX
}

func NewBeneficiaryRepository(db database.DBTX) *BeneficiaryRepository {
	return &BeneficiaryRepository{db: db}
}

// Add stores b unless the user already has a beneficiary with the same
// identifier. created is false for a duplicate.
func (r *BeneficiaryRepository) Add(ctx context.Context, b *models.Beneficiary) (created bool, err error) {
	result, err := r.db.ExecContext(ctx, `
        INSERT INTO beneficiaries (id, user_id, name, type, identifier, details, account_number, ifsc, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (user_id, identifier) DO NOTHING
    `,
		b.ID,
		b.UserID,
		b.Name,
		b.Type,
		b.Identifier(),
		b.Details,
		b.AccountNumber,
		b.IFSC,
		b.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to add beneficiary: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows == 1, nil
}

// ListByUser returns beneficiaries in the order they were added.
func (r *BeneficiaryRepository) ListByUser(ctx context.Context, userID int) ([]*models.Beneficiary, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, user_id, name, type, details, account_number, ifsc, created_at
        FROM beneficiaries
        WHERE user_id = ?
        ORDER BY created_at ASC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list beneficiaries: %w", err)
	}
	defer rows.Close()

	beneficiaries := []*models.Beneficiary{}
	for rows.Next() {
		b := &models.Beneficiary{}
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Type, &b.Details, &b.AccountNumber, &b.IFSC, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan beneficiary: %w", err)
		}
		beneficiaries = append(beneficiaries, b)
	}

	return beneficiaries, rows.Err()
}

func (r *BeneficiaryRepository) Delete(ctx context.Context, userID int, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM beneficiaries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete beneficiary: %w", err)
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

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/amirk1998/secure-bank/internal/database"
	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

type ComplaintRepository struct {
	db database.DBTX
}

func NewComplaintRepository(db database.DBTX) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

func (r *ComplaintRepository) Create(ctx context.Context, c *models.Complaint) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO complaints (id, user_id, query, image, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, c.ID, c.UserID, c.Query, c.Image, string(c.Status), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create complaint: %w", err)
	}
	return nil
}

// ListByUser returns the user's complaints, newest first.
func (r *ComplaintRepository) ListByUser(ctx context.Context, userID int) ([]*models.Complaint, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, user_id, query, image, status, created_at
        FROM complaints
        WHERE user_id = ?
        ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	defer rows.Close()

	complaints := []*models.Complaint{}
	for rows.Next() {
		c := &models.Complaint{}
		var status string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Query, &c.Image, &status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan complaint: %w", err)
		}
		c.Status = models.ComplaintStatus(status)
		complaints = append(complaints, c)
	}

	return complaints, rows.Err()
}

// GetByID looks a complaint up by id, ignoring case.
func (r *ComplaintRepository) GetByID(ctx context.Context, userID int, id string) (*models.Complaint, error) {
	c := &models.Complaint{}
	var status string
	err := r.db.QueryRowContext(ctx, `
        SELECT id, user_id, query, image, status, created_at
        FROM complaints
        WHERE user_id = ? AND UPPER(id) = UPPER(?)
    `, userID, id).Scan(&c.ID, &c.UserID, &c.Query, &c.Image, &status, &c.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, errors.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get complaint: %w", err)
	}

	c.Status = models.ComplaintStatus(status)
	return c, nil
}

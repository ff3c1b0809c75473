package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

func TestBeneficiaryAdd(t *testing.T) {
	tests := []struct {
		name    string
		req     models.AddBeneficiaryRequest
		wantErr bool
	}{
		{
			name: "valid bank account",
			req:  models.AddBeneficiaryRequest{Name: "Ravi Kumar", IFSC: "SBIN0004567", AccountNumber: "123456789", ConfirmAccountNumber: "123456789"},
		},
		{
			name:    "short name",
			req:     models.AddBeneficiaryRequest{Name: "R", IFSC: "SBIN0004567", AccountNumber: "123456789", ConfirmAccountNumber: "123456789"},
			wantErr: true,
		},
		{
			name:    "fifth character of IFSC must be zero",
			req:     models.AddBeneficiaryRequest{Name: "Ravi", IFSC: "SBIN1004567", AccountNumber: "123456789", ConfirmAccountNumber: "123456789"},
			wantErr: true,
		},
		{
			name:    "account number too long",
			req:     models.AddBeneficiaryRequest{Name: "Ravi", IFSC: "SBIN0004567", AccountNumber: "1234567890123456789", ConfirmAccountNumber: "1234567890123456789"},
			wantErr: true,
		},
		{
			name:    "confirmation mismatch",
			req:     models.AddBeneficiaryRequest{Name: "Ravi", IFSC: "SBIN0004567", AccountNumber: "123456789", ConfirmAccountNumber: "123456780"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewBeneficiaryService(&fakeBeneficiaries{}, discardLogger())
			b, err := svc.Add(context.Background(), 1, &tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.BeneficiaryBankAccount, b.Type)
			assert.NotEmpty(t, b.ID)
		})
	}
}

func TestBeneficiaryAdd_DuplicateAndDelete(t *testing.T) {
	svc := NewBeneficiaryService(&fakeBeneficiaries{}, discardLogger())
	ctx := context.Background()
	req := &models.AddBeneficiaryRequest{Name: "Ravi Kumar", IFSC: "SBIN0004567", AccountNumber: "123456789", ConfirmAccountNumber: "123456789"}

	b, err := svc.Add(ctx, 1, req)
	require.NoError(t, err)

	_, err = svc.Add(ctx, 1, req)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 409, appErr.Code)

	require.NoError(t, svc.Delete(ctx, 1, b.ID))
	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, svc.Delete(ctx, 1, b.ID), errors.ErrRecordNotFound)
}

package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirk1998/secure-bank/pkg/errors"
)

func TestDecodeBaseline(t *testing.T) {
	got, err := decodeBaseline("[101.5,98,120]")
	require.NoError(t, err)
	assert.Equal(t, []float64{101.5, 98, 120}, got)

	got, err = decodeBaseline("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = decodeBaseline("{not json")
	assert.ErrorIs(t, err, errors.ErrCorruptRecord)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("UNIQUE constraint failed: users.email")))
	assert.False(t, isUniqueViolation(fmt.Errorf("database is locked")))
	assert.False(t, isUniqueViolation(nil))
}

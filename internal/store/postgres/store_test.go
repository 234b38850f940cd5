package postgres

import (
	"errors"
	"fmt"
	"testing"

	"order-desk/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, core.ErrNotFound},
		{"unique", &pgconn.PgError{Code: codeUniqueViolation}, core.ErrDuplicate},
		{"foreign key", &pgconn.PgError{Code: codeForeignKeyViolation}, core.ErrNotFound},
		{"deadlock", &pgconn.PgError{Code: codeDeadlockDetected}, core.ErrConflict},
		{"serialization", &pgconn.PgError{Code: codeSerializationFailure}, core.ErrConflict},
		{"lock timeout", &pgconn.PgError{Code: codeLockNotAvailable}, core.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(fmt.Errorf("failed to insert: %w", tt.err))
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassify_ConstraintErrorsAreValidation(t *testing.T) {
	check := &pgconn.PgError{Code: codeCheckViolation, ConstraintName: "order_items_quantity_check"}
	err := classify(fmt.Errorf("failed to insert order item: %w", check))
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "order_items_quantity_check")
	assert.ErrorIs(t, err, check)

	overflow := &pgconn.PgError{Code: codeNumericOutOfRange, Message: "numeric field overflow"}
	err = classify(overflow)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "numeric field overflow")

	plain := errors.New("boom")
	assert.Same(t, plain, classify(plain))
}

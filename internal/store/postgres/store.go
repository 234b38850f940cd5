// Package postgres implements core.Store on PostgreSQL through pgx.
//
// Each unit of work is one READ COMMITTED transaction. Rows that the workflow mutates
// are read with SELECT ... FOR UPDATE, so concurrent placements touching the same variant
// queue behind one another instead of racing.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"order-desk/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE codes the store translates into core sentinels.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeNumericOutOfRange    = "22003"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer pgTx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, &tx{tx: pgTx}); err != nil {
		return classify(err)
	}
	if err := pgTx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// classify attaches the matching core sentinel to database errors that callers branch on.
// Errors that already carry a sentinel are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%w: %w", core.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		if !errors.Is(err, core.ErrConflict) {
			return fmt.Errorf("%w: %w", core.ErrConflict, err)
		}
	case codeUniqueViolation:
		if !errors.Is(err, core.ErrDuplicate) {
			return fmt.Errorf("%w: %w", core.ErrDuplicate, err)
		}
	case codeForeignKeyViolation:
		if !errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("%w: %w", core.ErrNotFound, err)
		}
	case codeCheckViolation, codeNumericOutOfRange:
		if !core.IsValidation(err) {
			verr := &core.ValidationError{Field: pgErr.ColumnName, Message: "value rejected by the database: " + pgErr.Message}
			if pgErr.ConstraintName != "" {
				verr.Message = "value violates " + pgErr.ConstraintName
			}
			return fmt.Errorf("%w: %w", verr, err)
		}
	}
	return err
}

type tx struct {
	tx pgx.Tx
}

var (
	_ core.Store = (*Store)(nil)
	_ core.Tx    = (*tx)(nil)
)

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func notFound(kind string, id any, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", kind, id, core.ErrNotFound)
	}
	return classify(fmt.Errorf("failed to fetch %s %v: %w", kind, id, err))
}

// mustAffect turns an UPDATE that matched nothing into ErrNotFound.
func mustAffect(tag pgconn.CommandTag, kind string, id any) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %v: %w", kind, id, core.ErrNotFound)
	}
	return nil
}

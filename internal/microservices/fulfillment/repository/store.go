package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"restaurant-fulfillment/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func newRepository(q querier) *Repository {
	return &Repository{
		TableRepo:    &TableRepository{q: q},
		OrderRepo:    &OrderRepository{q: q},
		KitchenRepo:  &KitchenRepository{q: q},
		LedgerRepo:   &LedgerRepository{q: q},
		CustomerRepo: &CustomerRepository{q: q},
	}
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) Read() *Repository { return newRepository(s.db) }

func (s *PostgresStore) InTx(ctx context.Context, fn func(r *Repository) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return mapError(fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(newRepository(tx)); err != nil {
		return mapError(err)
	}
	if err := tx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

const (
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
	sqlstateUniqueViolation      = "23505"
)

// mapError turns concurrent-write failures into domain.ErrPersistenceConflict.
// Unique violations count too: they mean another transaction won a race on
// the same key (order number, customer phone).
func mapError(err error) error {
	if err == nil || errors.Is(err, domain.ErrPersistenceConflict) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateSerializationFailure, sqlstateDeadlockDetected, sqlstateUniqueViolation:
			return fmt.Errorf("%w: %s (%s)", domain.ErrPersistenceConflict, pgErr.Message, pgErr.Code)
		}
	}
	return err
}

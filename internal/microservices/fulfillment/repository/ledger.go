package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"restaurant-fulfillment/internal/domain"
)

type LedgerRepository struct {
	q querier
}

func (r *LedgerRepository) Balance(ctx context.Context, customerID uuid.UUID, asOf time.Time) (int64, error) {
	var balance int64
	err := r.q.QueryRowContext(ctx, `
		SELECT (
			COALESCE(SUM(points) FILTER (WHERE kind='earn' AND (expires_at IS NULL OR expires_at > $2)), 0)
			- COALESCE(SUM(points) FILTER (WHERE kind='redeem'), 0)
		)::bigint
		FROM loyalty_ledger WHERE customer_id=$1
	`, customerID, asOf).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("balance of customer %s: %w", customerID, err)
	}
	return balance, nil
}

func (r *LedgerRepository) Insert(ctx context.Context, e *domain.LedgerEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO loyalty_ledger (id, customer_id, order_id, kind, points, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.CustomerID, nullUUID(e.OrderID), e.Kind, e.Points, e.ExpiresAt, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert %s ledger entry: %w", e.Kind, err)
	}
	return nil
}

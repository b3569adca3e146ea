package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"restaurant-fulfillment/internal/domain"
)

type TableRepository struct {
	q querier
}

func (r *TableRepository) GetByNumber(ctx context.Context, restaurantID uuid.UUID, number int) (domain.Table, error) {
	var t domain.Table
	err := r.q.QueryRowContext(ctx, `
		SELECT id, restaurant_id, number, capacity, status, updated_at
		FROM restaurant_tables WHERE restaurant_id=$1 AND number=$2
	`, restaurantID, number).Scan(&t.ID, &t.RestaurantID, &t.Number, &t.Capacity, &t.Status, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, &domain.TableError{Number: number}
	}
	if err != nil {
		return t, fmt.Errorf("get table %d: %w", number, err)
	}
	return t, nil
}

func (r *TableRepository) TryOccupy(ctx context.Context, restaurantID uuid.UUID, number int) (domain.Table, error) {
	var t domain.Table
	err := r.q.QueryRowContext(ctx, `
		UPDATE restaurant_tables SET status='occupied', updated_at=now()
		WHERE restaurant_id=$1 AND number=$2 AND status='available'
		RETURNING id, restaurant_id, number, capacity, status, updated_at
	`, restaurantID, number).Scan(&t.ID, &t.RestaurantID, &t.Number, &t.Capacity, &t.Status, &t.UpdatedAt)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("occupy table %d: %w", number, err)
	}

	// Nothing updated: report why.
	current, gerr := r.GetByNumber(ctx, restaurantID, number)
	if gerr != nil {
		return t, gerr
	}
	return t, &domain.TableError{Number: number, Status: current.Status}
}

func (r *TableRepository) Release(ctx context.Context, tableID uuid.UUID) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE restaurant_tables SET status='available', updated_at=now()
		WHERE id=$1 AND status='occupied'
	`, tableID)
	if err != nil {
		return false, fmt.Errorf("release table %s: %w", tableID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"restaurant-fulfillment/internal/domain"
)

type KitchenRepository struct {
	q querier
}

const workItemColumns = `id, order_id, restaurant_id, status, assigned_by, staff_id,
	assigned_at, started_at, completed_at, cancelled_at, updated_at`

func (r *KitchenRepository) Insert(ctx context.Context, w *domain.KitchenWorkItem) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO kitchen_work_items (`+workItemColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, w.ID, w.OrderID, w.RestaurantID, w.Status, w.AssignedBy, w.StaffID,
		w.AssignedAt, w.StartedAt, w.CompletedAt, w.CancelledAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert kitchen item for order %s: %w", w.OrderID, err)
	}
	return nil
}

func (r *KitchenRepository) Get(ctx context.Context, orderID uuid.UUID) (domain.KitchenWorkItem, error) {
	return r.get(ctx, `SELECT `+workItemColumns+` FROM kitchen_work_items WHERE order_id=$1`, orderID)
}

func (r *KitchenRepository) GetForUpdate(ctx context.Context, orderID uuid.UUID) (domain.KitchenWorkItem, error) {
	return r.get(ctx, `SELECT `+workItemColumns+` FROM kitchen_work_items WHERE order_id=$1 FOR UPDATE`, orderID)
}

func (r *KitchenRepository) get(ctx context.Context, query string, orderID uuid.UUID) (domain.KitchenWorkItem, error) {
	w, err := scanWorkItem(r.q.QueryRowContext(ctx, query, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return w, domain.ErrOrderNotFound
	}
	if err != nil {
		return w, fmt.Errorf("get kitchen item for order %s: %w", orderID, err)
	}
	return w, nil
}

func (r *KitchenRepository) Update(ctx context.Context, w *domain.KitchenWorkItem) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE kitchen_work_items
		SET status=$2, staff_id=$3, started_at=$4, completed_at=$5, cancelled_at=$6, updated_at=$7
		WHERE id=$1
	`, w.ID, w.Status, w.StaffID, w.StartedAt, w.CompletedAt, w.CancelledAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update kitchen item %s: %w", w.ID, err)
	}
	return expectOne(res, domain.ErrOrderNotFound)
}

func (r *KitchenRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, statuses []domain.KitchenStatus) ([]domain.KitchenWorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM kitchen_work_items WHERE restaurant_id=$1`
	args := []any{restaurantID}
	if len(statuses) > 0 {
		ph := make([]string, len(statuses))
		for i, s := range statuses {
			args = append(args, string(s))
			ph[i] = fmt.Sprintf("$%d", i+2)
		}
		query += ` AND status IN (` + strings.Join(ph, ",") + `)`
	}
	query += ` ORDER BY assigned_at`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list kitchen items: %w", err)
	}
	defer rows.Close()

	var out []domain.KitchenWorkItem
	for rows.Next() {
		w, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWorkItem(row rowScanner) (domain.KitchenWorkItem, error) {
	var w domain.KitchenWorkItem
	err := row.Scan(&w.ID, &w.OrderID, &w.RestaurantID, &w.Status, &w.AssignedBy, &w.StaffID,
		&w.AssignedAt, &w.StartedAt, &w.CompletedAt, &w.CancelledAt, &w.UpdatedAt)
	return w, err
}

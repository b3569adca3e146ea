package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-fulfillment/internal/domain"
)

type OrderRepository struct {
	q querier
}

const orderColumns = `id, order_number, restaurant_id, table_id, table_number, customer_id, order_type,
	pickup_location, items, total_amount, currency, status, payment_status, otp, qr_code,
	points_redeemed, points_earned, discount_amount, created_at, updated_at, completed_at`

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
	`,
		o.ID, o.OrderNumber, o.RestaurantID, nullUUID(o.TableID), o.TableNumber, nullUUID(o.CustomerID), o.OrderType,
		o.PickupLocation, o.Items, o.TotalAmount, o.Currency, o.Status, o.PaymentStatus, o.OTP, o.QRCode,
		o.Loyalty.PointsRedeemed, o.Loyalty.PointsEarned, o.Loyalty.DiscountAmount, o.CreatedAt, o.UpdatedAt, o.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order %s: %w", o.OrderNumber, err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return o, domain.ErrOrderNotFound
	}
	if err != nil {
		return o, fmt.Errorf("get order %s: %w", id, err)
	}
	return o, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, o *domain.Order) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE orders SET status=$2, updated_at=$3, completed_at=$4 WHERE id=$1
	`, o.ID, o.Status, o.UpdatedAt, o.CompletedAt)
	if err != nil {
		return fmt.Errorf("update order %s status: %w", o.ID, err)
	}
	return expectOne(res, domain.ErrOrderNotFound)
}

func (r *OrderRepository) ReplaceItems(ctx context.Context, id uuid.UUID, items domain.LineItems, total decimal.Decimal, pointsEarned int64, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE orders SET items=$2, total_amount=$3, points_earned=$4, updated_at=$5 WHERE id=$1
	`, id, items, total, pointsEarned, at)
	if err != nil {
		return fmt.Errorf("replace items of order %s: %w", id, err)
	}
	return expectOne(res, domain.ErrOrderNotFound)
}

func (r *OrderRepository) ConsumeOTP(ctx context.Context, id uuid.UUID, otp string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE orders SET otp=NULL, updated_at=$3 WHERE id=$1 AND otp=$2
	`, id, otp, at)
	if err != nil {
		return false, fmt.Errorf("consume otp of order %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *OrderRepository) AppendStatusLog(ctx context.Context, e domain.StatusLogEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at, notes)
		VALUES ($1, $2, $3, $4, $5)
	`, e.OrderID, e.Status, e.ChangedBy, e.ChangedAt, e.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert order status log: %w", err)
	}
	return nil
}

func (r *OrderRepository) Timeline(ctx context.Context, id uuid.UUID) ([]domain.StatusLogEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT order_id, status, changed_by, changed_at, notes
		FROM order_status_log WHERE order_id=$1 ORDER BY changed_at, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("timeline of order %s: %w", id, err)
	}
	defer rows.Close()

	var out []domain.StatusLogEntry
	for rows.Next() {
		var e domain.StatusLogEntry
		if err := rows.Scan(&e.OrderID, &e.Status, &e.ChangedBy, &e.ChangedAt, &e.Notes); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o          domain.Order
		tableID    uuid.NullUUID
		customerID uuid.NullUUID
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.RestaurantID, &tableID, &o.TableNumber, &customerID, &o.OrderType,
		&o.PickupLocation, &o.Items, &o.TotalAmount, &o.Currency, &o.Status, &o.PaymentStatus, &o.OTP, &o.QRCode,
		&o.Loyalty.PointsRedeemed, &o.Loyalty.PointsEarned, &o.Loyalty.DiscountAmount, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt,
	)
	if err != nil {
		return o, err
	}
	if tableID.Valid {
		o.TableID = &tableID.UUID
	}
	if customerID.Valid {
		o.CustomerID = &customerID.UUID
	}
	return o, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

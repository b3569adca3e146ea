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

var ErrCustomerNotFound = errors.New("customer not found")

type CustomerRepository struct {
	q querier
}

const customerColumns = `id, restaurant_id, name, phone, COALESCE(email, ''), total_orders, total_spent, last_order_date, created_at`

func (r *CustomerRepository) FindByContact(ctx context.Context, restaurantID uuid.UUID, phone, email string) (domain.Customer, bool, error) {
	c, err := scanCustomer(r.q.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE restaurant_id=$1 AND phone=$2`, restaurantID, phone))
	if err == nil {
		return c, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return c, false, fmt.Errorf("find customer by phone: %w", err)
	}
	if email == "" {
		return c, false, nil
	}

	c, err = scanCustomer(r.q.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE restaurant_id=$1 AND lower(email)=lower($2)`, restaurantID, email))
	if errors.Is(err, sql.ErrNoRows) {
		return c, false, nil
	}
	if err != nil {
		return c, false, fmt.Errorf("find customer by email: %w", err)
	}
	return c, true, nil
}

func (r *CustomerRepository) Get(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	c, err := scanCustomer(r.q.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrCustomerNotFound
	}
	if err != nil {
		return c, fmt.Errorf("get customer %s: %w", id, err)
	}
	return c, nil
}

func (r *CustomerRepository) Insert(ctx context.Context, c *domain.Customer) error {
	var email any
	if c.Email != "" {
		email = c.Email
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO customers (id, restaurant_id, name, phone, email, total_orders, total_spent, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, $6)
	`, c.ID, c.RestaurantID, c.Name, c.Phone, email, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

func (r *CustomerRepository) RecordOrder(ctx context.Context, id uuid.UUID, amount decimal.Decimal, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE customers
		SET total_orders = total_orders + 1, total_spent = total_spent + $2, last_order_date = $3
		WHERE id=$1
	`, id, amount, at)
	if err != nil {
		return fmt.Errorf("update customer %s counters: %w", id, err)
	}
	return expectOne(res, ErrCustomerNotFound)
}

func (r *CustomerRepository) AdjustSpent(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	res, err := r.q.ExecContext(ctx, `UPDATE customers SET total_spent = total_spent + $2 WHERE id=$1`, id, delta)
	if err != nil {
		return fmt.Errorf("adjust customer %s spent: %w", id, err)
	}
	return expectOne(res, ErrCustomerNotFound)
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.RestaurantID, &c.Name, &c.Phone, &c.Email, &c.TotalOrders, &c.TotalSpent, &c.LastOrderDate, &c.CreatedAt)
	return c, err
}

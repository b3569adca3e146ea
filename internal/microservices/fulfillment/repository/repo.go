package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-fulfillment/internal/domain"
)

type TableRepositoryInterface interface {
	GetByNumber(ctx context.Context, restaurantID uuid.UUID, number int) (domain.Table, error)
	// TryOccupy flips an available table to occupied; any other state yields a *domain.TableError.
	TryOccupy(ctx context.Context, restaurantID uuid.UUID, number int) (domain.Table, error)
	// Release reports whether the table was occupied and is now available.
	Release(ctx context.Context, tableID uuid.UUID) (bool, error)
}

type OrderRepositoryInterface interface {
	Insert(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id uuid.UUID) (domain.Order, error)
	UpdateStatus(ctx context.Context, o *domain.Order) error
	// ReplaceItems rewrites the line items, total and earned points of an order.
	ReplaceItems(ctx context.Context, id uuid.UUID, items domain.LineItems, total decimal.Decimal, pointsEarned int64, at time.Time) error
	// ConsumeOTP clears the stored otp when it matches and reports whether it did.
	ConsumeOTP(ctx context.Context, id uuid.UUID, otp string, at time.Time) (bool, error)
	AppendStatusLog(ctx context.Context, e domain.StatusLogEntry) error
	Timeline(ctx context.Context, id uuid.UUID) ([]domain.StatusLogEntry, error)
}

type KitchenRepositoryInterface interface {
	Insert(ctx context.Context, w *domain.KitchenWorkItem) error
	Get(ctx context.Context, orderID uuid.UUID) (domain.KitchenWorkItem, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, orderID uuid.UUID) (domain.KitchenWorkItem, error)
	Update(ctx context.Context, w *domain.KitchenWorkItem) error
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, statuses []domain.KitchenStatus) ([]domain.KitchenWorkItem, error)
}

type LedgerRepositoryInterface interface {
	// Balance is unexpired earn minus redeem, evaluated at asOf.
	Balance(ctx context.Context, customerID uuid.UUID, asOf time.Time) (int64, error)
	Insert(ctx context.Context, e *domain.LedgerEntry) error
}

type CustomerRepositoryInterface interface {
	// FindByContact matches phone first, then email.
	FindByContact(ctx context.Context, restaurantID uuid.UUID, phone, email string) (domain.Customer, bool, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Customer, error)
	Insert(ctx context.Context, c *domain.Customer) error
	RecordOrder(ctx context.Context, id uuid.UUID, amount decimal.Decimal, at time.Time) error
	// AdjustSpent adds delta (possibly negative) to total_spent.
	AdjustSpent(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
}

// Repository groups the repositories bound to one connection or transaction.
type Repository struct {
	TableRepo    TableRepositoryInterface
	OrderRepo    OrderRepositoryInterface
	KitchenRepo  KitchenRepositoryInterface
	LedgerRepo   LedgerRepositoryInterface
	CustomerRepo CustomerRepositoryInterface
}

// Store hands out repositories. InTx runs fn inside one serializable
// transaction: fn's error rolls everything back, nil commits.
type Store interface {
	Read() *Repository
	InTx(ctx context.Context, fn func(r *Repository) error) error
}

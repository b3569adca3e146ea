package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeDineIn     OrderType = "dine-in"
	OrderTypePickup     OrderType = "pickup"
	OrderTypePOSCounter OrderType = "pos-counter"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypePickup, OrderTypePOSCounter:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableReserved  TableStatus = "reserved"
	TableInactive  TableStatus = "inactive"
)

type Table struct {
	ID           uuid.UUID   `json:"id"`
	RestaurantID uuid.UUID   `json:"restaurantId"`
	Number       int         `json:"number"`
	Capacity     int         `json:"capacity"`
	Status       TableStatus `json:"status"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// LoyaltyUsage records the loyalty effects applied when the order was placed.
type LoyaltyUsage struct {
	PointsRedeemed int64           `json:"pointsRedeemed"`
	PointsEarned   int64           `json:"pointsEarned"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

type Order struct {
	ID             uuid.UUID       `json:"id"`
	OrderNumber    string          `json:"orderNumber"`
	RestaurantID   uuid.UUID       `json:"restaurantId"`
	TableID        *uuid.UUID      `json:"tableId,omitempty"`
	TableNumber    *int            `json:"tableNumber,omitempty"`
	CustomerID     *uuid.UUID      `json:"customerId,omitempty"`
	OrderType      OrderType       `json:"orderType"`
	PickupLocation string          `json:"pickupLocation,omitempty"`
	Items          LineItems       `json:"items"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Currency       string          `json:"currency"`
	Status         OrderStatus     `json:"status"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus"`
	OTP            *string         `json:"-"`
	QRCode         string          `json:"qrCodeUrl,omitempty"`
	Loyalty        LoyaltyUsage    `json:"loyalty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
}

func (o *Order) IsDineIn() bool { return o.OrderType == OrderTypeDineIn }

// OrderSummary is the compact view carried in display events.
type OrderSummary struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	OrderType   OrderType       `json:"orderType"`
	TableNumber *int            `json:"tableNumber,omitempty"`
	Items       LineItems       `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (o *Order) Summary() OrderSummary {
	return OrderSummary{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		OrderType:   o.OrderType,
		TableNumber: o.TableNumber,
		Items:       o.Items,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	}
}

type Customer struct {
	ID            uuid.UUID       `json:"id"`
	RestaurantID  uuid.UUID       `json:"restaurantId"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email,omitempty"`
	TotalOrders   int             `json:"totalOrders"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
	LastOrderDate *time.Time      `json:"lastOrderDate,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type LedgerKind string

const (
	LedgerEarn   LedgerKind = "earn"
	LedgerRedeem LedgerKind = "redeem"
)

type LedgerEntry struct {
	ID         uuid.UUID  `json:"id"`
	CustomerID uuid.UUID  `json:"customerId"`
	OrderID    *uuid.UUID `json:"orderId,omitempty"`
	Kind       LedgerKind `json:"kind"`
	Points     int64      `json:"points"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Counts reports whether the entry contributes to a balance evaluated at asOf.
func (e LedgerEntry) Counts(asOf time.Time) bool {
	if e.Kind == LedgerRedeem {
		return true
	}
	return e.ExpiresAt == nil || e.ExpiresAt.After(asOf)
}

type StatusLogEntry struct {
	OrderID   uuid.UUID   `json:"orderId"`
	Status    OrderStatus `json:"status"`
	ChangedBy string      `json:"changedBy"`
	ChangedAt time.Time   `json:"changedAt"`
	Notes     string      `json:"notes,omitempty"`
}

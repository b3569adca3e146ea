package domain

import (
	"time"

	"github.com/google/uuid"
)

type KitchenStatus string

const (
	KitchenPending   KitchenStatus = "pending"
	KitchenPreparing KitchenStatus = "preparing"
	KitchenReady     KitchenStatus = "ready"
	KitchenCompleted KitchenStatus = "completed"
	KitchenCancelled KitchenStatus = "cancelled"
)

var kitchenForward = map[KitchenStatus]KitchenStatus{
	KitchenPending:   KitchenPreparing,
	KitchenPreparing: KitchenReady,
	KitchenReady:     KitchenCompleted,
}

func (s KitchenStatus) Valid() bool {
	switch s {
	case KitchenPending, KitchenPreparing, KitchenReady, KitchenCompleted, KitchenCancelled:
		return true
	}
	return false
}

func (s KitchenStatus) Terminal() bool {
	return s == KitchenCompleted || s == KitchenCancelled
}

// CanTransitionTo allows one step forward, or cancellation from any non-terminal status.
func (s KitchenStatus) CanTransitionTo(next KitchenStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == KitchenCancelled {
		return true
	}
	return kitchenForward[s] == next
}

// ReleasesTable reports whether a dine-in table is freed on entering s.
func (s KitchenStatus) ReleasesTable() bool { return s.Terminal() }

func (s KitchenStatus) OrderStatus() OrderStatus { return OrderStatus(s) }

type KitchenWorkItem struct {
	ID           uuid.UUID     `json:"id"`
	OrderID      uuid.UUID     `json:"orderId"`
	RestaurantID uuid.UUID     `json:"restaurantId"`
	Status       KitchenStatus `json:"status"`
	AssignedBy   string        `json:"assignedBy"`
	StaffID      *string       `json:"staffId,omitempty"`
	AssignedAt   time.Time     `json:"assignedAt"`
	StartedAt    *time.Time    `json:"startedAt,omitempty"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
	CancelledAt  *time.Time    `json:"cancelledAt,omitempty"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func NewKitchenWorkItem(order *Order, assignedBy string, now time.Time) KitchenWorkItem {
	return KitchenWorkItem{
		ID:           uuid.New(),
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		Status:       KitchenPending,
		AssignedBy:   assignedBy,
		AssignedAt:   now,
		UpdatedAt:    now,
	}
}

// Transition moves the item to next and stamps the matching timestamp.
// The item is left untouched when the move is not allowed.
func (w *KitchenWorkItem) Transition(next KitchenStatus, staffID string, now time.Time) error {
	if !w.Status.CanTransitionTo(next) {
		return &TransitionError{From: w.Status, To: next}
	}
	w.Status = next
	w.UpdatedAt = now
	if staffID != "" {
		w.StaffID = &staffID
	}
	t := now
	switch next {
	case KitchenPreparing:
		w.StartedAt = &t
	case KitchenCompleted:
		w.CompletedAt = &t
	case KitchenCancelled:
		w.CancelledAt = &t
	}
	return nil
}

// Reset returns a non-terminal item to pending.
func (w *KitchenWorkItem) Reset(staffID string, now time.Time) error {
	if w.Status.Terminal() {
		return &TransitionError{From: w.Status, To: KitchenPending}
	}
	w.Status = KitchenPending
	w.StartedAt = nil
	w.UpdatedAt = now
	if staffID != "" {
		w.StaffID = &staffID
	}
	return nil
}

package domain

import "github.com/google/uuid"

const (
	EventNewKitchenOrder    = "newKitchenOrder"
	EventKitchenOrderUpdate = "kitchenOrderUpdate"
	EventOrdersUpdate       = "ordersUpdate"
)

type NewKitchenOrderPayload struct {
	WorkItem KitchenWorkItem `json:"workItem"`
	Order    OrderSummary    `json:"order"`
}

type OrdersUpdatePayload struct {
	OrderIDs []uuid.UUID `json:"orderIds"`
}

// KitchenAction is the body staff terminals publish on the kitchen_actions exchange.
type KitchenAction struct {
	OrderID uuid.UUID     `json:"order_id"`
	Status  KitchenStatus `json:"status"`
	StaffID string        `json:"staff_id"`
}

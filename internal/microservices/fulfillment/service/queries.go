package service

import (
	"context"

	"github.com/google/uuid"

	"restaurant-fulfillment/internal/domain"
)

func (c *Coordinator) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	o, err := c.store.Read().OrderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListKitchenItems is the full refetch displays use to reconcile after
// missing events. An empty statuses list returns every item.
func (c *Coordinator) ListKitchenItems(ctx context.Context, restaurantID uuid.UUID, statuses []domain.KitchenStatus) ([]domain.KitchenWorkItem, error) {
	for _, s := range statuses {
		if !s.Valid() {
			return nil, domain.NewValidationError("status", "oneof")
		}
	}
	items, err := c.store.Read().KitchenRepo.ListByRestaurant(ctx, restaurantID, statuses)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.KitchenWorkItem{}
	}
	return items, nil
}

func (c *Coordinator) OrderTimeline(ctx context.Context, orderID uuid.UUID) ([]domain.StatusLogEntry, error) {
	read := c.store.Read()
	if _, err := read.OrderRepo.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return read.OrderRepo.Timeline(ctx, orderID)
}

func (c *Coordinator) GetBalance(ctx context.Context, customerID uuid.UUID) (*domain.Balance, error) {
	read := c.store.Read()
	if _, err := read.CustomerRepo.Get(ctx, customerID); err != nil {
		return nil, err
	}
	pts, err := c.ledger.AvailableBalance(ctx, read.LedgerRepo, customerID, c.now())
	if err != nil {
		return nil, err
	}
	return &domain.Balance{CustomerID: customerID, Points: pts}, nil
}

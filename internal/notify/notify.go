// Package notify delivers display invalidation events. Delivery is
// best-effort and at-most-once; consumers re-fetch authoritative state.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"restaurant-fulfillment/internal/domain"
)

type Notifier interface {
	Publish(ctx context.Context, restaurantID uuid.UUID, eventType string, payload any) error
}

type Envelope struct {
	EventID      string          `json:"event_id"`
	Type         string          `json:"type"`
	RestaurantID string          `json:"restaurant_id"`
	Payload      json.RawMessage `json:"payload"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

func NewEnvelope(restaurantID uuid.UUID, eventType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:      uuid.NewString(),
		Type:         eventType,
		RestaurantID: restaurantID.String(),
		Payload:      raw,
		OccurredAt:   time.Now().UTC(),
	}, nil
}

func encode(restaurantID uuid.UUID, eventType string, payload any) (Envelope, []byte, error) {
	env, err := NewEnvelope(restaurantID, eventType, payload)
	if err != nil {
		return env, nil, err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return env, nil, fmt.Errorf("encode envelope: %w", err)
	}
	return env, body, nil
}

func deliveryError(backend string, err error) error {
	return fmt.Errorf("%s: %w: %w", backend, domain.ErrNotificationDelivery, err)
}

type Nop struct{}

func (Nop) Publish(context.Context, uuid.UUID, string, any) error { return nil }

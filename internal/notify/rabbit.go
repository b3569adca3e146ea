package notify

import (
	"context"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-fulfillment/internal/connections/rabbitmq"
)

// Publisher is the confirm-mode publish of rabbitmq.Client.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte, headers amqp.Table, contentType string, persistent bool) error
}

// RabbitNotifier publishes to the displays topic exchange, for display
// clients that bind their own queues.
type RabbitNotifier struct {
	pub Publisher
}

func NewRabbitNotifier(pub Publisher) *RabbitNotifier { return &RabbitNotifier{pub: pub} }

func (n *RabbitNotifier) Publish(ctx context.Context, restaurantID uuid.UUID, eventType string, payload any) error {
	env, body, err := encode(restaurantID, eventType, payload)
	if err != nil {
		return err
	}
	headers := amqp.Table{"MessageId": env.EventID, "EventType": eventType}
	key := rabbitmq.DisplayKey(restaurantID.String(), eventType)
	if err := n.pub.Publish(ctx, rabbitmq.ExchangeDisplays, key, body, headers, "application/json", false); err != nil {
		return deliveryError("rabbitmq", err)
	}
	return nil
}

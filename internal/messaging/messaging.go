// Package messaging queues customer-facing messages (order confirmations,
// feedback requests) for the messenger worker to deliver.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-fulfillment/internal/connections/rabbitmq"
	"restaurant-fulfillment/internal/domain"
)

type Kind string

const (
	KindOrderConfirmation Kind = "order_confirmation"
	KindFeedbackRequest   Kind = "feedback_request"
)

type Recipient struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type Confirmation struct {
	OrderID      uuid.UUID          `json:"order_id"`
	OrderNumber  string             `json:"order_number"`
	RestaurantID uuid.UUID          `json:"restaurant_id"`
	Recipient    Recipient          `json:"recipient"`
	OTP          string             `json:"otp"`
	Total        string             `json:"total"`
	Currency     string             `json:"currency"`
	Status       domain.OrderStatus `json:"status"`
	PointsEarned int64              `json:"points_earned"`
}

type FeedbackRequest struct {
	OrderID      uuid.UUID `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Recipient    Recipient `json:"recipient"`
}

// Message is the queued body consumed by the messenger.
type Message struct {
	ID           string           `json:"id"`
	Kind         Kind             `json:"kind"`
	Confirmation *Confirmation    `json:"confirmation,omitempty"`
	Feedback     *FeedbackRequest `json:"feedback,omitempty"`
	QueuedAt     time.Time        `json:"queued_at"`
}

func (m Message) Recipient() Recipient {
	switch {
	case m.Confirmation != nil:
		return m.Confirmation.Recipient
	case m.Feedback != nil:
		return m.Feedback.Recipient
	}
	return Recipient{}
}

type Gateway interface {
	SendOrderConfirmation(ctx context.Context, c Confirmation) error
	SendFeedbackRequest(ctx context.Context, f FeedbackRequest) error
}

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte, headers amqp.Table, contentType string, persistent bool) error
}

// QueueGateway enqueues messages on messages.q through the default exchange.
type QueueGateway struct {
	pub   Publisher
	queue string
}

func NewQueueGateway(pub Publisher) *QueueGateway {
	return &QueueGateway{pub: pub, queue: rabbitmq.QueueMessages}
}

func (g *QueueGateway) SendOrderConfirmation(ctx context.Context, c Confirmation) error {
	return g.enqueue(ctx, Message{Kind: KindOrderConfirmation, Confirmation: &c})
}

func (g *QueueGateway) SendFeedbackRequest(ctx context.Context, f FeedbackRequest) error {
	return g.enqueue(ctx, Message{Kind: KindFeedbackRequest, Feedback: &f})
}

func (g *QueueGateway) enqueue(ctx context.Context, m Message) error {
	m.ID = uuid.NewString()
	m.QueuedAt = time.Now().UTC()
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode %s: %w", m.Kind, err)
	}
	headers := amqp.Table{"MessageId": m.ID, "Kind": string(m.Kind)}
	if err := g.pub.Publish(ctx, "", g.queue, body, headers, "application/json", true); err != nil {
		return fmt.Errorf("enqueue %s: %w: %w", m.Kind, domain.ErrNotificationDelivery, err)
	}
	return nil
}

type Nop struct{}

func (Nop) SendOrderConfirmation(context.Context, Confirmation) error { return nil }
func (Nop) SendFeedbackRequest(context.Context, FeedbackRequest) error { return nil }

package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier appends every event to the order lifecycle topic, keyed by
// restaurant, for reporting consumers.
type KafkaNotifier struct {
	w MessageWriter
}

func NewKafkaNotifier(w MessageWriter) *KafkaNotifier { return &KafkaNotifier{w: w} }

func (n *KafkaNotifier) Publish(ctx context.Context, restaurantID uuid.UUID, eventType string, payload any) error {
	env, body, err := encode(restaurantID, eventType, payload)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(restaurantID.String()),
		Value: body,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}
	if err := n.w.WriteMessages(ctx, msg); err != nil {
		return deliveryError("kafka", err)
	}
	return nil
}

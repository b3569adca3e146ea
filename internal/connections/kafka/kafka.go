package kafka

import (
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"restaurant-fulfillment/internal/config"
)

// NewWriter returns a synchronous writer keyed by restaurant so one
// restaurant's events stay ordered within a partition.
func NewWriter(cfg config.KafkaConfig) (*kafkago.Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}, nil
}

package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeKitchenActions = "kitchen_actions"
	ExchangeDisplays       = "displays_topic"
	ExchangeDLX            = "dlx"

	QueueKitchenActions = "kitchen.actions.q"
	QueueMessages       = "messages.q"
	QueueDLQ            = "dlq"
)

// KitchenActionKey is the routing key a staff terminal publishes with.
func KitchenActionKey(restaurantID, status string) string {
	return "kitchen." + restaurantID + "." + status
}

func DisplayKey(restaurantID, eventType string) string {
	return "display." + restaurantID + "." + eventType
}

// DeclareTopology declares every exchange and queue the services use.
// It is idempotent and safe to call from each mode on startup.
func DeclareTopology(ch *amqp.Channel) error {
	for _, ex := range []struct{ name, kind string }{
		{ExchangeKitchenActions, amqp.ExchangeTopic},
		{ExchangeDisplays, amqp.ExchangeTopic},
		{ExchangeDLX, amqp.ExchangeFanout},
	} {
		if err := ch.ExchangeDeclare(ex.name, ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	withDLX := amqp.Table{"x-dead-letter-exchange": ExchangeDLX}
	for _, q := range []struct {
		name string
		args amqp.Table
	}{
		{QueueKitchenActions, withDLX},
		{QueueMessages, withDLX},
		{QueueDLQ, nil},
	} {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	if err := ch.QueueBind(QueueKitchenActions, "kitchen.#", ExchangeKitchenActions, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", QueueKitchenActions, err)
	}
	if err := ch.QueueBind(QueueDLQ, "", ExchangeDLX, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", QueueDLQ, err)
	}
	return nil
}

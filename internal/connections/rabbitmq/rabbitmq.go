package rabbitmq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-fulfillment/internal/config"
)

var ErrPublishNack = errors.New("publish NACK from broker")

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	acks <-chan amqp.Confirmation
	// Publish waits for its own confirm, so publishes are serialized.
	mu sync.Mutex
}

func (c *Client) Channel() *amqp.Channel { return c.ch }

func (c *Client) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Dial opens a named connection and a publishing channel in confirm mode.
// The name shows up in the broker's connection list.
func Dial(cfg config.RabbitMQConfig, name string) (*Client, error) {
	amqpCfg := amqp.Config{
		Heartbeat:  10 * time.Second,
		Locale:     "en_US",
		Properties: amqp.NewConnectionProperties(),
	}
	if name != "" {
		amqpCfg.Properties.SetClientConnectionName(name)
	}
	if cfg.UseTLS {
		amqpCfg.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: cfg.Host}
	}

	conn, err := amqp.DialConfig(cfg.URL(), amqpCfg)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	c := &Client{conn: conn}
	if c.ch, err = conn.Channel(); err != nil {
		c.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := c.ch.Confirm(false); err != nil {
		c.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	c.acks = c.ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return c, nil
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Publish sends one message and blocks until the broker acks it or ctx ends.
func (c *Client) Publish(ctx context.Context, exchange, key string,
	body []byte, headers amqp.Table, contentType string, persistent bool) error {

	c.mu.Lock()
	defer c.mu.Unlock()

	mode := amqp.Transient
	if persistent {
		mode = amqp.Persistent
	}

	msg := amqp.Publishing{
		DeliveryMode: mode,
		ContentType:  contentType,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         body,
	}
	if err := c.ch.PublishWithContext(ctx, exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("publish %s/%s: %w", exchange, key, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case conf, ok := <-c.acks:
		switch {
		case !ok:
			return errors.New("rabbitmq channel closed before confirm")
		case !conf.Ack:
			return fmt.Errorf("%w: %s/%s", ErrPublishNack, exchange, key)
		}
		return nil
	}
}

// Consume opens a dedicated channel with the given prefetch and starts a consumer.
// The returned channel must be closed by the caller when done.
func (c *Client) Consume(queue, consumer string, prefetch int) (*amqp.Channel, <-chan amqp.Delivery, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open consumer channel: %w", err)
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("qos: %w", err)
	}
	msgs, err := ch.Consume(queue, consumer, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return ch, msgs, nil
}

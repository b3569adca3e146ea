package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/connections/rabbitmq"
	"restaurant-fulfillment/internal/messaging"
	"restaurant-fulfillment/internal/microservices/messenger/sender"
)

const (
	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
)

var errUndeliverable = errors.New("undeliverable")

// Source opens a consumer on a queue. *rabbitmq.Client implements it.
type Source interface {
	Consume(queue, consumer string, prefetch int) (*amqp.Channel, <-chan amqp.Delivery, error)
}

type MessengerServiceInterface interface {
	Run(ctx context.Context, src Source) error
	Deliver(ctx context.Context, m messaging.Message) error
}

type MessengerService struct {
	email sender.EmailSender
	sms   sender.SMSSender
	log   *zap.Logger

	Queue    string
	Prefetch int
	Backoff  time.Duration
}

// NewMessengerService accepts nil senders; a channel without a sender is skipped.
func NewMessengerService(email sender.EmailSender, sms sender.SMSSender, log *zap.Logger, prefetch int) *MessengerService {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &MessengerService{
		email:    email,
		sms:      sms,
		log:      log,
		Queue:    rabbitmq.QueueMessages,
		Prefetch: prefetch,
		Backoff:  retryBackoff,
	}
}

func (ms *MessengerService) Run(ctx context.Context, src Source) error {
	ch, msgs, err := src.Consume(ms.Queue, "messenger", ms.Prefetch)
	if err != nil {
		return err
	}
	defer ch.Close()
	ms.log.Info("consuming", zap.String("queue", ms.Queue), zap.Int("prefetch", ms.Prefetch))

	for {
		select {
		case <-ctx.Done():
			ms.log.Info("graceful_shutdown")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("message delivery channel closed")
			}
			ms.handle(ctx, d)
		}
	}
}

func (ms *MessengerService) handle(ctx context.Context, d amqp.Delivery) {
	var m messaging.Message
	if err := json.Unmarshal(d.Body, &m); err != nil {
		ms.log.Warn("message_malformed", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if err := ms.Deliver(ctx, m); err != nil {
		ms.log.Error("message_dead_lettered",
			zap.String("message_id", m.ID),
			zap.String("kind", string(m.Kind)),
			zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

// Deliver sends m on every channel the recipient has an address for,
// trying each channel up to three times.
func (ms *MessengerService) Deliver(ctx context.Context, m messaging.Message) error {
	body, err := render(m)
	if err != nil {
		return fmt.Errorf("%w: %v", errUndeliverable, err)
	}
	to := m.Recipient()

	var (
		errs []error
		sent int
	)
	if to.Email != "" && ms.email != nil {
		err := ms.retry(ctx, "email", func() (sender.SendResult, error) {
			return ms.email.SendEmail(ctx, to.Email, body.Subject, body.Email)
		})
		if err != nil {
			errs = append(errs, err)
		} else {
			sent++
		}
	}
	if to.Phone != "" && ms.sms != nil {
		err := ms.retry(ctx, "sms", func() (sender.SendResult, error) {
			return ms.sms.SendSMS(ctx, to.Phone, body.SMS)
		})
		if err != nil {
			errs = append(errs, err)
		} else {
			sent++
		}
	}

	if sent == 0 && len(errs) == 0 {
		return fmt.Errorf("%w: no channel available for recipient", errUndeliverable)
	}
	if sent == 0 {
		return errors.Join(errs...)
	}
	for _, e := range errs {
		ms.log.Warn("message_channel_failed", zap.String("message_id", m.ID), zap.Error(e))
	}
	return nil
}

func (ms *MessengerService) retry(ctx context.Context, channel string, send func() (sender.SendResult, error)) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var res sender.SendResult
		res, err = send()
		if err == nil {
			ms.log.Info("message_sent", zap.String("channel", channel), zap.String("provider_id", res.MessageID))
			return nil
		}
		ms.log.Warn("message_send_failed", zap.String("channel", channel), zap.Int("attempt", attempt), zap.Error(err))
		if attempt == maxAttempts {
			break
		}
		select {
		case <-time.After(ms.Backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s: %w", channel, err)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/connections/rabbitmq"
	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/microservices/kitchen/repository"
)

var (
	ErrRequeue = errors.New("requeue")     // nack(requeue=true)
	ErrDLQ     = errors.New("dead_letter") // nack(requeue=false)
)

// StatusAdvancer is the part of the fulfillment coordinator the worker drives.
type StatusAdvancer interface {
	AdvanceKitchenStatus(ctx context.Context, orderID uuid.UUID, next domain.KitchenStatus, staffID string) (*domain.KitchenUpdate, error)
}

// Source opens a consumer on a queue. *rabbitmq.Client implements it.
type Source interface {
	Consume(queue, consumer string, prefetch int) (*amqp.Channel, <-chan amqp.Delivery, error)
}

type KitchenServiceInterface interface {
	Run(ctx context.Context, src Source) error
}

type KitchenService struct {
	advancer StatusAdvancer
	workers  repository.WorkerRepositoryInterface
	log      *zap.Logger

	WorkerName string
	Queue      string
	Prefetch   int
	BeatEvery  time.Duration
}

func NewKitchenService(advancer StatusAdvancer, workers repository.WorkerRepositoryInterface, log *zap.Logger,
	workerName string, prefetch int, heartbeatInterval time.Duration) *KitchenService {
	if prefetch <= 0 {
		prefetch = 1
	}
	if heartbeatInterval <= 0 {
		heartbeatInterval = 30 * time.Second
	}
	return &KitchenService{
		advancer:   advancer,
		workers:    workers,
		log:        log,
		WorkerName: workerName,
		Queue:      rabbitmq.QueueKitchenActions,
		Prefetch:   prefetch,
		BeatEvery:  heartbeatInterval,
	}
}

func (ks *KitchenService) Run(ctx context.Context, src Source) error {
	if strings.TrimSpace(ks.WorkerName) == "" {
		return fmt.Errorf("worker name is empty: pass --worker-name")
	}

	// A worker is considered gone after missing three heartbeats.
	if err := ks.workers.Register(ctx, ks.WorkerName, 3*ks.BeatEvery); err != nil {
		ks.log.Error("worker_registration_failed", zap.Error(err))
		return err
	}
	ks.log.Info("worker_registered", zap.String("worker", ks.WorkerName))

	ch, msgs, err := src.Consume(ks.Queue, ks.WorkerName, ks.Prefetch)
	if err != nil {
		return err
	}
	defer ch.Close()

	go ks.heartbeat(ctx)

	ks.log.Info("consuming", zap.String("queue", ks.Queue), zap.Int("prefetch", ks.Prefetch))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for d := range msgs {
			// In-flight actions finish even while shutting down.
			ks.handle(context.WithoutCancel(ctx), d)
		}
	}()

	select {
	case <-ctx.Done():
		ks.log.Info("graceful_shutdown", zap.String("worker", ks.WorkerName))
		_ = ch.Cancel(ks.WorkerName, false)
		<-done
	case <-done:
		ks.log.Warn("delivery_channel_closed", zap.String("queue", ks.Queue))
	}

	if err := ks.workers.SetOffline(context.WithoutCancel(ctx), ks.WorkerName); err != nil {
		ks.log.Warn("worker_offline_failed", zap.Error(err))
	}
	if ctx.Err() == nil {
		return errors.New("kitchen action consumer stopped unexpectedly")
	}
	return nil
}

func (ks *KitchenService) heartbeat(ctx context.Context) {
	t := time.NewTicker(ks.BeatEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := ks.workers.Heartbeat(ctx, ks.WorkerName); err != nil {
				ks.log.Warn("heartbeat_failed", zap.Error(err))
				continue
			}
			ks.log.Debug("heartbeat_sent", zap.String("worker", ks.WorkerName))
		}
	}
}

// handle settles one delivery according to the outcome of processOne.
func (ks *KitchenService) handle(ctx context.Context, d amqp.Delivery) {
	err := ks.processOne(ctx, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrDLQ):
		ks.log.Warn("kitchen_action_dead_lettered", zap.String("routing_key", d.RoutingKey), zap.Error(err))
		_ = d.Nack(false, false)
	default:
		ks.log.Warn("kitchen_action_requeued", zap.String("routing_key", d.RoutingKey), zap.Error(err))
		_ = d.Nack(false, true)
	}
}

func (ks *KitchenService) processOne(ctx context.Context, body []byte) error {
	var msg domain.KitchenAction
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDLQ, err)
	}
	if msg.OrderID == uuid.Nil || !msg.Status.Valid() {
		return fmt.Errorf("%w: order_id and a known status are required", ErrDLQ)
	}

	upd, err := ks.advancer.AdvanceKitchenStatus(ctx, msg.OrderID, msg.Status, msg.StaffID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrOrderNotFound):
		// Stale or duplicate action; redelivering cannot make it valid.
		ks.log.Info("kitchen_action_stale",
			zap.String("order_id", msg.OrderID.String()),
			zap.String("status", string(msg.Status)),
			zap.Error(err))
		return nil
	case errors.Is(err, domain.ErrValidation):
		return fmt.Errorf("%w: %v", ErrDLQ, err)
	default:
		return fmt.Errorf("%w: %v", ErrRequeue, err)
	}

	ks.log.Debug("kitchen_action_applied",
		zap.String("order_id", msg.OrderID.String()),
		zap.String("status", string(upd.WorkItem.Status)),
		zap.String("staff_id", msg.StaffID))
	if err := ks.workers.RecordProcessed(ctx, ks.WorkerName); err != nil {
		ks.log.Warn("worker_counter_failed", zap.Error(err))
	}
	return nil
}

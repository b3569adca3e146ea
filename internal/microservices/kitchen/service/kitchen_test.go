package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/microservices/kitchen/repository"
)

type fakeAdvancer struct {
	calls []domain.KitchenAction
	err   error
}

func (f *fakeAdvancer) AdvanceKitchenStatus(_ context.Context, orderID uuid.UUID, next domain.KitchenStatus, staffID string) (*domain.KitchenUpdate, error) {
	f.calls = append(f.calls, domain.KitchenAction{OrderID: orderID, Status: next, StaffID: staffID})
	if f.err != nil {
		return nil, f.err
	}
	return &domain.KitchenUpdate{WorkItem: domain.KitchenWorkItem{OrderID: orderID, Status: next}}, nil
}

type fakeWorkers struct {
	processed int
}

func (f *fakeWorkers) Register(context.Context, string, time.Duration) error { return nil }
func (f *fakeWorkers) Heartbeat(context.Context, string) error { return nil }
func (f *fakeWorkers) SetOffline(context.Context, string) error { return nil }
func (f *fakeWorkers) List(context.Context) ([]repository.Worker, error) { return nil, nil }
func (f *fakeWorkers) RecordProcessed(context.Context, string) error {
	f.processed++
	return nil
}

type ackRecorder struct {
	acked, nacked, requeued bool
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.acked = true
	return nil
}
func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}
func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

func newTestService(adv *fakeAdvancer, workers *fakeWorkers) *KitchenService {
	return NewKitchenService(adv, workers, zap.NewNop(), "line-1", 4, time.Second)
}

func delivery(t *testing.T, body any) (amqp.Delivery, *ackRecorder) {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case []byte:
		raw = b
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}
	ack := &ackRecorder{}
	return amqp.Delivery{Acknowledger: ack, Body: raw, RoutingKey: "kitchen.r.preparing"}, ack
}

func TestHandle_AppliesActionAndAcks(t *testing.T) {
	adv, workers := &fakeAdvancer{}, &fakeWorkers{}
	ks := newTestService(adv, workers)
	oid := uuid.New()

	d, ack := delivery(t, domain.KitchenAction{OrderID: oid, Status: domain.KitchenPreparing, StaffID: "chef-9"})
	ks.handle(context.Background(), d)

	assert.True(t, ack.acked)
	require.Len(t, adv.calls, 1)
	assert.Equal(t, oid, adv.calls[0].OrderID)
	assert.Equal(t, "chef-9", adv.calls[0].StaffID)
	assert.Equal(t, 1, workers.processed)
}

func TestHandle_Outcomes(t *testing.T) {
	valid := domain.KitchenAction{OrderID: uuid.New(), Status: domain.KitchenReady}
	tests := []struct {
		name        string
		body        any
		advErr      error
		wantAck     bool
		wantRequeue bool
	}{
		{name: "malformed json", body: []byte("{"), wantAck: false, wantRequeue: false},
		{name: "missing order id", body: domain.KitchenAction{Status: domain.KitchenReady}},
		{name: "unknown status", body: domain.KitchenAction{OrderID: uuid.New(), Status: "burnt"}},
		{name: "stale transition", body: valid, advErr: &domain.TransitionError{From: domain.KitchenCompleted, To: domain.KitchenReady}, wantAck: true},
		{name: "unknown order", body: valid, advErr: domain.ErrOrderNotFound, wantAck: true},
		{name: "conflict", body: valid, advErr: domain.ErrPersistenceConflict, wantRequeue: true},
		{name: "database down", body: valid, advErr: errors.New("connection reset"), wantRequeue: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ks := newTestService(&fakeAdvancer{err: tt.advErr}, &fakeWorkers{})
			d, ack := delivery(t, tt.body)

			ks.handle(context.Background(), d)

			assert.Equal(t, tt.wantAck, ack.acked)
			assert.Equal(t, !tt.wantAck, ack.nacked)
			assert.Equal(t, tt.wantRequeue, ack.requeued)
		})
	}
}

func TestRun_RequiresWorkerName(t *testing.T) {
	ks := NewKitchenService(&fakeAdvancer{}, &fakeWorkers{}, zap.NewNop(), " ", 0, 0)
	err := ks.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, ks.Prefetch)
	assert.Equal(t, 30*time.Second, ks.BeatEvery)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/messaging"
	"restaurant-fulfillment/internal/microservices/messenger/sender"
)

type fakeEmail struct {
	failures int
	calls    int
	to       string
	subject  string
	body     string
}

func (f *fakeEmail) SendEmail(_ context.Context, to, subject, body string) (sender.SendResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return sender.SendResult{}, errors.New("smtp timeout")
	}
	f.to, f.subject, f.body = to, subject, body
	return sender.SendResult{MessageID: "e-1"}, nil
}

type fakeSMS struct {
	failures int
	calls    int
	to, msg  string
}

func (f *fakeSMS) SendSMS(_ context.Context, to, msg string) (sender.SendResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return sender.SendResult{}, errors.New("throttled")
	}
	f.to, f.msg = to, msg
	return sender.SendResult{MessageID: "s-1"}, nil
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

func confirmation() messaging.Message {
	return messaging.Message{
		ID:   "m-1",
		Kind: messaging.KindOrderConfirmation,
		Confirmation: &messaging.Confirmation{
			OrderID:      uuid.New(),
			OrderNumber:  "ORD_20260314_ABC123",
			Recipient:    messaging.Recipient{Name: "Ada", Phone: "+15550001", Email: "ada@example.com"},
			OTP:          "482913",
			Total:        "50.00",
			Currency:     "USD",
			Status:       domain.OrderPreparing,
			PointsEarned: 5,
		},
	}
}

func newTestMessenger(email sender.EmailSender, sms sender.SMSSender) *MessengerService {
	ms := NewMessengerService(email, sms, zap.NewNop(), 1)
	ms.Backoff = 0
	return ms
}

func TestDeliver_ConfirmationOnBothChannels(t *testing.T) {
	email, sms := &fakeEmail{}, &fakeSMS{}
	ms := newTestMessenger(email, sms)

	require.NoError(t, ms.Deliver(context.Background(), confirmation()))

	assert.Equal(t, "ada@example.com", email.to)
	assert.Equal(t, "Order ORD_20260314_ABC123 confirmed", email.subject)
	assert.Contains(t, email.body, "Pickup code: 482913")
	assert.Contains(t, email.body, "You earned 5 loyalty points.")
	assert.Equal(t, "+15550001", sms.to)
	assert.Equal(t, "Order ORD_20260314_ABC123 received. Code 482913. Total 50.00 USD.", sms.msg)
}

func TestDeliver_RetriesUpToThreeAttempts(t *testing.T) {
	email := &fakeEmail{failures: 2}
	ms := newTestMessenger(email, nil)

	require.NoError(t, ms.Deliver(context.Background(), confirmation()))
	assert.Equal(t, 3, email.calls)

	email = &fakeEmail{failures: 3}
	ms = newTestMessenger(email, nil)
	require.Error(t, ms.Deliver(context.Background(), confirmation()))
	assert.Equal(t, 3, email.calls)
}

func TestDeliver_OneChannelSucceedingIsEnough(t *testing.T) {
	ms := newTestMessenger(&fakeEmail{failures: 5}, &fakeSMS{})
	require.NoError(t, ms.Deliver(context.Background(), confirmation()))
}

func TestDeliver_Feedback(t *testing.T) {
	sms := &fakeSMS{}
	ms := newTestMessenger(nil, sms)
	err := ms.Deliver(context.Background(), messaging.Message{
		Kind:     messaging.KindFeedbackRequest,
		Feedback: &messaging.FeedbackRequest{OrderNumber: "ORD_1", Recipient: messaging.Recipient{Phone: "+15550002"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "How was order ORD_1? Reply to let us know.", sms.msg)
}

func TestDeliver_Undeliverable(t *testing.T) {
	ms := newTestMessenger(nil, nil)
	require.ErrorIs(t, ms.Deliver(context.Background(), confirmation()), errUndeliverable)
	require.ErrorIs(t, ms.Deliver(context.Background(), messaging.Message{Kind: "postcard"}), errUndeliverable)
}

func TestHandle_AcksOrDeadLetters(t *testing.T) {
	body, err := json.Marshal(confirmation())
	require.NoError(t, err)

	ack := &ackRecorder{}
	newTestMessenger(&fakeEmail{}, nil).handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body})
	assert.True(t, ack.acked)

	ack = &ackRecorder{}
	newTestMessenger(&fakeEmail{failures: 9}, nil).handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body})
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeued)

	ack = &ackRecorder{}
	newTestMessenger(&fakeEmail{}, nil).handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("nope")})
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeued)
}

package sender

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-fulfillment/internal/config"
)

type fakeSNS struct {
	in  *sns.PublishInput
	err error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
}

func TestSNSSender_PublishesToPhone(t *testing.T) {
	api := &fakeSNS{}
	s := &SNSSender{client: api, senderID: "PIZZA"}

	res, err := s.SendSMS(context.Background(), "+15550001", "your code is 123456")
	require.NoError(t, err)
	assert.Equal(t, "sns-1", res.MessageID)
	assert.Equal(t, "+15550001", aws.ToString(api.in.PhoneNumber))
	assert.Equal(t, "PIZZA", aws.ToString(api.in.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
}

func TestSNSSender_WrapsErrors(t *testing.T) {
	s := &SNSSender{client: &fakeSNS{err: errors.New("throttled")}}
	_, err := s.SendSMS(context.Background(), "+15550001", "hi")
	require.ErrorContains(t, err, "throttled")
}

func TestSMTPSender_BuildsMessage(t *testing.T) {
	s, err := NewSMTPSender(config.SMTPConfig{Host: "mail.local", Port: 2525, From: "orders@example.com"})
	require.NoError(t, err)

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	s.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	_, err = s.SendEmail(context.Background(), "ada@example.com", "Order confirmed", "thanks")
	require.NoError(t, err)
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Order confirmed\r\n")
	assert.Contains(t, gotMsg, "\r\n\r\nthanks")
}

func TestNewSMTPSender_RequiresHost(t *testing.T) {
	_, err := NewSMTPSender(config.SMTPConfig{From: "x@example.com"})
	require.Error(t, err)
}

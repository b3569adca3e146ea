package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"restaurant-fulfillment/internal/config"
)

type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender delivers SMS through Amazon SNS direct publish.
type SNSSender struct {
	client   snsAPI
	senderID string
}

func NewSNSSender(ctx context.Context, cfg config.AWSConfig) (*SNSSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SNSSender{client: sns.NewFromConfig(awsCfg), senderID: cfg.SMSSenderID}, nil
}

func (s *SNSSender) SendSMS(ctx context.Context, to, msg string) (SendResult, error) {
	in := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(msg),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		},
	}
	if s.senderID != "" {
		in.MessageAttributes["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType: aws.String("String"), StringValue: aws.String(s.senderID),
		}
	}
	out, err := s.client.Publish(ctx, in)
	if err != nil {
		return SendResult{}, fmt.Errorf("sns publish failed: %w", err)
	}
	return SendResult{MessageID: aws.ToString(out.MessageId), SentAt: time.Now()}, nil
}

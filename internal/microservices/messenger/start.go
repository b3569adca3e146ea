package messenger

import (
	"context"

	"go.uber.org/zap"

	"restaurant-fulfillment/internal/config"
	"restaurant-fulfillment/internal/connections/rabbitmq"
	"restaurant-fulfillment/internal/microservices/messenger/sender"
	"restaurant-fulfillment/internal/microservices/messenger/service"
)

// Run delivers queued customer messages until ctx is cancelled. A channel
// whose sender cannot be configured is disabled with a warning.
func Run(ctx context.Context, cfg *config.Config, rmqClient *rabbitmq.Client, log *zap.Logger, prefetch int) error {
	var email sender.EmailSender
	if s, err := sender.NewSMTPSender(cfg.SMTP); err != nil {
		log.Warn("email_channel_disabled", zap.Error(err))
	} else {
		email = s
	}

	var sms sender.SMSSender
	if s, err := sender.NewSNSSender(ctx, cfg.AWS); err != nil {
		log.Warn("sms_channel_disabled", zap.Error(err))
	} else {
		sms = s
	}

	svc := service.New(email, sms, log, prefetch)
	return svc.MessengerService.Run(ctx, rmqClient)
}

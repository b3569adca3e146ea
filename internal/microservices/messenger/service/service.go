package service

import (
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/microservices/messenger/sender"
)

type Service struct {
	MessengerService MessengerServiceInterface
}

func New(email sender.EmailSender, sms sender.SMSSender, log *zap.Logger, prefetch int) *Service {
	return &Service{MessengerService: NewMessengerService(email, sms, log, prefetch)}
}

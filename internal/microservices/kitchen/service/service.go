package service

import (
	"time"

	"go.uber.org/zap"

	"restaurant-fulfillment/internal/microservices/kitchen/repository"
)

type Service struct {
	KitchenService KitchenServiceInterface
}

func New(advancer StatusAdvancer, repo *repository.Repository, log *zap.Logger, workerName string, prefetch int, heartbeat time.Duration) *Service {
	return &Service{
		KitchenService: NewKitchenService(advancer, repo.WorkerRepo, log, workerName, prefetch, heartbeat),
	}
}

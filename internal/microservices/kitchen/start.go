package kitchen

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"restaurant-fulfillment/internal/connections/rabbitmq"
	"restaurant-fulfillment/internal/microservices/kitchen/repository"
	"restaurant-fulfillment/internal/microservices/kitchen/service"
)

// Run consumes kitchen actions until ctx is cancelled.
func Run(ctx context.Context, db *sql.DB, rmqClient *rabbitmq.Client, advancer service.StatusAdvancer,
	log *zap.Logger, workerName string, prefetch int, heartbeat time.Duration) error {
	repo := repository.New(db)
	svc := service.New(advancer, repo, log, workerName, prefetch, heartbeat)
	return svc.KitchenService.Run(ctx, rmqClient)
}

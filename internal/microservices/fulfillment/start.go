package fulfillment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/common/httpx"
	"restaurant-fulfillment/internal/config"
	"restaurant-fulfillment/internal/connections/kafka"
	"restaurant-fulfillment/internal/connections/rabbitmq"
	"restaurant-fulfillment/internal/messaging"
	"restaurant-fulfillment/internal/microservices/fulfillment/handlers"
	"restaurant-fulfillment/internal/microservices/fulfillment/repository"
	"restaurant-fulfillment/internal/microservices/fulfillment/service"
	kitchenrepo "restaurant-fulfillment/internal/microservices/kitchen/repository"
	"restaurant-fulfillment/internal/notify"
)

// Infra is the set of live connections a coordinator is built on. Redis may
// be nil, in which case settings are read uncached and the redis display
// backend is unavailable.
type Infra struct {
	DB       *sql.DB
	Redis    *goredis.Client
	RabbitMQ *rabbitmq.Client
}

// NewCoordinator wires the coordinator from configuration. The returned
// close func releases anything the builder opened itself.
func NewCoordinator(cfg *config.Config, infra Infra, log *zap.Logger) (*service.Coordinator, func(), error) {
	defaults, err := cfg.Loyalty.Settings()
	if err != nil {
		return nil, nil, fmt.Errorf("loyalty defaults: %w", err)
	}
	var settings repository.SettingsRepositoryInterface = repository.NewSettingsRepository(infra.DB, defaults)
	if infra.Redis != nil {
		settings = repository.NewCachedSettings(settings, infra.Redis, cfg.Settings.CacheTTL, log)
	}

	notifier, closeNotifier, err := buildNotifier(cfg, infra)
	if err != nil {
		return nil, nil, err
	}

	var messages messaging.Gateway = messaging.Nop{}
	if infra.RabbitMQ != nil {
		messages = messaging.NewQueueGateway(infra.RabbitMQ)
	}

	coord := service.NewCoordinator(service.Deps{
		Store:         repository.NewPostgresStore(infra.DB),
		Settings:      settings,
		Notifier:      notifier,
		Messages:      messages,
		Logger:        log,
		NotifyTimeout: cfg.Notifier.Timeout,
	})
	return coord, closeNotifier, nil
}

func buildNotifier(cfg *config.Config, infra Infra) (notify.Notifier, func(), error) {
	var (
		fan     notify.Fanout
		closers []func()
	)
	for _, b := range cfg.Notifier.Backends {
		switch b {
		case "redis":
			if infra.Redis == nil {
				return nil, nil, errors.New("notifier: redis backend needs a redis connection")
			}
			fan = append(fan, notify.NewRedisNotifier(infra.Redis))
		case "rabbitmq":
			if infra.RabbitMQ == nil {
				return nil, nil, errors.New("notifier: rabbitmq backend needs a rabbitmq connection")
			}
			fan = append(fan, notify.NewRabbitNotifier(infra.RabbitMQ))
		case "kafka":
			w, err := kafka.NewWriter(cfg.Kafka)
			if err != nil {
				return nil, nil, fmt.Errorf("notifier: %w", err)
			}
			fan = append(fan, notify.NewKafkaNotifier(w))
			closers = append(closers, func() { _ = w.Close() })
		default:
			return nil, nil, fmt.Errorf("notifier: unknown backend %q", b)
		}
	}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(fan) == 0 {
		return notify.Nop{}, closeAll, nil
	}
	return fan, closeAll, nil
}

// Run serves the fulfillment HTTP API on addr until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, addr string, infra Infra, log *zap.Logger, maxConcurrent int64) error {
	coord, closeFn, err := NewCoordinator(cfg, infra, log)
	if err != nil {
		return err
	}
	defer closeFn()

	router, err := handlers.Router(handlers.New(coord, log), log, handlers.RouterOptions{
		MaxConcurrent:  maxConcurrent,
		OrderRateLimit: cfg.HTTP.RateLimit,
		Health:         health(infra),
		Workers:        kitchenrepo.NewWorkerRepository(infra.DB),
	})
	if err != nil {
		return err
	}

	log.Info("service_started", zap.String("addr", addr), zap.Int64("max_concurrent", maxConcurrent))
	return httpx.New(addr, router).Run(ctx)
}

func health(infra Infra) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := infra.DB.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if infra.RabbitMQ != nil {
			if err := infra.RabbitMQ.Ping(); err != nil {
				return fmt.Errorf("rabbitmq: %w", err)
			}
		}
		return nil
	}
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"restaurant-fulfillment/internal/common/logger"
	"restaurant-fulfillment/internal/config"
	"restaurant-fulfillment/internal/connections/database"
	"restaurant-fulfillment/internal/connections/rabbitmq"
	"restaurant-fulfillment/internal/connections/redis"
	"restaurant-fulfillment/internal/microservices/display"
	"restaurant-fulfillment/internal/microservices/fulfillment"
	"restaurant-fulfillment/internal/microservices/kitchen"
	"restaurant-fulfillment/internal/microservices/messenger"
)

const modes = "fulfillment-service | kitchen-worker | display-gateway | messenger | migrate"

type flags struct {
	mode          string
	configPath    string
	port          int
	maxConcurrent int64
	prefetch      int
	workerName    string
	heartbeat     time.Duration
	migrate       bool
}

func main() {
	var f flags
	flag.StringVar(&f.mode, "mode", "", modes)
	flag.StringVar(&f.configPath, "config", "config.yaml", "path to YAML config")
	flag.IntVar(&f.port, "port", 0, "http port for services that expose HTTP")
	flag.Int64Var(&f.maxConcurrent, "max-concurrent", 50, "fulfillment-service: max concurrent requests")
	flag.IntVar(&f.prefetch, "prefetch", 1, "kitchen-worker, messenger: RabbitMQ prefetch")
	flag.StringVar(&f.workerName, "worker-name", "", "kitchen-worker: unique worker name")
	flag.DurationVar(&f.heartbeat, "heartbeat-interval", 30*time.Second, "kitchen-worker: heartbeat interval")
	flag.BoolVar(&f.migrate, "migrate", false, "fulfillment-service: apply migrations before serving")
	flag.Parse()

	if f.mode == "" {
		fmt.Fprintln(os.Stderr, "--mode is required: "+modes)
		os.Exit(2)
	}
	if f.mode == "kitchen-worker" && f.workerName == "" {
		fmt.Fprintln(os.Stderr, "--worker-name is required for kitchen-worker")
		os.Exit(2)
	}

	log := logger.New(f.mode)
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		log.Fatal("config_load_failed", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, f, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("fatal", zap.Error(err))
		os.Exit(1)
	}
	log.Info("graceful_shutdown")
}

func run(ctx context.Context, f flags, cfg *config.Config, log *zap.Logger) error {
	switch f.mode {
	case "migrate":
		db, err := database.ConnectDB(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer db.Close()
		return migrate(ctx, db, log)

	case "fulfillment-service":
		infra, closeFn, err := connect(ctx, cfg, f.mode, log)
		if err != nil {
			return err
		}
		defer closeFn()
		if f.migrate {
			if err := migrate(ctx, infra.DB, log); err != nil {
				return err
			}
		}
		return fulfillment.Run(ctx, cfg, addr(f.port, 3000), infra, log, f.maxConcurrent)

	case "kitchen-worker":
		infra, closeFn, err := connect(ctx, cfg, "kitchen-worker:"+f.workerName, log)
		if err != nil {
			return err
		}
		defer closeFn()
		coord, closeCoord, err := fulfillment.NewCoordinator(cfg, infra, log)
		if err != nil {
			return err
		}
		defer closeCoord()
		log.Info("service_started", zap.String("worker", f.workerName), zap.Int("prefetch", f.prefetch))
		return kitchen.Run(ctx, infra.DB, infra.RabbitMQ, coord, log, f.workerName, f.prefetch, f.heartbeat)

	case "display-gateway":
		rdb, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		return display.Run(ctx, addr(f.port, 3002), rdb, log)

	case "messenger":
		rmq, err := dialRabbit(cfg, "messenger", log)
		if err != nil {
			return err
		}
		defer rmq.Close()
		log.Info("service_started", zap.Int("prefetch", f.prefetch))
		return messenger.Run(ctx, cfg, rmq, log, f.prefetch)
	}
	return fmt.Errorf("unknown mode %q, expected %s", f.mode, modes)
}

// connect opens the database, RabbitMQ and, when reachable, Redis. Redis is
// only fatal when the redis display backend is configured.
func connect(ctx context.Context, cfg *config.Config, name string, log *zap.Logger) (fulfillment.Infra, func(), error) {
	var infra fulfillment.Infra
	db, err := database.ConnectDB(ctx, cfg.Database, log)
	if err != nil {
		return infra, nil, err
	}
	infra.DB = db

	rmq, err := dialRabbit(cfg, name, log)
	if err != nil {
		_ = db.Close()
		return infra, nil, err
	}
	infra.RabbitMQ = rmq

	rdb, err := redis.NewClient(ctx, cfg.Redis)
	switch {
	case err == nil:
		infra.Redis = rdb
	case slices.Contains(cfg.Notifier.Backends, "redis"):
		rmq.Close()
		_ = db.Close()
		return infra, nil, err
	default:
		log.Warn("redis_unavailable", zap.Error(err))
	}

	return infra, func() {
		if infra.Redis != nil {
			_ = infra.Redis.Close()
		}
		rmq.Close()
		_ = db.Close()
	}, nil
}

func dialRabbit(cfg *config.Config, name string, log *zap.Logger) (*rabbitmq.Client, error) {
	rmq, err := rabbitmq.Dial(cfg.RabbitMQ, name)
	if err != nil {
		return nil, err
	}
	if err := rabbitmq.DeclareTopology(rmq.Channel()); err != nil {
		rmq.Close()
		return nil, err
	}
	log.Info("rabbitmq_connected", zap.String("host", cfg.RabbitMQ.Host), zap.Int("port", cfg.RabbitMQ.Port))
	return rmq, nil
}

func migrate(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	applied, err := database.Migrate(ctx, db)
	if err != nil {
		return err
	}
	log.Info("migrations_applied", zap.Strings("files", applied))
	return nil
}

func addr(port, fallback int) string {
	if port == 0 {
		port = fallback
	}
	return ":" + strconv.Itoa(port)
}

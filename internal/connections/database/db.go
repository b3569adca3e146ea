package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/config"
)

const (
	maxRetries = 10
	retryDelay = 2 * time.Second
	pingTTL    = 5 * time.Second
)

// ConnectDB opens the pool and retries until the server answers a ping.
func ConnectDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err = sql.Open("pgx", cfg.DSN())
		if err == nil {
			if cfg.MaxConns > 0 {
				db.SetMaxOpenConns(cfg.MaxConns)
				db.SetMaxIdleConns(cfg.MaxConns / 2)
			}
			db.SetConnMaxLifetime(30 * time.Minute)

			pctx, cancel := context.WithTimeout(ctx, pingTTL)
			err = db.PingContext(pctx)
			cancel()
			if err == nil {
				return db, nil
			}
			_ = db.Close()
		}
		log.Warn("db_connect_retry", zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("db connect canceled: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", maxRetries, err)
}

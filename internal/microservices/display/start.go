package display

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"restaurant-fulfillment/internal/common/httpx"
)

// Run serves SSE sessions on addr and relays Redis display events until ctx ends.
func Run(ctx context.Context, addr string, rdb *redis.Client, log *zap.Logger) error {
	hub := NewHub(defaultBuffer)
	srv := httpx.New(addr, Router(NewHandler(hub, log), log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return NewListener(rdb, hub, log).Run(ctx) })
	g.Go(func() error {
		log.Info("display_gateway_listening", zap.String("addr", addr))
		return srv.Run(ctx)
	})
	return g.Wait()
}

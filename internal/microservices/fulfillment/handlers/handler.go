package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/common/httpx"
	kitchenrepo "restaurant-fulfillment/internal/microservices/kitchen/repository"
	"restaurant-fulfillment/internal/microservices/fulfillment/service"
)

type Handler struct {
	OrderHandler   *OrderHandler
	KitchenHandler *KitchenHandler
}

func New(s service.FulfillmentServiceInterface, log *zap.Logger) *Handler {
	return &Handler{
		OrderHandler:   NewOrderHandler(s, log),
		KitchenHandler: NewKitchenHandler(s, log),
	}
}

type RouterOptions struct {
	MaxConcurrent int64
	// OrderRateLimit is a limiter rate such as "20-S"; empty disables it.
	OrderRateLimit string
	// Health reports dependency health for /healthz.
	Health func(ctx context.Context) error
	// Workers backs GET /api/v1/kitchen/workers when set.
	Workers WorkerLister
}

type WorkerLister interface {
	List(ctx context.Context) ([]kitchenrepo.Worker, error)
}

func Router(h *Handler, log *zap.Logger, opts RouterOptions) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.RequestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health(c.Request.Context()); err != nil {
				writeProblem(c, http.StatusServiceUnavailable, "unhealthy", err.Error())
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	if opts.MaxConcurrent > 0 {
		api.Use(httpx.MaxConcurrent(opts.MaxConcurrent))
	}

	place := []gin.HandlerFunc{h.OrderHandler.PlaceOrder}
	if opts.OrderRateLimit != "" {
		limit, err := httpx.RateLimit(opts.OrderRateLimit)
		if err != nil {
			return nil, err
		}
		place = append([]gin.HandlerFunc{limit}, place...)
	}
	api.POST("/restaurants/:restaurantID/orders", place...)
	api.GET("/restaurants/:restaurantID/kitchen-items", h.KitchenHandler.ListItems)

	orders := api.Group("/orders/:orderID")
	orders.GET("", h.OrderHandler.GetOrder)
	orders.GET("/timeline", h.OrderHandler.Timeline)
	orders.POST("/verify-otp", h.OrderHandler.VerifyOTP)
	orders.PUT("/items", h.OrderHandler.AmendItems)
	orders.POST("/kitchen-status", h.KitchenHandler.AdvanceStatus)
	orders.POST("/kitchen-reset", h.KitchenHandler.Reset)
	orders.POST("/cancel", h.KitchenHandler.Cancel)

	api.GET("/customers/:customerID/loyalty-balance", h.OrderHandler.LoyaltyBalance)

	if opts.Workers != nil {
		api.GET("/kitchen/workers", func(c *gin.Context) {
			workers, err := opts.Workers.List(c.Request.Context())
			if err != nil {
				writeError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"workers": workers})
		})
	}
	return r, nil
}

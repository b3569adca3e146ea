package display

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/common/httpx"
)

const heartbeatEvery = 15 * time.Second

type Handler struct {
	hub       *Hub
	log       *zap.Logger
	heartbeat time.Duration
}

func NewHandler(hub *Hub, log *zap.Logger) *Handler {
	return &Handler{hub: hub, log: log, heartbeat: heartbeatEvery}
}

// Events streams a restaurant's display events as Server-Sent Events. The
// event name is the event type and the data is its JSON payload.
func (h *Handler) Events(c *gin.Context) {
	rid, err := uuid.Parse(c.Param("restaurantID"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"type": "invalid_id", "title": "Bad Request", "status": http.StatusBadRequest,
			"detail": "restaurantID must be a uuid",
		})
		return
	}

	sub := h.hub.Subscribe(rid.String())
	defer func() {
		h.hub.Unsubscribe(sub)
		h.log.Debug("display_session_closed",
			zap.String("restaurant_id", rid.String()),
			zap.Int64("dropped", sub.Dropped()))
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent("ready", gin.H{"restaurantId": rid})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.Events():
			if !ok {
				return
			}
			c.SSEvent(env.Type, env.Payload)
		case t := <-ticker.C:
			c.SSEvent("heartbeat", gin.H{"ts": t.UTC()})
		}
		c.Writer.Flush()
	}
}

func Router(h *Handler, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.RequestLogger(log))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/api/v1/restaurants/:restaurantID/events", h.Events)
	return r
}

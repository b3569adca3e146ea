package httpx

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	limiter "github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const RequestIDKey = "request_id"

// RequestID reuses X-Request-ID when the caller sent one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(RequestIDKey, rid)
		c.Header("X-Request-ID", rid)
		c.Next()
	}
}

// RequestLogger writes one line per request, leveled by status class.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if rid := c.GetString(RequestIDKey); rid != "" {
			fields = append(fields, zap.String("request_id", rid))
		}
		switch {
		case status >= 500:
			log.Error("http_request", fields...)
		case status >= 400:
			log.Warn("http_request", fields...)
		default:
			log.Info("http_request", fields...)
		}
	}
}

// MaxConcurrent rejects requests with 503 once n are in flight.
func MaxConcurrent(n int64) gin.HandlerFunc {
	sem := semaphore.NewWeighted(n)
	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"type":   "about:blank",
				"title":  "Service Unavailable",
				"status": http.StatusServiceUnavailable,
				"detail": "too many concurrent requests",
			})
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}

// RateLimit applies a per-client-IP limit such as "20-S" or "600-M".
func RateLimit(formatted string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	store := memory.NewStore()
	return mgin.NewMiddleware(limiter.New(store, rate)), nil
}

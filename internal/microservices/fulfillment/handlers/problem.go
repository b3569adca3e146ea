package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/common/httpx"
	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/microservices/fulfillment/repository"
)

// problem is a simplified RFC 7807 body.
type problem struct {
	Type          string               `json:"type"`
	Title         string               `json:"title"`
	Status        int                  `json:"status"`
	Detail        string               `json:"detail"`
	CurrentStatus domain.KitchenStatus `json:"currentStatus,omitempty"`
	Fields        map[string]string    `json:"fields,omitempty"`
	Available     *int64               `json:"available,omitempty"`
}

func writeProblem(c *gin.Context, code int, typ, detail string) {
	c.AbortWithStatusJSON(code, problem{
		Type:   typ,
		Title:  http.StatusText(code),
		Status: code,
		Detail: detail,
	})
}

// writeError maps domain error kinds onto HTTP statuses.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	p := problem{Detail: err.Error()}

	var (
		ve *domain.ValidationError
		te *domain.TransitionError
		be *domain.BalanceError
	)
	switch {
	case errors.As(err, &ve):
		p.Status, p.Type, p.Fields = http.StatusBadRequest, "validation_error", ve.Fields
	case errors.As(err, &te):
		p.Status, p.Type, p.CurrentStatus = http.StatusConflict, "invalid_transition", te.From
	case errors.As(err, &be):
		avail := be.Available
		p.Status, p.Type, p.Available = http.StatusUnprocessableEntity, "insufficient_loyalty_balance", &avail
	case errors.Is(err, domain.ErrTableUnavailable):
		p.Status, p.Type = http.StatusConflict, "table_unavailable"
	case errors.Is(err, domain.ErrOrderNotFound):
		p.Status, p.Type = http.StatusNotFound, "order_not_found"
	case errors.Is(err, repository.ErrCustomerNotFound):
		p.Status, p.Type = http.StatusNotFound, "customer_not_found"
	case errors.Is(err, domain.ErrPersistenceConflict):
		p.Status, p.Type = http.StatusConflict, "persistence_conflict"
		c.Header("Retry-After", "1")
	case errors.Is(err, domain.ErrInvalidOTP):
		p.Status, p.Type = http.StatusUnprocessableEntity, "invalid_otp"
	case errors.Is(err, domain.ErrItemsLocked):
		p.Status, p.Type = http.StatusConflict, "items_locked"
	default:
		log.Error("request_failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(httpx.RequestIDKey)),
			zap.Error(err))
		p.Status, p.Type, p.Detail = http.StatusInternalServerError, "internal_error", "internal error"
	}
	p.Title = http.StatusText(p.Status)
	c.AbortWithStatusJSON(p.Status, p)
}

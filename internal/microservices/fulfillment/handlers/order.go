package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/microservices/fulfillment/service"
)

type OrderHandler struct {
	service service.FulfillmentServiceInterface
	log     *zap.Logger
}

func NewOrderHandler(s service.FulfillmentServiceInterface, log *zap.Logger) *OrderHandler {
	return &OrderHandler{service: s, log: log}
}

func (oh *OrderHandler) PlaceOrder(c *gin.Context) {
	rid, ok := uuidParam(c, "restaurantID")
	if !ok {
		return
	}
	var req domain.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	res, err := oh.service.PlaceOrder(c.Request.Context(), rid, req)
	if err != nil {
		writeError(c, oh.log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (oh *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := uuidParam(c, "orderID")
	if !ok {
		return
	}
	o, err := oh.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, oh.log, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (oh *OrderHandler) Timeline(c *gin.Context) {
	id, ok := uuidParam(c, "orderID")
	if !ok {
		return
	}
	events, err := oh.service.OrderTimeline(c.Request.Context(), id)
	if err != nil {
		writeError(c, oh.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderId": id, "events": events})
}

func (oh *OrderHandler) VerifyOTP(c *gin.Context) {
	id, ok := uuidParam(c, "orderID")
	if !ok {
		return
	}
	var req domain.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	o, err := oh.service.VerifyOTP(c.Request.Context(), id, req.OTP)
	if err != nil {
		writeError(c, oh.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true, "order": o})
}

func (oh *OrderHandler) AmendItems(c *gin.Context) {
	id, ok := uuidParam(c, "orderID")
	if !ok {
		return
	}
	var req domain.AmendItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	o, err := oh.service.AmendItems(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, oh.log, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (oh *OrderHandler) LoyaltyBalance(c *gin.Context) {
	id, ok := uuidParam(c, "customerID")
	if !ok {
		return
	}
	b, err := oh.service.GetBalance(c.Request.Context(), id)
	if err != nil {
		writeError(c, oh.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// uuidParam writes a 400 and reports false when the path segment is not a uuid.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		writeProblem(c, http.StatusBadRequest, "invalid_id", name+" must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

// statusList parses ?status=a,b and repeated ?status= values.
func statusList(c *gin.Context) []domain.KitchenStatus {
	var out []domain.KitchenStatus
	for _, raw := range c.QueryArray("status") {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, domain.KitchenStatus(s))
			}
		}
	}
	return out
}

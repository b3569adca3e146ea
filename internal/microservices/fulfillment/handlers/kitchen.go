package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/microservices/fulfillment/service"
)

type KitchenHandler struct {
	service service.FulfillmentServiceInterface
	log     *zap.Logger
}

func NewKitchenHandler(s service.FulfillmentServiceInterface, log *zap.Logger) *KitchenHandler {
	return &KitchenHandler{service: s, log: log}
}

func (kh *KitchenHandler) AdvanceStatus(c *gin.Context) {
	id, ok := uuidParam(c, "orderID")
	if !ok {
		return
	}
	var req domain.KitchenStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := domain.Validate(&req); err != nil {
		writeError(c, kh.log, err)
		return
	}
	upd, err := kh.service.AdvanceKitchenStatus(c.Request.Context(), id, req.Status, req.StaffID)
	if err != nil {
		writeError(c, kh.log, err)
		return
	}
	c.JSON(http.StatusOK, upd)
}

func (kh *KitchenHandler) Cancel(c *gin.Context) {
	id, ok := uuidParam(c, "orderID")
	if !ok {
		return
	}
	var req domain.CancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeProblem(c, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
	}
	if err := domain.Validate(&req); err != nil {
		writeError(c, kh.log, err)
		return
	}
	upd, err := kh.service.CancelOrder(c.Request.Context(), id, req.StaffID, req.Reason)
	if err != nil {
		writeError(c, kh.log, err)
		return
	}
	c.JSON(http.StatusOK, upd)
}

func (kh *KitchenHandler) Reset(c *gin.Context) {
	id, ok := uuidParam(c, "orderID")
	if !ok {
		return
	}
	var req domain.CancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeProblem(c, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
	}
	upd, err := kh.service.ResetKitchenItem(c.Request.Context(), id, req.StaffID)
	if err != nil {
		writeError(c, kh.log, err)
		return
	}
	c.JSON(http.StatusOK, upd)
}

// ListItems is the full refetch displays fall back on after missed events.
func (kh *KitchenHandler) ListItems(c *gin.Context) {
	rid, ok := uuidParam(c, "restaurantID")
	if !ok {
		return
	}
	items, err := kh.service.ListKitchenItems(c.Request.Context(), rid, statusList(c))
	if err != nil {
		writeError(c, kh.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

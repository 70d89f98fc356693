package handler

import (
	"fmt"
	"net/http"

	"custodia/internal/middleware"
	"custodia/internal/pdf"
	"custodia/internal/service"
	"custodia/pkg/pagination"
	"custodia/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DeliveryHandler struct {
	deliveryService service.DeliveryService
	receipts        *pdf.Generator
}

func NewDeliveryHandler(deliveryService service.DeliveryService, receipts *pdf.Generator) *DeliveryHandler {
	return &DeliveryHandler{deliveryService: deliveryService, receipts: receipts}
}

func (h *DeliveryHandler) RegisterRoutes(router *gin.RouterGroup) {
	deliveries := router.Group("/api/deliveries")
	{
		deliveries.POST("", h.InitiateDelivery)
		deliveries.POST("/:id/confirm", h.ConfirmDelivery)
		deliveries.GET("", h.ListDeliveries)
		deliveries.GET("/:id/receipt", h.DeliveryReceipt)
	}
}

// InitiateDelivery records a custody handoff awaiting counter-signature.
func (h *DeliveryHandler) InitiateDelivery(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Not authenticated"))
		return
	}

	var req service.InitiateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	delivery, err := h.deliveryService.Initiate(c.Request.Context(), actor, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, delivery))
}

// ConfirmDelivery counter-signs a pending delivery.
func (h *DeliveryHandler) ConfirmDelivery(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Not authenticated"))
		return
	}

	delivery, err := h.deliveryService.Confirm(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, delivery))
}

// ListDeliveries returns deliveries filtered by kind, status, station and zone.
func (h *DeliveryHandler) ListDeliveries(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Not authenticated"))
		return
	}

	filter := service.DeliveryListFilter{
		Kind:      c.Query("kind"),
		Status:    c.Query("status"),
		StationID: c.Query("station_id"),
		ZoneID:    c.Query("zone_id"),
	}
	params := pagination.Parse(c)

	deliveries, total, err := h.deliveryService.List(c.Request.Context(), actor, filter, params.Page, params.Limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, deliveries, params.Page, params.Limit, total))
}

// DeliveryReceipt streams a PDF receipt for a confirmed delivery.
func (h *DeliveryHandler) DeliveryReceipt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid delivery id"))
		return
	}

	delivery, err := h.deliveryService.FindConfirmed(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	raw, err := h.receipts.Generate(*delivery)
	if err != nil {
		abortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("delivery-%s.pdf", delivery.ID)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", raw)
}

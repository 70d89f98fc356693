package handler

import (
	"net/http"
	"strconv"

	"custodia/internal/middleware"
	"custodia/internal/service"
	"custodia/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ClosureHandler struct {
	closureService service.ClosureService
}

func NewClosureHandler(closureService service.ClosureService) *ClosureHandler {
	return &ClosureHandler{closureService: closureService}
}

func (h *ClosureHandler) RegisterRoutes(router *gin.RouterGroup) {
	closures := router.Group("/api/closures")
	{
		closures.GET("/status", h.ClosureStatus)
		closures.POST("/close", h.CloseOperational)
		closures.POST("/reopen", h.ReopenOperational)
		closures.GET("/rollups", h.Rollups)
	}
}

type closurePeriodRequest struct {
	ZoneID string `json:"zone_id" binding:"required"`
	Year   int    `json:"year" binding:"required"`
	Month  int    `json:"month" binding:"required"`
}

// ClosureStatus returns the completeness matrix and whether the zone may
// close the month.
func (h *ClosureHandler) ClosureStatus(c *gin.Context) {
	zoneID, year, month, ok := closurePeriodQuery(c)
	if !ok {
		return
	}

	status, err := h.closureService.Status(c.Request.Context(), zoneID, year, month)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}

// CloseOperational locks report capture for the month and materializes
// per-station rollups.
func (h *ClosureHandler) CloseOperational(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Not authenticated"))
		return
	}

	var req closurePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	zoneID, err := uuid.Parse(req.ZoneID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid zone_id"))
		return
	}

	status, err := h.closureService.Close(c.Request.Context(), actor, zoneID, req.Year, req.Month)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}

// ReopenOperational unlocks report capture again. Administrator-only.
func (h *ClosureHandler) ReopenOperational(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Not authenticated"))
		return
	}

	var req closurePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	zoneID, err := uuid.Parse(req.ZoneID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid zone_id"))
		return
	}

	status, err := h.closureService.Reopen(c.Request.Context(), actor, zoneID, req.Year, req.Month)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}

// Rollups lists the per-station monthly aggregates built by the close.
func (h *ClosureHandler) Rollups(c *gin.Context) {
	zoneID, year, month, ok := closurePeriodQuery(c)
	if !ok {
		return
	}

	rollups, err := h.closureService.Rollups(c.Request.Context(), zoneID, year, month)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rollups))
}

func closurePeriodQuery(c *gin.Context) (uuid.UUID, int, int, bool) {
	zoneID, err := uuid.Parse(c.Query("zone_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid zone_id"))
		return uuid.Nil, 0, 0, false
	}
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))
	return zoneID, year, month, true
}

package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"custodia/internal/excel"
	"custodia/internal/middleware"
	"custodia/internal/service"
	"custodia/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SettlementHandler struct {
	settlementService service.SettlementService
	workbooks         *excel.Generator
}

func NewSettlementHandler(settlementService service.SettlementService, workbooks *excel.Generator) *SettlementHandler {
	return &SettlementHandler{settlementService: settlementService, workbooks: workbooks}
}

func (h *SettlementHandler) RegisterRoutes(router *gin.RouterGroup) {
	settlements := router.Group("/api/settlements")
	{
		settlements.GET("", h.ListSettlement)
		settlements.POST("/close", h.CloseSettlement)
		settlements.POST("/reopen", h.ReopenSettlement)
		settlements.GET("/export", h.ExportSettlement)
	}
}

type closeSettlementRequest struct {
	ZoneID       string `json:"zone_id" binding:"required"`
	Year         int    `json:"year" binding:"required"`
	Month        int    `json:"month" binding:"required"`
	Observations string `json:"observations"`
}

type reopenSettlementRequest struct {
	ZoneID string `json:"zone_id" binding:"required"`
	Year   int    `json:"year" binding:"required"`
	Month  int    `json:"month" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// ListSettlement returns the zone row plus per-station rows for the period.
func (h *SettlementHandler) ListSettlement(c *gin.Context) {
	zoneID, year, month, ok := settlementPeriodQuery(c)
	if !ok {
		return
	}

	rows, err := h.settlementService.Rows(c.Request.Context(), zoneID, year, month)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// CloseSettlement performs the accounting close for one zone and month.
func (h *SettlementHandler) CloseSettlement(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Not authenticated"))
		return
	}

	var req closeSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	zoneID, err := uuid.Parse(req.ZoneID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid zone_id"))
		return
	}

	rows, err := h.settlementService.Close(c.Request.Context(), actor, zoneID, req.Year, req.Month, req.Observations)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// ReopenSettlement flips a closed settlement back for corrections.
func (h *SettlementHandler) ReopenSettlement(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Not authenticated"))
		return
	}

	var req reopenSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	zoneID, err := uuid.Parse(req.ZoneID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid zone_id"))
		return
	}

	rows, err := h.settlementService.Reopen(c.Request.Context(), actor, zoneID, req.Year, req.Month, req.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// ExportSettlement streams the settlement workbook for one zone and month.
func (h *SettlementHandler) ExportSettlement(c *gin.Context) {
	zoneID, year, month, ok := settlementPeriodQuery(c)
	if !ok {
		return
	}

	rows, err := h.settlementService.RowModels(c.Request.Context(), zoneID, year, month)
	if err != nil {
		abortWithError(c, err)
		return
	}

	zoneName := zoneID.String()
	for _, row := range rows {
		if row.Zone != nil {
			zoneName = row.Zone.Name
			break
		}
	}

	raw, err := h.workbooks.Generate(zoneName, year, month, rows)
	if err != nil {
		abortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("settlement-%04d-%02d.xlsx", year, month)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", raw)
}

func settlementPeriodQuery(c *gin.Context) (uuid.UUID, int, int, bool) {
	zoneID, err := uuid.Parse(c.Query("zone_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid zone_id"))
		return uuid.Nil, 0, 0, false
	}
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))
	return zoneID, year, month, true
}

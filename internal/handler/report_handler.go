package handler

import (
	"net/http"

	"custodia/internal/middleware"
	"custodia/internal/service"
	"custodia/pkg/pagination"
	"custodia/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports")
	{
		reports.POST("", h.CreateReport)
		reports.PUT("/:id", h.UpdateReport)
		reports.POST("/:id/transition", h.TransitionReport)
		reports.GET("", h.ListReports)
	}
}

// CreateReport captures one station-day sales report with derived fields.
func (h *ReportHandler) CreateReport(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Not authenticated"))
		return
	}

	var req service.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	report, err := h.reportService.Create(c.Request.Context(), actor, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, report))
}

// UpdateReport replaces a report's line items and recomputes derived fields.
func (h *ReportHandler) UpdateReport(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Not authenticated"))
		return
	}

	var req service.UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	report, err := h.reportService.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// TransitionReport moves a report through the approval state machine.
func (h *ReportHandler) TransitionReport(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Not authenticated"))
		return
	}

	var req service.TransitionReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	report, err := h.reportService.Transition(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// ListReports returns reports filtered by station, zone, status and date range.
func (h *ReportHandler) ListReports(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Not authenticated"))
		return
	}

	filter := service.ReportListFilter{
		ZoneID:    c.Query("zone_id"),
		StationID: c.Query("station_id"),
		Status:    c.Query("status"),
		From:      c.Query("from"),
		To:        c.Query("to"),
	}
	params := pagination.Parse(c)

	reports, total, err := h.reportService.List(c.Request.Context(), actor, filter, params.Page, params.Limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, reports, params.Page, params.Limit, total))
}

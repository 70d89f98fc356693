package handler

import (
	"net/http"
	"strconv"
	"time"

	"custodia/internal/middleware"
	"custodia/internal/model"
	"custodia/internal/service"
	"custodia/pkg/pagination"
	"custodia/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ExpenseHandler struct {
	expenseService service.ExpenseService
}

func NewExpenseHandler(expenseService service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

func (h *ExpenseHandler) RegisterRoutes(router *gin.RouterGroup) {
	expenses := router.Group("/api/expenses")
	{
		expenses.POST("", h.CreateExpense)
		expenses.GET("", h.ListExpenses)
		expenses.GET("/availability", h.Availability)
	}
}

// CreateExpense validates an expense against the spending limit and the
// custody balance before inserting it.
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Not authenticated"))
		return
	}

	var req service.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	expense, err := h.expenseService.Create(c.Request.Context(), actor, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, expense))
}

// ListExpenses returns expenses filtered by station, zone and date range.
func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
	filter := service.ExpenseListFilter{
		StationID: c.Query("station_id"),
		ZoneID:    c.Query("zone_id"),
		From:      c.Query("from"),
		To:        c.Query("to"),
	}
	params := pagination.Parse(c)

	expenses, total, err := h.expenseService.List(c.Request.Context(), filter, params.Page, params.Limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, expenses, params.Page, params.Limit, total))
}

// Availability returns the remaining spending headroom for an entity.
func (h *ExpenseHandler) Availability(c *gin.Context) {
	entityType := model.EntityType(c.Query("entity_type"))
	entityID, err := uuid.Parse(c.Query("entity_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid entity_id"))
		return
	}

	now := time.Now()
	year, _ := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	month, _ := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))

	availability, _, err := h.expenseService.Available(c.Request.Context(), entityType, entityID, year, month)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, availability))
}

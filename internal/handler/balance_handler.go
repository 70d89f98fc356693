package handler

import (
	"net/http"
	"strconv"
	"time"

	"custodia/internal/service"
	"custodia/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BalanceHandler struct {
	balanceService service.BalanceService
}

func NewBalanceHandler(balanceService service.BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceService: balanceService}
}

func (h *BalanceHandler) RegisterRoutes(router *gin.RouterGroup) {
	balances := router.Group("/api/balances")
	{
		balances.GET("/station/:id", h.StationBalance)
		balances.GET("/zone/:id", h.ZoneBalance)
	}
}

// StationBalance returns a station's custody balance and its components for
// the requested month (defaults to the current one).
func (h *BalanceHandler) StationBalance(c *gin.Context) {
	stationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid station id"))
		return
	}
	year, month := periodQuery(c)

	balance, err := h.balanceService.StationBalance(c.Request.Context(), stationID, year, month)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, balance))
}

// ZoneBalance returns a zone's custody balance and its components.
func (h *BalanceHandler) ZoneBalance(c *gin.Context) {
	zoneID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid zone id"))
		return
	}
	year, month := periodQuery(c)

	balance, err := h.balanceService.ZoneBalance(c.Request.Context(), zoneID, year, month)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, balance))
}

// periodQuery reads year/month query parameters, falling back to now.
func periodQuery(c *gin.Context) (int, int) {
	now := time.Now()
	year, _ := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	month, _ := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	return year, month
}

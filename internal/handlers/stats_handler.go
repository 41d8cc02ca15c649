package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ibooks/internal/models"
	"ibooks/internal/services"
)

// StatsHandler serves the read-only aggregations. Expense figures are net of refunds.
type StatsHandler struct {
	statsService services.StatsServicer
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(statsService services.StatsServicer) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// YearCategory breaks a year down by category and by month
// @Summary     Yearly category breakdown
// @Tags        stats
// @Produce     json
// @Security    BearerAuth
// @Param       year query int    true "Calendar year (1970-2100)"
// @Param       type query string true "income or expense"
// @Success     200 {object} services.YearCategoryStats
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /stats/year-category [get]
func (h *StatsHandler) YearCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	year, err := parseQueryInt(c, "year")
	if err != nil {
		respondWithError(c, err)
		return
	}

	out, err := h.statsService.YearCategory(c.Request.Context(), userID, year, models.CategoryType(c.Query("type")))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// MonthCategory breaks one month down by category
// @Summary     Monthly category breakdown
// @Tags        stats
// @Produce     json
// @Security    BearerAuth
// @Param       month query string true "YYYY-MM"
// @Param       type  query string true "income or expense"
// @Success     200 {object} services.MonthCategoryStats
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /stats/month-category [get]
func (h *StatsHandler) MonthCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	out, err := h.statsService.MonthCategory(c.Request.Context(), userID, c.Query("month"), models.CategoryType(c.Query("type")))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// MonthlyRange returns income and expense per month over an inclusive range
// @Summary     Monthly income and expense series
// @Description Months without activity are present with zero values.
// @Tags        stats
// @Produce     json
// @Security    BearerAuth
// @Param       startMonth query string true "YYYY-MM"
// @Param       endMonth   query string true "YYYY-MM"
// @Success     200 {object} services.MonthlyRangeStats
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /stats/monthly-range [get]
func (h *StatsHandler) MonthlyRange(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	out, err := h.statsService.MonthlyRange(c.Request.Context(), userID, c.Query("startMonth"), c.Query("endMonth"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// YoYMonthly compares each month of a year with the previous year
// @Summary     Year-over-year monthly comparison
// @Tags        stats
// @Produce     json
// @Security    BearerAuth
// @Param       year query int    true "Current year"
// @Param       type query string true "income or expense"
// @Success     200 {object} services.YoYMonthlyStats
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /stats/yoy-monthly [get]
func (h *StatsHandler) YoYMonthly(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	year, err := parseQueryInt(c, "year")
	if err != nil {
		respondWithError(c, err)
		return
	}

	out, err := h.statsService.YoYMonthly(c.Request.Context(), userID, year, models.CategoryType(c.Query("type")))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

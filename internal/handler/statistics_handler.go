package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grid-mediation-api/internal/service"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
	"github.com/noah-isme/grid-mediation-api/pkg/response"
)

// StatisticsHandler exposes aggregate reporting endpoints.
type StatisticsHandler struct {
	stats *service.StatisticsService
}

// NewStatisticsHandler constructs StatisticsHandler.
func NewStatisticsHandler(stats *service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{stats: stats}
}

// Overview godoc
// @Summary Task statistics overview
// @Description By-type, by-status and (for administrators) by-grid aggregates
// @Tags Statistics
// @Produce json
// @Param gridId query string false "Restrict to one grid"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /statistics/overview [get]
func (h *StatisticsHandler) Overview(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, err := h.stats.Overview(c.Request.Context(), actor, c.Query("gridId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Monthly godoc
// @Summary Monthly mediation report
// @Description Per-type totals with resolved and unresolved counts for one period
// @Tags Statistics
// @Produce json
// @Param period query string true "Period (YYYY-MM)"
// @Param gridId query string false "Restrict to one grid"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /statistics/monthly [get]
func (h *StatisticsHandler) Monthly(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	report, err := h.stats.Monthly(c.Request.Context(), actor, c.Query("period"), c.Query("gridId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Export the monthly report
// @Description Renders the monthly report as CSV or PDF
// @Tags Statistics
// @Produce octet-stream
// @Param period query string true "Period (YYYY-MM)"
// @Param gridId query string false "Restrict to one grid"
// @Param format query string true "csv or pdf"
// @Success 200
// @Failure 400 {object} response.Envelope
// @Router /statistics/monthly/export [get]
func (h *StatisticsHandler) Export(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	period := c.Query("period")
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.stats.ExportMonthly(c.Request.Context(), actor, period, c.Query("gridId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("mediation-report-%s.%s", period, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

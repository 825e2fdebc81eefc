package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grid-mediation-api/internal/dto"
	"github.com/noah-isme/grid-mediation-api/internal/models"
	"github.com/noah-isme/grid-mediation-api/internal/service"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
	"github.com/noah-isme/grid-mediation-api/pkg/response"
)

// PerformanceHandler exposes mediator scoring endpoints.
type PerformanceHandler struct {
	scores *service.PerformanceService
}

// NewPerformanceHandler constructs PerformanceHandler.
func NewPerformanceHandler(scores *service.PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{scores: scores}
}

// Score godoc
// @Summary Grade a mediator for one period
// @Description Re-grading the same period replaces the earlier record
// @Tags Performance
// @Accept json
// @Produce json
// @Param payload body dto.ScoreMediatorRequest true "Score payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /performance/scores [post]
func (h *PerformanceHandler) Score(c *gin.Context) {
	scorer := accountFromContext(c)
	if scorer == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ScoreMediatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid score payload"))
		return
	}

	score, err := h.scores.Score(c.Request.Context(), scorer, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, score)
}

// List godoc
// @Summary List scores
// @Description Lists scores narrowed to the caller's scope
// @Tags Performance
// @Produce json
// @Param mediatorId query string false "Filter by mediator"
// @Param period query string false "Filter by period (YYYY-MM)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /performance/scores [get]
func (h *PerformanceHandler) List(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.PerformanceFilter
	filter.MediatorID = c.Query("mediatorId")
	filter.Period = c.Query("period")
	filter.Page = queryInt(c, "page", 1)
	filter.PageSize = queryInt(c, "limit", 20)

	scores, total, err := h.scores.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scores, paginationFor(filter.Page, filter.PageSize, total))
}

// History godoc
// @Summary Mediator score history with aggregates
// @Tags Performance
// @Produce json
// @Param id path string true "Mediator ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /performance/mediators/{id} [get]
func (h *PerformanceHandler) History(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	history, err := h.scores.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

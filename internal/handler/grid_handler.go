package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grid-mediation-api/internal/dto"
	"github.com/noah-isme/grid-mediation-api/internal/models"
	"github.com/noah-isme/grid-mediation-api/internal/service"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
	"github.com/noah-isme/grid-mediation-api/pkg/response"
)

// GridHandler exposes grid management endpoints.
type GridHandler struct {
	grids *service.GridService
}

// NewGridHandler constructs GridHandler.
func NewGridHandler(grids *service.GridService) *GridHandler {
	return &GridHandler{grids: grids}
}

// List godoc
// @Summary List grids
// @Tags Grids
// @Produce json
// @Param search query string false "Search by name or region"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /grids [get]
func (h *GridHandler) List(c *gin.Context) {
	var filter models.GridFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if active := c.Query("active"); active != "" {
		v := active == "true"
		filter.Active = &v
	}
	filter.Page = queryInt(c, "page", 1)
	filter.PageSize = queryInt(c, "limit", 20)

	grids, total, err := h.grids.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grids, paginationFor(filter.Page, filter.PageSize, total))
}

// Get godoc
// @Summary Get grid detail
// @Tags Grids
// @Produce json
// @Param id path string true "Grid ID"
// @Success 200 {object} response.Envelope
// @Router /grids/{id} [get]
func (h *GridHandler) Get(c *gin.Context) {
	grid, err := h.grids.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// Create godoc
// @Summary Create grid
// @Tags Grids
// @Accept json
// @Produce json
// @Param payload body dto.CreateGridRequest true "Grid payload"
// @Success 201 {object} response.Envelope
// @Router /grids [post]
func (h *GridHandler) Create(c *gin.Context) {
	var req dto.CreateGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grid payload"))
		return
	}
	grid, err := h.grids.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grid)
}

// Update godoc
// @Summary Update grid
// @Tags Grids
// @Accept json
// @Produce json
// @Param id path string true "Grid ID"
// @Param payload body dto.UpdateGridRequest true "Grid payload"
// @Success 200 {object} response.Envelope
// @Router /grids/{id} [put]
func (h *GridHandler) Update(c *gin.Context) {
	var req dto.UpdateGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grid payload"))
		return
	}
	grid, err := h.grids.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// Delete godoc
// @Summary Deactivate grid
// @Description Retires a grid; blocked while unfinished tasks remain
// @Tags Grids
// @Produce json
// @Param id path string true "Grid ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /grids/{id} [delete]
func (h *GridHandler) Delete(c *gin.Context) {
	if err := h.grids.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetManager godoc
// @Summary Set or clear the grid manager
// @Tags Grids
// @Accept json
// @Produce json
// @Param id path string true "Grid ID"
// @Param payload body dto.SetGridManagerRequest true "Manager payload"
// @Success 200 {object} response.Envelope
// @Router /grids/{id}/manager [put]
func (h *GridHandler) SetManager(c *gin.Context) {
	var req dto.SetGridManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid manager payload"))
		return
	}
	grid, err := h.grids.SetManager(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// ListMediators godoc
// @Summary List grid mediators
// @Tags Grids
// @Produce json
// @Param id path string true "Grid ID"
// @Success 200 {object} response.Envelope
// @Router /grids/{id}/mediators [get]
func (h *GridHandler) ListMediators(c *gin.Context) {
	mediators, err := h.grids.ListMediators(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mediators, nil)
}

// AddMediator godoc
// @Summary Bind mediator to grid
// @Tags Grids
// @Accept json
// @Produce json
// @Param id path string true "Grid ID"
// @Param payload body dto.AddGridMediatorRequest true "Mediator payload"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /grids/{id}/mediators [post]
func (h *GridHandler) AddMediator(c *gin.Context) {
	var req dto.AddGridMediatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mediator payload"))
		return
	}
	if err := h.grids.AddMediator(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveMediator godoc
// @Summary Unbind mediator from grid
// @Tags Grids
// @Produce json
// @Param id path string true "Grid ID"
// @Param mediatorId path string true "Mediator ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /grids/{id}/mediators/{mediatorId} [delete]
func (h *GridHandler) RemoveMediator(c *gin.Context) {
	if err := h.grids.RemoveMediator(c.Request.Context(), c.Param("id"), c.Param("mediatorId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MapData godoc
// @Summary Grid map overview
// @Description Returns every active grid with boundary and roster size
// @Tags Grids
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grids/map [get]
func (h *GridHandler) MapData(c *gin.Context) {
	items, err := h.grids.MapData(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Statistics godoc
// @Summary Grid task statistics
// @Tags Grids
// @Produce json
// @Param id path string true "Grid ID"
// @Success 200 {object} response.Envelope
// @Router /grids/{id}/statistics [get]
func (h *GridHandler) Statistics(c *gin.Context) {
	stats, err := h.grids.Statistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

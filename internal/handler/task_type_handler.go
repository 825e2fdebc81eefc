package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grid-mediation-api/internal/dto"
	"github.com/noah-isme/grid-mediation-api/internal/service"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
	"github.com/noah-isme/grid-mediation-api/pkg/response"
)

// TaskTypeHandler exposes task category endpoints.
type TaskTypeHandler struct {
	types *service.TaskTypeService
}

// NewTaskTypeHandler constructs TaskTypeHandler.
func NewTaskTypeHandler(types *service.TaskTypeService) *TaskTypeHandler {
	return &TaskTypeHandler{types: types}
}

// List godoc
// @Summary List task types
// @Tags TaskTypes
// @Produce json
// @Param includeInactive query bool false "Include disabled types"
// @Success 200 {object} response.Envelope
// @Router /task-types [get]
func (h *TaskTypeHandler) List(c *gin.Context) {
	includeInactive := c.Query("includeInactive") == "true"
	types, err := h.types.List(c.Request.Context(), includeInactive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// Create godoc
// @Summary Create task type
// @Tags TaskTypes
// @Accept json
// @Produce json
// @Param payload body dto.CreateTaskTypeRequest true "Type payload"
// @Success 201 {object} response.Envelope
// @Router /task-types [post]
func (h *TaskTypeHandler) Create(c *gin.Context) {
	var req dto.CreateTaskTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	taskType, err := h.types.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, taskType)
}

// Update godoc
// @Summary Update task type
// @Description Disabling a type only blocks new reports; existing tasks keep it
// @Tags TaskTypes
// @Accept json
// @Produce json
// @Param id path string true "Type ID"
// @Param payload body dto.UpdateTaskTypeRequest true "Type payload"
// @Success 200 {object} response.Envelope
// @Router /task-types/{id} [put]
func (h *TaskTypeHandler) Update(c *gin.Context) {
	var req dto.UpdateTaskTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	taskType, err := h.types.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, taskType, nil)
}

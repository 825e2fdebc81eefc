package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/grid-mediation-api/internal/dto"
	"github.com/noah-isme/grid-mediation-api/internal/models"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
)

type taskTypeRepository interface {
	Create(ctx context.Context, taskType *models.TaskType) error
	GetByID(ctx context.Context, id string) (*models.TaskType, error)
	List(ctx context.Context, activeOnly bool) ([]models.TaskType, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
}

// TaskTypeService manages the dynamic task categories.
type TaskTypeService struct {
	repo      taskTypeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTaskTypeService constructs a TaskTypeService instance.
func NewTaskTypeService(repo taskTypeRepository, validate *validator.Validate, logger *zap.Logger) *TaskTypeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TaskTypeService{repo: repo, validator: validate, logger: logger}
}

// Create adds a new category.
func (s *TaskTypeService) Create(ctx context.Context, req dto.CreateTaskTypeRequest) (*models.TaskType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task type payload")
	}
	taskType := &models.TaskType{Name: req.Name, SortOrder: req.SortOrder}
	if err := s.repo.Create(ctx, taskType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task type")
	}
	return taskType, nil
}

// List returns categories; non-managers only see active ones.
func (s *TaskTypeService) List(ctx context.Context, includeInactive bool) ([]models.TaskType, error) {
	taskTypes, err := s.repo.List(ctx, !includeInactive)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list task types")
	}
	return taskTypes, nil
}

// Update mutates a category. Disabling keeps existing tasks intact; only
// new reports are blocked from using the type.
func (s *TaskTypeService) Update(ctx context.Context, id string, req dto.UpdateTaskTypeRequest) (*models.TaskType, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task type")
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.SortOrder != nil {
		fields["sort_order"] = *req.SortOrder
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}
	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task type")
		}
	}

	taskType, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload task type")
	}
	return taskType, nil
}

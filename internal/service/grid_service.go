package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/grid-mediation-api/internal/dto"
	"github.com/noah-isme/grid-mediation-api/internal/models"
	"github.com/noah-isme/grid-mediation-api/internal/repository"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
)

type gridRepository interface {
	Create(ctx context.Context, grid *models.Grid) error
	GetByID(ctx context.Context, id string) (*models.Grid, error)
	List(ctx context.Context, filter models.GridFilter) ([]models.Grid, int, error)
	ListActive(ctx context.Context) ([]models.Grid, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	SetManager(ctx context.Context, gridID string, managerID *string) error
	ListMediators(ctx context.Context, gridID string) ([]models.GridMediator, error)
}

type gridUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	ClearGridMembers(ctx context.Context, gridID string) error
}

type gridTaskChecker interface {
	HasUnfinishedInGrid(ctx context.Context, gridID string) (bool, error)
	HasUnfinishedForMediator(ctx context.Context, gridID, mediatorID string) (bool, error)
}

type gridStatsReader interface {
	CountByStatus(ctx context.Context, scope repository.StatisticsScope) ([]models.TaskStatusCount, error)
	CountByType(ctx context.Context, scope repository.StatisticsScope) ([]models.TaskTypeCount, error)
}

// GridService manages grids, manager bindings and mediator rosters.
type GridService struct {
	grids     gridRepository
	users     gridUserStore
	tasks     gridTaskChecker
	stats     gridStatsReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGridService constructs a GridService instance.
func NewGridService(grids gridRepository, users gridUserStore, tasks gridTaskChecker, stats gridStatsReader, validate *validator.Validate, logger *zap.Logger) *GridService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GridService{grids: grids, users: users, tasks: tasks, stats: stats, validator: validate, logger: logger}
}

// Create defines a new grid.
func (s *GridService) Create(ctx context.Context, req dto.CreateGridRequest) (*models.Grid, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grid payload")
	}
	if err := req.Boundary.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	grid := &models.Grid{
		Name:        req.Name,
		Region:      optionalString(req.Region),
		Boundary:    req.Boundary,
		CenterLng:   req.CenterLng,
		CenterLat:   req.CenterLat,
		Description: optionalString(req.Description),
	}
	if err := s.grids.Create(ctx, grid); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grid")
	}
	return grid, nil
}

// Get returns one grid.
func (s *GridService) Get(ctx context.Context, id string) (*models.Grid, error) {
	grid, err := s.grids.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grid not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grid")
	}
	return grid, nil
}

// List returns grids matching the filter.
func (s *GridService) List(ctx context.Context, filter models.GridFilter) ([]models.Grid, int, error) {
	grids, total, err := s.grids.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grids")
	}
	return grids, total, nil
}

// Update mutates grid fields.
func (s *GridService) Update(ctx context.Context, id string, req dto.UpdateGridRequest) (*models.Grid, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := req.Boundary.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Region != nil {
		fields["region"] = *req.Region
	}
	if req.Boundary != nil {
		fields["boundary"] = req.Boundary
	}
	if req.CenterLng != nil {
		fields["center_lng"] = *req.CenterLng
	}
	if req.CenterLat != nil {
		fields["center_lat"] = *req.CenterLat
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if len(fields) > 0 {
		if err := s.grids.Update(ctx, id, fields); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "grid not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grid")
		}
	}
	return s.Get(ctx, id)
}

// Deactivate retires a grid. Grids with unfinished tasks stay active;
// members of a retired grid lose their binding.
func (s *GridService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	unfinished, err := s.tasks.HasUnfinishedInGrid(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grid tasks")
	}
	if unfinished {
		return appErrors.Clone(appErrors.ErrConflict, "grid still has unfinished tasks")
	}

	if err := s.grids.Update(ctx, id, map[string]interface{}{"active": false, "current_manager_id": nil}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate grid")
	}
	if err := s.users.ClearGridMembers(ctx, id); err != nil {
		s.logger.Warn("failed to detach members of retired grid", zap.Error(err))
	}
	return nil
}

// SetManager binds or clears the grid's manager. The incoming manager
// must hold the grid manager role; a manager already running another grid
// is moved, not duplicated.
func (s *GridService) SetManager(ctx context.Context, gridID string, req dto.SetGridManagerRequest) (*models.Grid, error) {
	if _, err := s.Get(ctx, gridID); err != nil {
		return nil, err
	}

	if req.ManagerID != nil {
		manager, err := s.users.FindByID(ctx, *req.ManagerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "manager not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load manager")
		}
		if manager.Role != models.RoleGridManager || !manager.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, "assignee must be an active grid manager")
		}
	}

	if err := s.grids.SetManager(ctx, gridID, req.ManagerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grid not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set grid manager")
	}
	return s.Get(ctx, gridID)
}

// ListMediators returns the grid's mediator roster.
func (s *GridService) ListMediators(ctx context.Context, gridID string) ([]models.GridMediator, error) {
	if _, err := s.Get(ctx, gridID); err != nil {
		return nil, err
	}
	mediators, err := s.grids.ListMediators(ctx, gridID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mediators")
	}
	return mediators, nil
}

// AddMediator binds a mediator to the grid. A mediator holds at most one
// grid; moving is allowed only when no unfinished assignments remain in
// the previous grid.
func (s *GridService) AddMediator(ctx context.Context, gridID string, req dto.AddGridMediatorRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster payload")
	}
	if _, err := s.Get(ctx, gridID); err != nil {
		return err
	}

	mediator, err := s.users.FindByID(ctx, req.MediatorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "mediator not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mediator")
	}
	if mediator.Role != models.RoleMediator || !mediator.Active {
		return appErrors.Clone(appErrors.ErrValidation, "user must be an active mediator")
	}

	if mediator.GridID != nil && *mediator.GridID != gridID {
		unfinished, err := s.tasks.HasUnfinishedForMediator(ctx, *mediator.GridID, mediator.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check mediator tasks")
		}
		if unfinished {
			return appErrors.Clone(appErrors.ErrConflict, "mediator still has unfinished tasks in another grid")
		}
	}

	if err := s.users.Update(ctx, mediator.ID, map[string]interface{}{"grid_id": gridID}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bind mediator")
	}
	return nil
}

// RemoveMediator unbinds a mediator from the grid unless unfinished
// assignments remain.
func (s *GridService) RemoveMediator(ctx context.Context, gridID, mediatorID string) error {
	if _, err := s.Get(ctx, gridID); err != nil {
		return err
	}

	mediator, err := s.users.FindByID(ctx, mediatorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "mediator not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mediator")
	}
	if mediator.GridID == nil || *mediator.GridID != gridID {
		return appErrors.Clone(appErrors.ErrValidation, "mediator is not in this grid")
	}

	unfinished, err := s.tasks.HasUnfinishedForMediator(ctx, gridID, mediatorID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check mediator tasks")
	}
	if unfinished {
		return appErrors.Clone(appErrors.ErrConflict, "mediator still has unfinished tasks in this grid")
	}

	if err := s.users.Update(ctx, mediatorID, map[string]interface{}{"grid_id": nil}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unbind mediator")
	}
	return nil
}

// MapData returns every active grid shaped for map rendering.
func (s *GridService) MapData(ctx context.Context) ([]dto.GridMapItem, error) {
	grids, err := s.grids.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load map data")
	}
	items := make([]dto.GridMapItem, 0, len(grids))
	for _, grid := range grids {
		items = append(items, dto.GridMapItem{
			ID:            grid.ID,
			Name:          grid.Name,
			Boundary:      grid.Boundary,
			CenterLng:     grid.CenterLng,
			CenterLat:     grid.CenterLat,
			ManagerName:   grid.ManagerName,
			MediatorCount: grid.MediatorCount,
		})
	}
	return items, nil
}

// Statistics summarises task load inside one grid.
func (s *GridService) Statistics(ctx context.Context, gridID string) (*dto.GridStatistics, error) {
	grid, err := s.Get(ctx, gridID)
	if err != nil {
		return nil, err
	}

	scope := repository.StatisticsScope{GridID: gridID}
	byStatus, err := s.stats.CountByStatus(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate grid tasks")
	}
	byType, err := s.stats.CountByType(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate grid tasks")
	}

	return &dto.GridStatistics{
		GridID:    grid.ID,
		GridName:  grid.Name,
		ByStatus:  byStatus,
		ByType:    byType,
		Mediators: grid.MediatorCount,
	}, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/grid-mediation-api/internal/dto"
	"github.com/noah-isme/grid-mediation-api/internal/models"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

type performanceRepository interface {
	Upsert(ctx context.Context, score *models.PerformanceScore) error
	List(ctx context.Context, filter models.PerformanceFilter) ([]models.PerformanceScore, int, error)
	Summary(ctx context.Context, mediatorID string) (*models.PerformanceSummary, error)
}

type performanceUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// PerformanceService records and reads mediator period scores.
type PerformanceService struct {
	scores    performanceRepository
	users     performanceUserReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPerformanceService constructs a PerformanceService instance.
func NewPerformanceService(scores performanceRepository, users performanceUserReader, validate *validator.Validate, logger *zap.Logger) *PerformanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PerformanceService{scores: scores, users: users, validator: validate, logger: logger}
}

// Score grades a mediator for one period. Administrators grade anyone;
// grid managers grade mediators of their own grid. Re-grading the same
// period replaces the earlier record.
func (s *PerformanceService) Score(ctx context.Context, scorer *models.User, req dto.ScoreMediatorRequest) (*models.PerformanceScore, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}
	if !periodPattern.MatchString(req.Period) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period must use the YYYY-MM format")
	}

	mediator, err := s.users.FindByID(ctx, req.MediatorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "mediator not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mediator")
	}
	if mediator.Role != models.RoleMediator {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scores apply to mediators only")
	}

	switch scorer.Role {
	case models.RoleAdmin:
		// Unrestricted.
	case models.RoleGridManager:
		if scorer.GridID == nil || mediator.GridID == nil || *scorer.GridID != *mediator.GridID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "mediator is outside your grid")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only managers grade mediators")
	}

	score := &models.PerformanceScore{
		MediatorID: mediator.ID,
		ScorerID:   scorer.ID,
		Score:      req.Score,
		Period:     req.Period,
		Comment:    optionalString(req.Comment),
	}
	if err := s.scores.Upsert(ctx, score); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record score")
	}
	return score, nil
}

// List returns scores narrowed to the caller's scope.
func (s *PerformanceService) List(ctx context.Context, actor *models.User, filter models.PerformanceFilter) ([]models.PerformanceScore, int, error) {
	switch actor.Role {
	case models.RoleAdmin:
		// Unrestricted.
	case models.RoleGridManager:
		if actor.GridID == nil {
			return []models.PerformanceScore{}, 0, nil
		}
		filter.GridID = *actor.GridID
	case models.RoleMediator:
		filter.MediatorID = actor.ID
	default:
		return []models.PerformanceScore{}, 0, nil
	}

	scores, total, err := s.scores.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scores")
	}
	return scores, total, nil
}

// History returns one mediator's score records with aggregates. A
// mediator reads only their own history.
func (s *PerformanceService) History(ctx context.Context, actor *models.User, mediatorID string) (*dto.PerformanceHistory, error) {
	if actor.Role == models.RoleMediator && actor.ID != mediatorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "history belongs to another mediator")
	}

	mediator, err := s.users.FindByID(ctx, mediatorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mediator not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mediator")
	}
	if actor.Role == models.RoleGridManager {
		if actor.GridID == nil || mediator.GridID == nil || *actor.GridID != *mediator.GridID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "mediator is outside your grid")
		}
	}

	records, _, err := s.scores.List(ctx, models.PerformanceFilter{MediatorID: mediatorID, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load score history")
	}
	summary, err := s.scores.Summary(ctx, mediatorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise scores")
	}

	return &dto.PerformanceHistory{
		UserID:  mediator.ID,
		Name:    mediator.Name,
		Summary: *summary,
		Records: records,
	}, nil
}

package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/grid-mediation-api/internal/dto"
	"github.com/noah-isme/grid-mediation-api/internal/models"
	"github.com/noah-isme/grid-mediation-api/internal/repository"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
	"github.com/noah-isme/grid-mediation-api/pkg/export"
)

type statisticsRepository interface {
	CountByType(ctx context.Context, scope repository.StatisticsScope) ([]models.TaskTypeCount, error)
	CountByStatus(ctx context.Context, scope repository.StatisticsScope) ([]models.TaskStatusCount, error)
	CountByGrid(ctx context.Context, scope repository.StatisticsScope) ([]models.GridTaskCount, error)
	CountTotal(ctx context.Context, scope repository.StatisticsScope) (int, error)
	MonthlyByType(ctx context.Context, periodStart, periodEnd time.Time, gridID string) ([]models.MonthlyTypeRow, error)
}

// StatisticsService aggregates tasks for dashboards and reports. Reads go
// through the cache; writes elsewhere do not invalidate, so dashboards
// may lag by at most the TTL.
type StatisticsService struct {
	stats    statisticsRepository
	cache    *CacheService
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewStatisticsService constructs a StatisticsService instance.
func NewStatisticsService(stats statisticsRepository, cache *CacheService, csv *export.CSVExporter, pdf *export.PDFExporter, logger *zap.Logger, cacheTTL time.Duration) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{stats: stats, cache: cache, csv: csv, pdf: pdf, logger: logger, cacheTTL: cacheTTL}
}

func statsScopeFor(actor *models.User, gridID string) (repository.StatisticsScope, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return repository.StatisticsScope{GridID: gridID}, nil
	case models.RoleGridManager:
		if actor.GridID == nil {
			return repository.StatisticsScope{}, appErrors.Clone(appErrors.ErrForbidden, "no grid is bound to your account")
		}
		if gridID != "" && gridID != *actor.GridID {
			return repository.StatisticsScope{}, appErrors.Clone(appErrors.ErrForbidden, "grid is outside your scope")
		}
		return repository.StatisticsScope{GridID: *actor.GridID}, nil
	default:
		return repository.StatisticsScope{}, appErrors.Clone(appErrors.ErrForbidden, "statistics require a manager role")
	}
}

// Overview returns the by-type, by-status and by-grid aggregates.
func (s *StatisticsService) Overview(ctx context.Context, actor *models.User, gridID string) (*dto.TaskStatistics, error) {
	scope, err := statsScopeFor(actor, gridID)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("stats:overview:%s", scope.GridID)
	var cached dto.TaskStatistics
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	byType, err := s.stats.CountByType(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate by type")
	}
	byStatus, err := s.stats.CountByStatus(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate by status")
	}
	total, err := s.stats.CountTotal(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count tasks")
	}

	result := &dto.TaskStatistics{ByType: byType, ByStatus: byStatus, Total: total}
	if actor.Role == models.RoleAdmin && scope.GridID == "" {
		byGrid, err := s.stats.CountByGrid(ctx, scope)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate by grid")
		}
		result.ByGrid = byGrid
	}

	if err := s.cache.Set(ctx, cacheKey, result, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache statistics overview", zap.Error(err))
	}
	return result, nil
}

// Monthly builds the per-period cross-tab of types against outcomes.
// Period uses the YYYY-MM format.
func (s *StatisticsService) Monthly(ctx context.Context, actor *models.User, period, gridID string) (*dto.MonthlyReport, error) {
	scope, err := statsScopeFor(actor, gridID)
	if err != nil {
		return nil, err
	}
	start, end, err := parsePeriod(period)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period must use the YYYY-MM format")
	}

	cacheKey := fmt.Sprintf("stats:monthly:%s:%s", period, scope.GridID)
	var cached dto.MonthlyReport
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	rows, err := s.stats.MonthlyByType(ctx, start, end, scope.GridID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build monthly report")
	}

	report := &dto.MonthlyReport{Period: period, Rows: rows}
	if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache monthly report", zap.Error(err))
	}
	return report, nil
}

// ExportMonthly renders the monthly report as CSV or PDF bytes.
func (s *StatisticsService) ExportMonthly(ctx context.Context, actor *models.User, period, gridID, format string) ([]byte, string, error) {
	report, err := s.Monthly(ctx, actor, period, gridID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Task Type", "Total", "Resolved", "Unresolved"},
	}
	for _, row := range report.Rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Task Type":  row.TypeName,
			"Total":      strconv.Itoa(row.Total),
			"Resolved":   strconv.Itoa(row.Resolved),
			"Unresolved": strconv.Itoa(row.Unresolved),
		})
	}

	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(fmt.Sprintf("Mediation Report %s", period), dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func parsePeriod(period string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 1, 0), nil
}

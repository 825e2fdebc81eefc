package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grid-mediation-api/internal/models"
)

// StatisticsRepository runs aggregate queries over tasks.
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new instance of StatisticsRepository.
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// StatisticsScope narrows aggregates to one grid and/or a time window.
// An empty scope aggregates everything.
type StatisticsScope struct {
	GridID   string
	DateFrom *time.Time
	DateTo   *time.Time
}

func (s StatisticsScope) conditions(prefix string) (string, []interface{}) {
	var parts []string
	var args []interface{}
	if s.GridID != "" {
		args = append(args, s.GridID)
		parts = append(parts, fmt.Sprintf("%sgrid_id = $%d", prefix, len(args)))
	}
	if s.DateFrom != nil {
		args = append(args, *s.DateFrom)
		parts = append(parts, fmt.Sprintf("%screated_at >= $%d", prefix, len(args)))
	}
	if s.DateTo != nil {
		args = append(args, *s.DateTo)
		parts = append(parts, fmt.Sprintf("%screated_at <= $%d", prefix, len(args)))
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(parts, " AND "), args
}

// CountByType aggregates tasks per type.
func (r *StatisticsRepository) CountByType(ctx context.Context, scope StatisticsScope) ([]models.TaskTypeCount, error) {
	where, args := scope.conditions("t.")
	query := `SELECT t.task_type_id, COALESCE(tt.name, '') AS type_name, COUNT(*) AS count
	FROM tasks t
	LEFT JOIN task_types tt ON tt.id = t.task_type_id
	WHERE 1=1` + where + `
	GROUP BY t.task_type_id, tt.name
	ORDER BY count DESC`

	var rows []models.TaskTypeCount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count tasks by type: %w", err)
	}
	return rows, nil
}

// CountByStatus aggregates tasks per lifecycle status.
func (r *StatisticsRepository) CountByStatus(ctx context.Context, scope StatisticsScope) ([]models.TaskStatusCount, error) {
	where, args := scope.conditions("t.")
	query := `SELECT t.status, COUNT(*) AS count
	FROM tasks t
	WHERE 1=1` + where + `
	GROUP BY t.status
	ORDER BY count DESC`

	var rows []models.TaskStatusCount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}
	return rows, nil
}

// CountByGrid aggregates totals and completions per grid.
func (r *StatisticsRepository) CountByGrid(ctx context.Context, scope StatisticsScope) ([]models.GridTaskCount, error) {
	where, args := scope.conditions("t.")
	query := `SELECT t.grid_id, COALESCE(g.name, '') AS grid_name,
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE t.status IN ('COMPLETED', 'ARCHIVED')) AS completed
	FROM tasks t
	LEFT JOIN grids g ON g.id = t.grid_id
	WHERE t.grid_id IS NOT NULL` + where + `
	GROUP BY t.grid_id, g.name
	ORDER BY total DESC`

	var rows []models.GridTaskCount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count tasks by grid: %w", err)
	}
	return rows, nil
}

// CountTotal counts all tasks within scope.
func (r *StatisticsRepository) CountTotal(ctx context.Context, scope StatisticsScope) (int, error) {
	where, args := scope.conditions("t.")
	query := `SELECT COUNT(*) FROM tasks t WHERE 1=1` + where

	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return total, nil
}

// MonthlyByType builds the per-period cross-tab of task types against
// outcomes. Resolved means result in (SUCCESS, PARTIAL); everything else,
// including tasks still open at period end, is unresolved.
func (r *StatisticsRepository) MonthlyByType(ctx context.Context, periodStart, periodEnd time.Time, gridID string) ([]models.MonthlyTypeRow, error) {
	query := `SELECT t.task_type_id, COALESCE(tt.name, '') AS type_name,
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE t.result IN ('SUCCESS', 'PARTIAL')) AS resolved,
		COUNT(*) FILTER (WHERE t.result IS NULL OR t.result NOT IN ('SUCCESS', 'PARTIAL')) AS unresolved
	FROM tasks t
	LEFT JOIN task_types tt ON tt.id = t.task_type_id
	WHERE t.created_at >= $1 AND t.created_at < $2`
	args := []interface{}{periodStart, periodEnd}
	if gridID != "" {
		args = append(args, gridID)
		query += fmt.Sprintf(" AND t.grid_id = $%d", len(args))
	}
	query += `
	GROUP BY t.task_type_id, tt.name
	ORDER BY total DESC`

	var rows []models.MonthlyTypeRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("monthly cross-tab: %w", err)
	}
	return rows, nil
}

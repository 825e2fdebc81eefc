package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grid-mediation-api/internal/models"
)

const performanceSelectColumns = `p.id, p.mediator_id, p.scorer_id, p.score, p.period, p.comment, p.created_at,
	m.name AS mediator_name, s.name AS scorer_name`

const performanceJoins = ` FROM performance_scores p
	LEFT JOIN users m ON m.id = p.mediator_id
	LEFT JOIN users s ON s.id = p.scorer_id`

// PerformanceRepository persists mediator grading records.
type PerformanceRepository struct {
	db *sqlx.DB
}

// NewPerformanceRepository creates a new instance of PerformanceRepository.
func NewPerformanceRepository(db *sqlx.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

// Upsert writes a score, replacing any prior grade for the same
// (mediator, period) pair. Re-grading overwrites rather than duplicating.
func (r *PerformanceRepository) Upsert(ctx context.Context, score *models.PerformanceScore) error {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO performance_scores (id, mediator_id, scorer_id, score, period, comment, created_at)
	VALUES (:id, :mediator_id, :scorer_id, :score, :period, :comment, :created_at)
	ON CONFLICT (mediator_id, period) DO UPDATE SET
		scorer_id = EXCLUDED.scorer_id,
		score = EXCLUDED.score,
		comment = EXCLUDED.comment,
		created_at = EXCLUDED.created_at`
	if _, err := r.db.NamedExecContext(ctx, query, score); err != nil {
		return fmt.Errorf("upsert performance score: %w", err)
	}
	return nil
}

// List returns scores based on filters with total count.
func (r *PerformanceRepository) List(ctx context.Context, filter models.PerformanceFilter) ([]models.PerformanceScore, int, error) {
	baseQuery := performanceJoins + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.MediatorID != "" {
		conditions = append(conditions, fmt.Sprintf("p.mediator_id = $%d", len(args)+1))
		args = append(args, filter.MediatorID)
	}
	if filter.Period != "" {
		conditions = append(conditions, fmt.Sprintf("p.period = $%d", len(args)+1))
		args = append(args, filter.Period)
	}
	if filter.GridID != "" {
		conditions = append(conditions, fmt.Sprintf("m.grid_id = $%d", len(args)+1))
		args = append(args, filter.GridID)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count performance scores: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY p.period DESC, m.name LIMIT %d OFFSET %d",
		performanceSelectColumns, baseQuery, pageSize, (page-1)*pageSize)

	var scores []models.PerformanceScore
	if err := r.db.SelectContext(ctx, &scores, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list performance scores: %w", err)
	}
	return scores, total, nil
}

// Summary aggregates all scores for one mediator.
func (r *PerformanceRepository) Summary(ctx context.Context, mediatorID string) (*models.PerformanceSummary, error) {
	const query = `SELECT AVG(score) AS avg_score, MAX(score) AS max_score, MIN(score) AS min_score
	FROM performance_scores WHERE mediator_id = $1`
	var summary models.PerformanceSummary
	if err := r.db.GetContext(ctx, &summary, query, mediatorID); err != nil {
		return nil, fmt.Errorf("performance summary: %w", err)
	}
	return &summary, nil
}

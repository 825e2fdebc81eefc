package models

import "time"

// PerformanceScore is one grading record per (mediator, period) pair.
// Period format is YYYY-MM; uniqueness is enforced by a composite key.
type PerformanceScore struct {
	ID         string    `db:"id" json:"id"`
	MediatorID string    `db:"mediator_id" json:"mediator_id"`
	ScorerID   string    `db:"scorer_id" json:"scorer_id"`
	Score      int       `db:"score" json:"score"`
	Period     string    `db:"period" json:"period"`
	Comment    *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	// Joined display fields.
	MediatorName *string `db:"mediator_name" json:"mediator_name,omitempty"`
	ScorerName   *string `db:"scorer_name" json:"scorer_name,omitempty"`
}

// PerformanceFilter constrains score listing queries.
type PerformanceFilter struct {
	MediatorID string
	Period     string
	GridID     string
	Page       int
	PageSize   int
}

// PerformanceSummary aggregates a mediator's score history.
type PerformanceSummary struct {
	AvgScore *float64 `db:"avg_score" json:"avg_score,omitempty"`
	MaxScore *int     `db:"max_score" json:"max_score,omitempty"`
	MinScore *int     `db:"min_score" json:"min_score,omitempty"`
}

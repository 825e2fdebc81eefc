package dto

import "github.com/noah-isme/grid-mediation-api/internal/models"

// ScoreMediatorRequest records or revises one period score. Re-scoring the
// same (mediator, period) pair overwrites the previous record.
type ScoreMediatorRequest struct {
	MediatorID string `json:"mediator_id" validate:"required"`
	Period     string `json:"period" validate:"required"`
	Score      int    `json:"score" validate:"min=0,max=100"`
	Comment    string `json:"comment"`
}

// PerformanceHistory is a mediator's own score history with aggregates.
type PerformanceHistory struct {
	UserID  string                    `json:"user_id"`
	Name    string                    `json:"name"`
	Summary models.PerformanceSummary `json:"summary"`
	Records []models.PerformanceScore `json:"records"`
}

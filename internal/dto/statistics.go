package dto

import "github.com/noah-isme/grid-mediation-api/internal/models"

// TaskStatistics is the aggregated task overview.
type TaskStatistics struct {
	ByType   []models.TaskTypeCount   `json:"by_type"`
	ByStatus []models.TaskStatusCount `json:"by_status"`
	ByGrid   []models.GridTaskCount   `json:"by_grid,omitempty"`
	Total    int                      `json:"total"`
}

// MonthlyReport is the per-period cross-tab of types against outcomes.
type MonthlyReport struct {
	Period string                  `json:"period"`
	Rows   []models.MonthlyTypeRow `json:"rows"`
}

package dto

import "github.com/noah-isme/grid-mediation-api/internal/models"

// CreateGridRequest defines a new grid.
type CreateGridRequest struct {
	Name        string              `json:"name" validate:"required"`
	Region      string              `json:"region"`
	Boundary    models.GridBoundary `json:"boundary"`
	CenterLng   *float64            `json:"center_lng"`
	CenterLat   *float64            `json:"center_lat"`
	Description string              `json:"description"`
}

// UpdateGridRequest mutates grid fields.
type UpdateGridRequest struct {
	Name        *string             `json:"name"`
	Region      *string             `json:"region"`
	Boundary    models.GridBoundary `json:"boundary"`
	CenterLng   *float64            `json:"center_lng"`
	CenterLat   *float64            `json:"center_lat"`
	Description *string             `json:"description"`
}

// SetGridManagerRequest sets or clears the grid's manager. A nil ManagerID
// clears the current manager.
type SetGridManagerRequest struct {
	ManagerID *string `json:"manager_id"`
}

// AddGridMediatorRequest binds a mediator to the grid.
type AddGridMediatorRequest struct {
	MediatorID string `json:"mediator_id" validate:"required"`
}

// GridMapItem is one grid on the overview map.
type GridMapItem struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Boundary      models.GridBoundary `json:"boundary,omitempty"`
	CenterLng     *float64            `json:"center_lng,omitempty"`
	CenterLat     *float64            `json:"center_lat,omitempty"`
	ManagerName   *string             `json:"manager_name,omitempty"`
	MediatorCount int                 `json:"mediator_count"`
}

// ReverseGeocodeResponse carries the address resolved for a coordinate pair.
type ReverseGeocodeResponse struct {
	Address  string `json:"address"`
	Province string `json:"province,omitempty"`
	City     string `json:"city,omitempty"`
	District string `json:"district,omitempty"`
}

// GridStatistics summarises task load inside one grid.
type GridStatistics struct {
	GridID    string                   `json:"grid_id"`
	GridName  string                   `json:"grid_name"`
	ByStatus  []models.TaskStatusCount `json:"by_status"`
	ByType    []models.TaskTypeCount   `json:"by_type"`
	Mediators int                      `json:"mediators"`
}

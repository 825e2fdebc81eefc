package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// GeoPoint is a [lng, lat] coordinate pair.
type GeoPoint [2]float64

// Lng returns the longitude component.
func (p GeoPoint) Lng() float64 { return p[0] }

// Lat returns the latitude component.
func (p GeoPoint) Lat() float64 { return p[1] }

// GridBoundary is an ordered polygon of [lng, lat] pairs stored as JSONB.
type GridBoundary []GeoPoint

// Value implements driver.Valuer for JSONB storage.
func (b GridBoundary) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (b *GridBoundary) Scan(src interface{}) error {
	if src == nil {
		*b = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return fmt.Errorf("unsupported boundary type %T", src)
	}
}

// Validate checks that a present boundary forms a polygon.
func (b GridBoundary) Validate() error {
	if len(b) == 0 {
		return nil
	}
	if len(b) < 3 {
		return fmt.Errorf("boundary requires at least 3 points, got %d", len(b))
	}
	return nil
}

// Grid represents a geographic mediation responsibility unit.
type Grid struct {
	ID               string       `db:"id" json:"id"`
	Name             string       `db:"name" json:"name"`
	Region           *string      `db:"region" json:"region,omitempty"`
	Boundary         GridBoundary `db:"boundary" json:"boundary,omitempty"`
	CenterLng        *float64     `db:"center_lng" json:"center_lng,omitempty"`
	CenterLat        *float64     `db:"center_lat" json:"center_lat,omitempty"`
	CurrentManagerID *string      `db:"current_manager_id" json:"current_manager_id,omitempty"`
	Description      *string      `db:"description" json:"description,omitempty"`
	Active           bool         `db:"active" json:"active"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`

	// Joined display fields.
	ManagerName   *string `db:"manager_name" json:"manager_name,omitempty"`
	MediatorCount int     `db:"mediator_count" json:"mediator_count"`
}

// GridFilter constrains grid listing queries.
type GridFilter struct {
	Search   string
	Active   *bool
	Page     int
	PageSize int
}

// GridMediator is a roster row for a grid's mediator list.
type GridMediator struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Active         bool      `db:"active" json:"active"`
	TaskCount      int       `db:"task_count" json:"task_count"`
	CompletedCount int       `db:"completed_count" json:"completed_count"`
	JoinedAt       time.Time `db:"joined_at" json:"joined_at"`
}

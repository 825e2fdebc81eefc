package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grid-mediation-api/internal/models"
)

const gridSelectColumns = `g.id, g.name, g.region, g.boundary, g.center_lng, g.center_lat,
	g.current_manager_id, g.description, g.active, g.created_at, g.updated_at,
	m.name AS manager_name,
	(SELECT COUNT(*) FROM users u WHERE u.grid_id = g.id AND u.role = 'MEDIATOR' AND u.active = TRUE) AS mediator_count`

const gridJoins = ` FROM grids g LEFT JOIN users m ON m.id = g.current_manager_id`

// GridRepository provides database access for grids and their rosters.
type GridRepository struct {
	db *sqlx.DB
}

// NewGridRepository creates a new instance of GridRepository.
func NewGridRepository(db *sqlx.DB) *GridRepository {
	return &GridRepository{db: db}
}

// Create inserts a new grid.
func (r *GridRepository) Create(ctx context.Context, grid *models.Grid) error {
	if grid.ID == "" {
		grid.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grid.CreatedAt = now
	grid.UpdatedAt = now
	grid.Active = true

	const query = `INSERT INTO grids (id, name, region, boundary, center_lng, center_lat, current_manager_id, description, active, created_at, updated_at)
	VALUES (:id, :name, :region, :boundary, :center_lng, :center_lat, :current_manager_id, :description, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grid); err != nil {
		return fmt.Errorf("create grid: %w", err)
	}
	return nil
}

// GetByID fetches one grid with manager and roster summary joined in.
func (r *GridRepository) GetByID(ctx context.Context, id string) (*models.Grid, error) {
	query := `SELECT ` + gridSelectColumns + gridJoins + ` WHERE g.id = $1 LIMIT 1`
	var grid models.Grid
	if err := r.db.GetContext(ctx, &grid, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find grid: %w", err)
	}
	return &grid, nil
}

// List returns grids based on filters with total count.
func (r *GridRepository) List(ctx context.Context, filter models.GridFilter) ([]models.Grid, int, error) {
	baseQuery := gridJoins + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(g.name) LIKE $%d OR LOWER(g.region) LIKE $%d)", n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("g.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count grids: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY g.name LIMIT %d OFFSET %d",
		gridSelectColumns, baseQuery, pageSize, (page-1)*pageSize)

	var grids []models.Grid
	if err := r.db.SelectContext(ctx, &grids, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list grids: %w", err)
	}
	return grids, total, nil
}

// ListActive returns every active grid, used for map rendering.
func (r *GridRepository) ListActive(ctx context.Context) ([]models.Grid, error) {
	query := `SELECT ` + gridSelectColumns + gridJoins + ` WHERE g.active = TRUE ORDER BY g.name`
	var grids []models.Grid
	if err := r.db.SelectContext(ctx, &grids, query); err != nil {
		return nil, fmt.Errorf("list active grids: %w", err)
	}
	return grids, nil
}

// Update mutates the provided columns for one grid.
func (r *GridRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	setParts := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	args = append(args, id)
	for column, value := range fields {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	args = append(args, time.Now().UTC())
	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", len(args)))

	query := fmt.Sprintf("UPDATE grids SET %s WHERE id = $1", strings.Join(setParts, ", "))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update grid: %w", err)
	}
	return requireRowAffected(result)
}

// SetManager atomically rebinds the grid manager. The previous manager of
// this grid and any other grid currently held by the new manager are
// released first, so one manager never runs two grids.
func (r *GridRepository) SetManager(ctx context.Context, gridID string, managerID *string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set manager: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()

	// Release the outgoing manager's binding on the user side.
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET grid_id = NULL, updated_at = $2
		 WHERE id = (SELECT current_manager_id FROM grids WHERE id = $1)`, gridID, now); err != nil {
		return fmt.Errorf("release outgoing manager: %w", err)
	}

	if managerID != nil {
		// The incoming manager leaves any grid they previously ran.
		if _, err := tx.ExecContext(ctx,
			`UPDATE grids SET current_manager_id = NULL, updated_at = $2 WHERE current_manager_id = $1`,
			*managerID, now); err != nil {
			return fmt.Errorf("release previous grid of manager: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET grid_id = $2, updated_at = $3 WHERE id = $1`,
			*managerID, gridID, now); err != nil {
			return fmt.Errorf("bind incoming manager: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE grids SET current_manager_id = $2, updated_at = $3 WHERE id = $1`,
		gridID, managerID, now)
	if err != nil {
		return fmt.Errorf("set grid manager: %w", err)
	}
	if err := requireRowAffected(result); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set manager: %w", err)
	}
	return nil
}

// ClearManagerFor releases any grid currently run by the given user. Used
// when the account is deactivated or loses the manager role, so no grid
// keeps pointing at an unusable manager.
func (r *GridRepository) ClearManagerFor(ctx context.Context, managerID string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE grids SET current_manager_id = NULL, updated_at = $2 WHERE current_manager_id = $1`,
		managerID, time.Now().UTC()); err != nil {
		return fmt.Errorf("clear managed grid: %w", err)
	}
	return nil
}

// ListMediators returns the mediator roster of a grid with task tallies.
func (r *GridRepository) ListMediators(ctx context.Context, gridID string) ([]models.GridMediator, error) {
	const query = `SELECT u.id, u.name, u.phone, u.active,
		COUNT(t.id) AS task_count,
		COUNT(t.id) FILTER (WHERE t.status IN ('COMPLETED', 'ARCHIVED')) AS completed_count,
		u.updated_at AS joined_at
	FROM users u
	LEFT JOIN tasks t ON t.assigned_mediator_id = u.id
	WHERE u.grid_id = $1 AND u.role = 'MEDIATOR'
	GROUP BY u.id, u.name, u.phone, u.active, u.updated_at
	ORDER BY u.name`

	var mediators []models.GridMediator
	if err := r.db.SelectContext(ctx, &mediators, query, gridID); err != nil {
		return nil, fmt.Errorf("list grid mediators: %w", err)
	}
	return mediators, nil
}

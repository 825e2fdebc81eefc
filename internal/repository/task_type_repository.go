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

// TaskTypeRepository persists dynamic task categories.
type TaskTypeRepository struct {
	db *sqlx.DB
}

// NewTaskTypeRepository constructs the repository.
func NewTaskTypeRepository(db *sqlx.DB) *TaskTypeRepository {
	return &TaskTypeRepository{db: db}
}

// Create inserts a new task type.
func (r *TaskTypeRepository) Create(ctx context.Context, taskType *models.TaskType) error {
	if taskType.ID == "" {
		taskType.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	taskType.CreatedAt = now
	taskType.UpdatedAt = now
	taskType.Active = true

	const query = `INSERT INTO task_types (id, name, sort_order, active, created_at, updated_at)
	VALUES (:id, :name, :sort_order, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, taskType); err != nil {
		return fmt.Errorf("create task type: %w", err)
	}
	return nil
}

// GetByID fetches one task type.
func (r *TaskTypeRepository) GetByID(ctx context.Context, id string) (*models.TaskType, error) {
	const query = `SELECT id, name, sort_order, active, created_at, updated_at FROM task_types WHERE id = $1 LIMIT 1`
	var taskType models.TaskType
	if err := r.db.GetContext(ctx, &taskType, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find task type: %w", err)
	}
	return &taskType, nil
}

// List returns task types, optionally only active ones, in display order.
func (r *TaskTypeRepository) List(ctx context.Context, activeOnly bool) ([]models.TaskType, error) {
	query := `SELECT id, name, sort_order, active, created_at, updated_at FROM task_types`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY sort_order, name`

	var taskTypes []models.TaskType
	if err := r.db.SelectContext(ctx, &taskTypes, query); err != nil {
		return nil, fmt.Errorf("list task types: %w", err)
	}
	return taskTypes, nil
}

// Update mutates the provided columns.
func (r *TaskTypeRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
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

	query := fmt.Sprintf("UPDATE task_types SET %s WHERE id = $1", strings.Join(setParts, ", "))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task type: %w", err)
	}
	return requireRowAffected(result)
}

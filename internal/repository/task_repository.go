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
	"github.com/lib/pq"

	"github.com/noah-isme/grid-mediation-api/internal/models"
)

// ErrDuplicateCode signals that the unique index on tasks.code rejected an
// insert. The code generator treats it as a retryable race.
var ErrDuplicateCode = errors.New("duplicate task code")

const taskSelectColumns = `t.id, t.code, t.task_type_id, t.status, t.description, t.amount, t.grid_id,
       t.party_name, t.party_phone, t.party_address,
       t.reporter_id, t.reported_at, t.report_lng, t.report_lat, t.report_address, t.report_image_ids, t.report_file_ids,
       t.assigner_id, t.assigned_mediator_id, t.assigned_at,
       t.process_submitted_at, t.participants, t.handle_method, t.expected_plan,
       t.result, t.result_detail, t.process_description, t.completed_at,
       t.complete_lng, t.complete_lat, t.complete_address, t.complete_image_ids, t.complete_file_ids,
       t.created_at, t.updated_at,
       tt.name AS type_name, g.name AS grid_name,
       ru.name AS reporter_name, au.name AS assigner_name, mu.name AS assigned_mediator_name`

const taskJoins = ` FROM tasks t
       LEFT JOIN task_types tt ON tt.id = t.task_type_id
       LEFT JOIN grids g ON g.id = t.grid_id
       LEFT JOIN users ru ON ru.id = t.reporter_id
       LEFT JOIN users au ON au.id = t.assigner_id
       LEFT JOIN users mu ON mu.id = t.assigned_mediator_id`

// TaskRepository persists mediation tasks and their lifecycle writes.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs the repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// MaxCodeForPrefix returns the lexicographically greatest code starting
// with the given day prefix, or empty when none exist yet.
func (r *TaskRepository) MaxCodeForPrefix(ctx context.Context, prefix string) (string, error) {
	const query = `SELECT COALESCE(MAX(code), '') FROM tasks WHERE code LIKE $1`
	var max string
	if err := r.db.GetContext(ctx, &max, query, prefix+"%"); err != nil {
		return "", fmt.Errorf("max code for prefix: %w", err)
	}
	return max, nil
}

// Insert writes a new task row inside a transaction. A unique violation on
// the code index is translated to ErrDuplicateCode so the caller can
// regenerate and retry; the constraint itself is the safety net against
// concurrent creators racing on the same prefix+day.
func (r *TaskRepository) Insert(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.ReportedAt.IsZero() {
		task.ReportedAt = now
	}
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = models.TaskStatusReported
	}

	const query = `INSERT INTO tasks
	(id, code, task_type_id, status, description, amount, grid_id,
	 party_name, party_phone, party_address,
	 reporter_id, reported_at, report_lng, report_lat, report_address, report_image_ids, report_file_ids,
	 created_at, updated_at)
	VALUES (:id, :code, :task_type_id, :status, :description, :amount, :grid_id,
	 :party_name, :party_phone, :party_address,
	 :reporter_id, :reported_at, :report_lng, :report_lat, :report_address, :report_image_ids, :report_file_ids,
	 :created_at, :updated_at)`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin task insert: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, query, task); err != nil {
		_ = tx.Rollback()
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCode
		}
		return fmt.Errorf("insert task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit task insert: %w", err)
	}
	return nil
}

// GetByID fetches a task with joined display names.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskSelectColumns + taskJoins + ` WHERE t.id = $1 LIMIT 1`
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find task by id: %w", err)
	}
	return &task, nil
}

// List returns tasks matching the filter with a total count.
func (r *TaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error) {
	conditions, args := buildTaskConditions(filter)

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := `SELECT COUNT(*)` + taskJoins + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"reported_at":  "t.reported_at",
		"assigned_at":  "t.assigned_at",
		"completed_at": "t.completed_at",
		"code":         "t.code",
	}
	orderCol, ok := allowedSorts[sortBy]
	if !ok {
		orderCol = "t.reported_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := fmt.Sprintf(`SELECT %s%s%s ORDER BY %s %s NULLS LAST, t.id DESC LIMIT %d OFFSET %d`,
		taskSelectColumns, taskJoins, where, orderCol, sortOrder, pageSize, (page-1)*pageSize)

	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, total, nil
}

func buildTaskConditions(filter models.TaskFilter) ([]string, []interface{}) {
	conditions := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)

	add := func(cond string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions,
			fmt.Sprintf("(LOWER(t.code) LIKE $%d OR LOWER(t.party_name) LIKE $%d)", n, n))
	}
	if filter.TaskTypeID != "" {
		add("t.task_type_id = $%d", filter.TaskTypeID)
	}
	if filter.Status != nil {
		add("t.status = $%d", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.GridID != "" {
		add("t.grid_id = $%d", filter.GridID)
	}
	if filter.ManagerID != "" {
		add("g.current_manager_id = $%d", filter.ManagerID)
	}
	if filter.ReporterID != "" {
		add("t.reporter_id = $%d", filter.ReporterID)
	}
	if filter.AssignedMediatorID != "" {
		add("t.assigned_mediator_id = $%d", filter.AssignedMediatorID)
	}
	if filter.VisibleToMediator != "" {
		args = append(args, filter.VisibleToMediator)
		n := len(args)
		conditions = append(conditions,
			fmt.Sprintf("(t.reporter_id = $%d OR t.assigned_mediator_id = $%d)", n, n))
	}
	if filter.ExcludeArchived {
		args = append(args, models.TaskStatusArchived)
		conditions = append(conditions, fmt.Sprintf("t.status <> $%d", len(args)))
	}
	if filter.ReportedFrom != nil {
		add("t.reported_at >= $%d", *filter.ReportedFrom)
	}
	if filter.ReportedTo != nil {
		add("t.reported_at < $%d", *filter.ReportedTo)
	}
	if filter.CompletedFrom != nil {
		add("t.completed_at >= $%d", *filter.CompletedFrom)
	}
	if filter.CompletedTo != nil {
		add("t.completed_at < $%d", *filter.CompletedTo)
	}

	return conditions, args
}

// AssignParams carries the fields written together by an assignment.
type AssignParams struct {
	TaskID     string
	MediatorID string
	AssignerID string
	AssignedAt time.Time
}

// Assign flips REPORTED → ASSIGNED and sets all assignment fields in one
// guarded update. The status predicate re-reads current state at write
// time; zero rows affected means the task left REPORTED concurrently.
func (r *TaskRepository) Assign(ctx context.Context, params AssignParams) error {
	const query = `UPDATE tasks
	SET assigned_mediator_id = $2, assigner_id = $3, assigned_at = $4, status = $5, updated_at = $4
	WHERE id = $1 AND status = $6`
	result, err := r.db.ExecContext(ctx, query,
		params.TaskID, params.MediatorID, params.AssignerID, params.AssignedAt,
		models.TaskStatusAssigned, models.TaskStatusReported)
	if err != nil {
		return fmt.Errorf("assign task: %w", err)
	}
	return requireRowAffected(result)
}

// ProcessParams carries the fields written together by a progress submission.
type ProcessParams struct {
	TaskID       string
	MediatorID   string
	HandleMethod models.HandleMethod
	Participants *string
	ExpectedPlan *string
	SubmittedAt  time.Time
}

// Process flips ASSIGNED → PROCESSING for the assigned mediator only.
func (r *TaskRepository) Process(ctx context.Context, params ProcessParams) error {
	const query = `UPDATE tasks
	SET participants = $3, handle_method = $4, expected_plan = $5,
	    process_submitted_at = $6, status = $7, updated_at = $6
	WHERE id = $1 AND assigned_mediator_id = $2 AND status = $8`
	result, err := r.db.ExecContext(ctx, query,
		params.TaskID, params.MediatorID, params.Participants, params.HandleMethod,
		params.ExpectedPlan, params.SubmittedAt,
		models.TaskStatusProcessing, models.TaskStatusAssigned)
	if err != nil {
		return fmt.Errorf("submit task progress: %w", err)
	}
	return requireRowAffected(result)
}

// CompleteParams carries the fields written together by a completion.
type CompleteParams struct {
	TaskID             string
	MediatorID         string
	Result             models.MediationResult
	ResultDetail       *string
	ProcessDescription *string
	CompleteLng        *float64
	CompleteLat        *float64
	CompleteAddress    *string
	CompleteImageIDs   pq.StringArray
	CompleteFileIDs    pq.StringArray
	CompletedAt        time.Time
}

// Complete flips PROCESSING → COMPLETED for the assigned mediator only.
func (r *TaskRepository) Complete(ctx context.Context, params CompleteParams) error {
	const query = `UPDATE tasks
	SET result = $3, result_detail = $4, process_description = $5,
	    complete_lng = $6, complete_lat = $7, complete_address = $8,
	    complete_image_ids = $9, complete_file_ids = $10,
	    completed_at = $11, status = $12, updated_at = $11
	WHERE id = $1 AND assigned_mediator_id = $2 AND status = $13`
	result, err := r.db.ExecContext(ctx, query,
		params.TaskID, params.MediatorID, params.Result, params.ResultDetail,
		params.ProcessDescription, params.CompleteLng, params.CompleteLat,
		params.CompleteAddress, params.CompleteImageIDs, params.CompleteFileIDs,
		params.CompletedAt,
		models.TaskStatusCompleted, models.TaskStatusProcessing)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return requireRowAffected(result)
}

// UpdateDetails lets managers correct party/report information without
// touching lifecycle fields.
func (r *TaskRepository) UpdateDetails(ctx context.Context, id string, fields map[string]interface{}) error {
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

	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $1", strings.Join(setParts, ", "))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task details: %w", err)
	}
	return requireRowAffected(result)
}

// ArchiveCompleted archives every COMPLETED task in the id set and returns
// the number of newly archived rows. Already-archived or unfinished tasks
// are skipped, which makes repeated calls idempotent.
func (r *TaskRepository) ArchiveCompleted(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE tasks SET status = $1, updated_at = $2
	WHERE id = ANY($3) AND status = $4`
	result, err := r.db.ExecContext(ctx, query,
		models.TaskStatusArchived, time.Now().UTC(), pq.Array(ids), models.TaskStatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("archive tasks: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check archived rows: %w", err)
	}
	return int(rows), nil
}

// HasUnfinishedInGrid reports whether a grid holds tasks that are neither
// completed nor archived.
func (r *TaskRepository) HasUnfinishedInGrid(ctx context.Context, gridID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM tasks WHERE grid_id = $1 AND status NOT IN ($2, $3))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, gridID, models.TaskStatusCompleted, models.TaskStatusArchived); err != nil {
		return false, fmt.Errorf("check unfinished grid tasks: %w", err)
	}
	return exists, nil
}

// HasUnfinishedForMediator reports whether a mediator holds unfinished
// assignments inside one grid.
func (r *TaskRepository) HasUnfinishedForMediator(ctx context.Context, gridID, mediatorID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM tasks
	WHERE grid_id = $1 AND assigned_mediator_id = $2 AND status NOT IN ($3, $4))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, gridID, mediatorID, models.TaskStatusCompleted, models.TaskStatusArchived); err != nil {
		return false, fmt.Errorf("check unfinished mediator tasks: %w", err)
	}
	return exists, nil
}

func requireRowAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grid-mediation-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestMaxCodeForPrefix(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	rows := sqlmock.NewRows([]string{"coalesce"}).AddRow("DP202601150007")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(code), '') FROM tasks WHERE code LIKE $1")).
		WithArgs("DP20260115%").
		WillReturnRows(rows)

	max, err := repo.MaxCodeForPrefix(context.Background(), "DP20260115")
	require.NoError(t, err)
	assert.Equal(t, "DP202601150007", max)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaxCodeForPrefixEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	rows := sqlmock.NewRows([]string{"coalesce"}).AddRow("")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(code), '') FROM tasks WHERE code LIKE $1")).
		WillReturnRows(rows)

	max, err := repo.MaxCodeForPrefix(context.Background(), "TK20260115")
	require.NoError(t, err)
	assert.Empty(t, max)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTask(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tasks").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	task := &models.Task{
		Code:       "DP202601150008",
		TaskTypeID: "type-1",
		PartyName:  "Zhang",
		ReporterID: "user-1",
	}
	err := repo.Insert(context.Background(), task)
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, models.TaskStatusReported, task.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTaskDuplicateCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tasks").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Insert(context.Background(), &models.Task{Code: "DP202601150008"})
	assert.ErrorIs(t, err, ErrDuplicateCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignStateGuard(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	// Zero affected rows: the task left REPORTED between read and write.
	mock.ExpectExec("UPDATE tasks").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Assign(context.Background(), AssignParams{
		TaskID:     "task-1",
		MediatorID: "mediator-1",
		AssignerID: "manager-1",
		AssignedAt: time.Now(),
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteWritesGuardedUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec("UPDATE tasks").WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Complete(context.Background(), CompleteParams{
		TaskID:      "task-1",
		MediatorID:  "mediator-1",
		Result:      models.ResultSuccess,
		CompletedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveCompleted(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	// Three requested, one already archived: only two rows flip.
	mock.ExpectExec("UPDATE tasks SET status").WillReturnResult(sqlmock.NewResult(0, 2))

	archived, err := repo.ArchiveCompleted(context.Background(), []string{"t1", "t2", "t3"})
	require.NoError(t, err)
	assert.Equal(t, 2, archived)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTasksWithScopeFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tasks t`).WillReturnRows(countRows)

	now := time.Now()
	listRows := sqlmock.NewRows([]string{"id", "code", "task_type_id", "status", "party_name", "reporter_id", "reported_at", "created_at", "updated_at"}).
		AddRow("task-1", "DP202601150001", "type-1", string(models.TaskStatusAssigned), "Zhang", "user-1", now, now, now)
	mock.ExpectQuery(`SELECT t\.id, t\.code`).WillReturnRows(listRows)

	status := models.TaskStatusAssigned
	tasks, total, err := repo.List(context.Background(), models.TaskFilter{
		Status: &status,
		GridID: "grid-1",
	})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "DP202601150001", tasks[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasUnfinishedInGrid(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(rows)

	exists, err := repo.HasUnfinishedInGrid(context.Background(), "grid-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

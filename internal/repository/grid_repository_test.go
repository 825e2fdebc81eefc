package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grid-mediation-api/internal/models"
)

func TestGetGridByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGridRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "region", "boundary", "center_lng", "center_lat", "current_manager_id", "description", "active", "created_at", "updated_at", "manager_name", "mediator_count"}).
		AddRow("grid-1", "East District", "East", []byte(`[[120.1,30.2],[120.2,30.2],[120.2,30.3]]`), 120.15, 30.25, "manager-1", nil, true, now, now, "Wang", 4)
	mock.ExpectQuery(`SELECT g\.id, g\.name`).WithArgs("grid-1").WillReturnRows(rows)

	grid, err := repo.GetByID(context.Background(), "grid-1")
	require.NoError(t, err)
	assert.Equal(t, "East District", grid.Name)
	assert.Len(t, grid.Boundary, 3)
	assert.Equal(t, 4, grid.MediatorCount)
	require.NotNil(t, grid.ManagerName)
	assert.Equal(t, "Wang", *grid.ManagerName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetManager(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGridRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET grid_id = NULL").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE grids SET current_manager_id = NULL").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE users SET grid_id =").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE grids SET current_manager_id =").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	managerID := "manager-2"
	err := repo.SetManager(context.Background(), "grid-1", &managerID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetManagerClears(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGridRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET grid_id = NULL").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE grids SET current_manager_id =").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SetManager(context.Background(), "grid-1", nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMediators(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGridRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "phone", "active", "task_count", "completed_count", "joined_at"}).
		AddRow("m1", "Li", nil, true, 5, 3, now).
		AddRow("m2", "Zhao", "13800000000", true, 0, 0, now)
	mock.ExpectQuery(`SELECT u\.id, u\.name`).WithArgs("grid-1").WillReturnRows(rows)

	mediators, err := repo.ListMediators(context.Background(), "grid-1")
	require.NoError(t, err)
	require.Len(t, mediators, 2)
	assert.Equal(t, 5, mediators[0].TaskCount)
	assert.Equal(t, 3, mediators[0].CompletedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGridBoundaryValidate(t *testing.T) {
	assert.NoError(t, models.GridBoundary(nil).Validate())
	assert.Error(t, models.GridBoundary{{120.1, 30.2}, {120.2, 30.2}}.Validate())
	assert.NoError(t, models.GridBoundary{{120.1, 30.2}, {120.2, 30.2}, {120.2, 30.3}}.Validate())
}

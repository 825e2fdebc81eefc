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

func TestCountByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStatisticsRepository(db)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow(string(models.TaskStatusReported), 7).
		AddRow(string(models.TaskStatusCompleted), 3)
	mock.ExpectQuery(`SELECT t\.status, COUNT\(\*\)`).WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background(), StatisticsScope{})
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, models.TaskStatusReported, counts[0].Status)
	assert.Equal(t, 7, counts[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByGridScoped(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStatisticsRepository(db)

	rows := sqlmock.NewRows([]string{"grid_id", "grid_name", "total", "completed"}).
		AddRow("grid-1", "East District", 10, 6)
	mock.ExpectQuery(`SELECT t\.grid_id`).WithArgs("grid-1").WillReturnRows(rows)

	counts, err := repo.CountByGrid(context.Background(), StatisticsScope{GridID: "grid-1"})
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 6, counts[0].Completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMonthlyByType(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStatisticsRepository(db)

	rows := sqlmock.NewRows([]string{"task_type_id", "type_name", "total", "resolved", "unresolved"}).
		AddRow("type-1", "Neighbor dispute", 9, 5, 4)
	mock.ExpectQuery(`SELECT t\.task_type_id`).WillReturnRows(rows)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	report, err := repo.MonthlyByType(context.Background(), start, end, "")
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, 5, report[0].Resolved)
	assert.Equal(t, 4, report[0].Unresolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

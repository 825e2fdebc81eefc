package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grid-mediation-api/internal/models"
)

func TestFindByUsername(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "name", "phone", "role", "grid_id", "active", "last_login", "created_at", "updated_at"}).
		AddRow("1", "mediator01", "hash", "Li", nil, string(models.RoleMediator), "grid-1", true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, password_hash, name, phone, role, grid_id, active, last_login, created_at, updated_at FROM users WHERE username = $1 LIMIT 1")).
		WithArgs("mediator01").
		WillReturnRows(rows)

	user, err := repo.FindByUsername(context.Background(), "mediator01")
	require.NoError(t, err)
	assert.Equal(t, "mediator01", user.Username)
	assert.Equal(t, models.RoleMediator, user.Role)
	require.NotNil(t, user.GridID)
	assert.Equal(t, "grid-1", *user.GridID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{
		ID: "1", UserID: "u1", Token: "token", ExpiresAt: time.Now(), CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersByGrid(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1")).WillReturnRows(countRows)

	now := time.Now()
	listRows := sqlmock.NewRows([]string{"id", "username", "password_hash", "name", "phone", "role", "grid_id", "active", "last_login", "created_at", "updated_at"}).
		AddRow("1", "mediator01", "hash", "Li", nil, string(models.RoleMediator), "grid-1", true, now, now, now)
	mock.ExpectQuery("SELECT id, username").WillReturnRows(listRows)

	role := models.RoleMediator
	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role, GridID: "grid-1"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearGridMembers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("UPDATE users SET grid_id = NULL").WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.ClearGridMembers(context.Background(), "grid-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

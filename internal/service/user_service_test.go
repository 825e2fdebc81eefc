package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grid-mediation-api/internal/dto"
	"github.com/noah-isme/grid-mediation-api/internal/models"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
)

type mockUserRepo struct {
	users   map[string]*models.User
	revoked []string
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	if user.ID == "" {
		user.ID = user.Username
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	user, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	for column, value := range fields {
		switch column {
		case "name":
			user.Name = value.(string)
		case "phone":
			phone := value.(string)
			user.Phone = &phone
		case "role":
			user.Role = value.(models.UserRole)
		case "grid_id":
			gridID := value.(string)
			user.GridID = &gridID
		case "active":
			user.Active = value.(bool)
		}
	}
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		out = append(out, *user)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	user, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.PasswordHash = passwordHash
	return nil
}

type mockManagedGrids struct {
	cleared []string
}

func (m *mockManagedGrids) ClearManagerFor(ctx context.Context, managerID string) error {
	m.cleared = append(m.cleared, managerID)
	return nil
}

func newUserFixture() (*UserService, *mockUserRepo, *mockManagedGrids) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"mgr": {ID: "mgr", Username: "manager01", Name: "Wang", Role: models.RoleGridManager, GridID: strPtr("grid-a"), Active: true},
		"med": {ID: "med", Username: "mediator01", Name: "Li", Role: models.RoleMediator, GridID: strPtr("grid-a"), Active: true},
	}}
	grids := &mockManagedGrids{}
	return NewUserService(repo, grids, nil, nil), repo, grids
}

func TestDeactivateManagerReleasesGrid(t *testing.T) {
	svc, repo, grids := newUserFixture()

	err := svc.Deactivate(context.Background(), "mgr")
	require.NoError(t, err)
	assert.False(t, repo.users["mgr"].Active)
	assert.Equal(t, []string{"mgr"}, grids.cleared)
	assert.Contains(t, repo.revoked, "mgr")
}

func TestDemoteManagerReleasesGrid(t *testing.T) {
	svc, _, grids := newUserFixture()

	role := models.RoleMediator
	user, err := svc.Update(context.Background(), "mgr", dto.UpdateUserRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.RoleMediator, user.Role)
	assert.Equal(t, []string{"mgr"}, grids.cleared)
}

func TestDeactivateMediatorKeepsGrids(t *testing.T) {
	svc, repo, grids := newUserFixture()

	err := svc.Deactivate(context.Background(), "med")
	require.NoError(t, err)
	assert.False(t, repo.users["med"].Active)
	assert.Empty(t, grids.cleared)
}

func TestUpdateUnknownUser(t *testing.T) {
	svc, _, _ := newUserFixture()

	name := "Nobody"
	_, err := svc.Update(context.Background(), "ghost", dto.UpdateUserRequest{Name: &name})
	assertCode(t, err, appErrors.ErrNotFound)
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	svc, _, _ := newUserFixture()

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Username: "mediator01",
		Password: "secret123",
		Name:     "Li Again",
		Role:     models.RoleMediator,
	})
	assertCode(t, err, appErrors.ErrConflict)
}

func TestCreateAdminWithGridRejected(t *testing.T) {
	svc, _, _ := newUserFixture()

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Username: "admin02",
		Password: "secret123",
		Name:     "Zhao",
		Role:     models.RoleAdmin,
		GridID:   strPtr("grid-a"),
	})
	assertCode(t, err, appErrors.ErrValidation)
}

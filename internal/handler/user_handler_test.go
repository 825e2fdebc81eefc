package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/grid-mediation-api/internal/middleware"
	"github.com/noah-isme/grid-mediation-api/internal/models"
	"github.com/noah-isme/grid-mediation-api/internal/service"
)

type fakeUserAdminRepo struct {
	users map[string]*models.User
}

func (f *fakeUserAdminRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserAdminRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserAdminRepo) Create(ctx context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserAdminRepo) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	user, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	if active, ok := fields["active"].(bool); ok {
		user.Active = active
	}
	return nil
}

func (f *fakeUserAdminRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return nil, 0, nil
}

func (f *fakeUserAdminRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (f *fakeUserAdminRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return nil
}

func newUserHandlerFixture() (*UserHandler, *fakeUserAdminRepo) {
	repo := &fakeUserAdminRepo{users: map[string]*models.User{
		"admin-1": {ID: "admin-1", Username: "admin01", Role: models.RoleAdmin, Active: true},
		"med-1":   {ID: "med-1", Username: "mediator01", Role: models.RoleMediator, Active: true},
	}}
	return NewUserHandler(service.NewUserService(repo, nil, nil, nil)), repo
}

func deleteUserRequest(t *testing.T, actorID, targetID string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+targetID, nil)
	c.Params = gin.Params{{Key: "id", Value: targetID}}
	if actorID != "" {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: actorID, Role: models.RoleAdmin})
	}

	handler, _ := newUserHandlerFixture()
	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	return rec
}

func TestUserHandlerDeleteSelfRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/api/v1/users/admin-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "admin-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler, repo := newUserHandlerFixture()
	handler.Delete(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec.Body.Bytes()))
	assert.True(t, repo.users["admin-1"].Active)
}

func TestUserHandlerDeleteOtherUser(t *testing.T) {
	rec := deleteUserRequest(t, "admin-1", "med-1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUserHandlerDeleteWithoutClaims(t *testing.T) {
	rec := deleteUserRequest(t, "", "med-1")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

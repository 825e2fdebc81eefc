package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/grid-mediation-api/internal/models"
)

func strPtr(s string) *string { return &s }

func TestCanViewTask(t *testing.T) {
	gridA := strPtr("grid-a")
	gridB := strPtr("grid-b")
	task := &models.Task{ID: "t1", GridID: gridA, ReporterID: "reporter", AssignedMediatorID: strPtr("assignee")}

	tests := []struct {
		name string
		user *models.User
		want bool
	}{
		{"admin sees everything", &models.User{ID: "x", Role: models.RoleAdmin}, true},
		{"manager of the grid", &models.User{ID: "m", Role: models.RoleGridManager, GridID: gridA}, true},
		{"manager of another grid", &models.User{ID: "m", Role: models.RoleGridManager, GridID: gridB}, false},
		{"manager without grid", &models.User{ID: "m", Role: models.RoleGridManager}, false},
		{"reporter mediator", &models.User{ID: "reporter", Role: models.RoleMediator, GridID: gridA}, true},
		{"assigned mediator", &models.User{ID: "assignee", Role: models.RoleMediator, GridID: gridA}, true},
		{"unrelated mediator in same grid", &models.User{ID: "other", Role: models.RoleMediator, GridID: gridA}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canViewTask(tt.user, task))
		})
	}
}

func TestCanManageTask(t *testing.T) {
	gridA := strPtr("grid-a")
	task := &models.Task{ID: "t1", GridID: gridA, AssignedMediatorID: strPtr("assignee")}

	assert.True(t, canManageTask(&models.User{Role: models.RoleAdmin}, task))
	assert.True(t, canManageTask(&models.User{Role: models.RoleGridManager, GridID: gridA}, task))
	assert.False(t, canManageTask(&models.User{Role: models.RoleGridManager, GridID: strPtr("grid-b")}, task))
	// The assigned mediator acts through lifecycle endpoints, never manage.
	assert.False(t, canManageTask(&models.User{ID: "assignee", Role: models.RoleMediator, GridID: gridA}, task))
}

func TestCanProcessTask(t *testing.T) {
	task := &models.Task{ID: "t1", AssignedMediatorID: strPtr("assignee")}

	assert.True(t, canProcessTask(&models.User{ID: "assignee", Role: models.RoleMediator}, task))
	assert.False(t, canProcessTask(&models.User{ID: "other", Role: models.RoleMediator}, task))
	assert.False(t, canProcessTask(&models.User{ID: "assignee", Role: models.RoleAdmin}, task))
	assert.False(t, canProcessTask(&models.User{ID: "x", Role: models.RoleMediator}, &models.Task{ID: "t2"}))
}

func TestScopeTaskFilter(t *testing.T) {
	t.Run("admin unrestricted", func(t *testing.T) {
		var filter models.TaskFilter
		scopeTaskFilter(&models.User{ID: "a", Role: models.RoleAdmin}, &filter)
		assert.Empty(t, filter.ManagerID)
		assert.Empty(t, filter.VisibleToMediator)
	})

	t.Run("manager narrowed to own grid", func(t *testing.T) {
		var filter models.TaskFilter
		scopeTaskFilter(&models.User{ID: "m", Role: models.RoleGridManager, GridID: strPtr("grid-a")}, &filter)
		assert.Equal(t, "m", filter.ManagerID)
	})

	t.Run("mediator sees own items without archive", func(t *testing.T) {
		var filter models.TaskFilter
		scopeTaskFilter(&models.User{ID: "med", Role: models.RoleMediator}, &filter)
		assert.Equal(t, "med", filter.VisibleToMediator)
		assert.True(t, filter.ExcludeArchived)
	})
}

package service

import (
	"github.com/noah-isme/grid-mediation-api/internal/models"
)

// Task visibility and mutation rules. Single-object access outside a
// caller's scope is answered with forbidden even when the row exists, so
// probing ids reveals nothing; list queries narrow silently instead.

// canViewTask reports whether a user may read a single task.
func canViewTask(user *models.User, task *models.Task) bool {
	switch user.Role {
	case models.RoleAdmin:
		return true
	case models.RoleGridManager:
		return user.GridID != nil && task.GridID != nil && *user.GridID == *task.GridID
	case models.RoleMediator:
		if task.ReporterID == user.ID {
			return true
		}
		return task.AssignedMediatorID != nil && *task.AssignedMediatorID == user.ID
	default:
		return false
	}
}

// canManageTask reports whether a user may assign or correct a task.
// Mediators never manage; they act through the lifecycle endpoints.
func canManageTask(user *models.User, task *models.Task) bool {
	switch user.Role {
	case models.RoleAdmin:
		return true
	case models.RoleGridManager:
		return user.GridID != nil && task.GridID != nil && *user.GridID == *task.GridID
	default:
		return false
	}
}

// canProcessTask reports whether a user may submit progress or completion.
// Only the assigned mediator acts on a task's processing stages.
func canProcessTask(user *models.User, task *models.Task) bool {
	return user.Role == models.RoleMediator &&
		task.AssignedMediatorID != nil && *task.AssignedMediatorID == user.ID
}

// scopeTaskFilter narrows a list query to what the caller may see. Scope
// fields on the filter are owned by this function; handler input never
// reaches them.
func scopeTaskFilter(user *models.User, filter *models.TaskFilter) {
	switch user.Role {
	case models.RoleAdmin:
		// Full visibility.
	case models.RoleGridManager:
		filter.ManagerID = user.ID
	case models.RoleMediator:
		filter.VisibleToMediator = user.ID
		filter.ExcludeArchived = true
	default:
		// Unknown roles fall back to self-reported items only.
		filter.ReporterID = user.ID
	}
}

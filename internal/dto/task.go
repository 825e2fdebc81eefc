package dto

import (
	"time"

	"github.com/noah-isme/grid-mediation-api/internal/models"
)

// CreateTaskRequest is the mediator-facing report payload.
type CreateTaskRequest struct {
	TaskTypeID     string   `json:"task_type_id" validate:"required"`
	PartyName      string   `json:"party_name" validate:"required"`
	PartyPhone     string   `json:"party_phone"`
	PartyAddress   string   `json:"party_address"`
	Description    string   `json:"description" validate:"required"`
	Amount         *float64 `json:"amount"`
	ReportLng      *float64 `json:"report_lng"`
	ReportLat      *float64 `json:"report_lat"`
	ReportAddress  string   `json:"report_address"`
	ReportImageIDs []string `json:"report_image_ids"`
	ReportFileIDs  []string `json:"report_file_ids"`
}

// CreateTaskResponse echoes the generated identity back to the reporter.
type CreateTaskResponse struct {
	ID         string            `json:"id"`
	Code       string            `json:"code"`
	Status     models.TaskStatus `json:"status"`
	PartyName  string            `json:"party_name"`
	ReportedAt time.Time         `json:"reported_at"`
}

// AssignTaskRequest selects the mediator to hand the task to.
type AssignTaskRequest struct {
	MediatorID string `json:"mediator_id" validate:"required"`
}

// ProcessTaskRequest is the assigned mediator's progress submission.
type ProcessTaskRequest struct {
	HandleMethod models.HandleMethod `json:"handle_method" validate:"required,oneof=ONSITE ONLINE"`
	Participants string              `json:"participants"`
	ExpectedPlan string              `json:"expected_plan"`
}

// CompleteTaskRequest is the assigned mediator's completion submission.
type CompleteTaskRequest struct {
	Result             models.MediationResult `json:"result" validate:"required,oneof=SUCCESS FAILURE PARTIAL"`
	ResultDetail       string                 `json:"result_detail"`
	ProcessDescription string                 `json:"process_description"`
	CompleteLng        *float64               `json:"complete_lng"`
	CompleteLat        *float64               `json:"complete_lat"`
	CompleteAddress    string                 `json:"complete_address"`
	CompleteImageIDs   []string               `json:"complete_image_ids"`
	CompleteFileIDs    []string               `json:"complete_file_ids"`
}

// UpdateTaskRequest allows managers to correct party/report details.
type UpdateTaskRequest struct {
	PartyName    *string  `json:"party_name"`
	PartyPhone   *string  `json:"party_phone"`
	PartyAddress *string  `json:"party_address"`
	Description  *string  `json:"description"`
	Amount       *float64 `json:"amount"`
}

// ArchiveTasksRequest selects completed tasks for bulk archiving.
type ArchiveTasksRequest struct {
	TaskIDs []string `json:"task_ids" validate:"required,min=1"`
}

// ArchiveTasksResponse reports how many tasks were newly archived.
type ArchiveTasksResponse struct {
	Archived int `json:"archived"`
}

// TaskDetail decorates a task with its resolved attachments.
type TaskDetail struct {
	models.Task
	ReportImages   []AttachmentInfo `json:"report_images"`
	ReportFiles    []AttachmentInfo `json:"report_files"`
	CompleteImages []AttachmentInfo `json:"complete_images"`
	CompleteFiles  []AttachmentInfo `json:"complete_files"`
}

// CreateTaskTypeRequest adds a new task category.
type CreateTaskTypeRequest struct {
	Name      string `json:"name" validate:"required"`
	SortOrder int    `json:"sort_order"`
}

// UpdateTaskTypeRequest mutates a task category.
type UpdateTaskTypeRequest struct {
	Name      *string `json:"name"`
	SortOrder *int    `json:"sort_order"`
	Active    *bool   `json:"active"`
}

package models

import (
	"time"

	"github.com/lib/pq"
)

// TaskStatus captures lifecycle states for mediation tasks. The canonical
// flow is REPORTED → ASSIGNED → PROCESSING → COMPLETED → ARCHIVED with no
// skips and no backward transitions.
type TaskStatus string

const (
	TaskStatusReported   TaskStatus = "REPORTED"
	TaskStatusAssigned   TaskStatus = "ASSIGNED"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusArchived   TaskStatus = "ARCHIVED"
)

// HandleMethod enumerates how a mediation session is conducted.
type HandleMethod string

const (
	HandleMethodOnsite HandleMethod = "ONSITE"
	HandleMethodOnline HandleMethod = "ONLINE"
)

// MediationResult enumerates completion outcomes.
type MediationResult string

const (
	ResultSuccess MediationResult = "SUCCESS"
	ResultFailure MediationResult = "FAILURE"
	ResultPartial MediationResult = "PARTIAL"
)

// TaskType is a dynamic task category. The code generator derives the code
// prefix from the type name.
type TaskType struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Task is the central mediation work unit. Attachment references are weak:
// id arrays pointing at the attachments table, resolved on read with
// dangling ids dropped, never cascaded.
type Task struct {
	ID          string     `db:"id" json:"id"`
	Code        string     `db:"code" json:"code"`
	TaskTypeID  string     `db:"task_type_id" json:"task_type_id"`
	Status      TaskStatus `db:"status" json:"status"`
	Description string     `db:"description" json:"description"`
	Amount      *float64   `db:"amount" json:"amount,omitempty"`
	GridID      *string    `db:"grid_id" json:"grid_id,omitempty"`

	PartyName    string  `db:"party_name" json:"party_name"`
	PartyPhone   *string `db:"party_phone" json:"party_phone,omitempty"`
	PartyAddress *string `db:"party_address" json:"party_address,omitempty"`

	ReporterID     string         `db:"reporter_id" json:"reporter_id"`
	ReportedAt     time.Time      `db:"reported_at" json:"reported_at"`
	ReportLng      *float64       `db:"report_lng" json:"report_lng,omitempty"`
	ReportLat      *float64       `db:"report_lat" json:"report_lat,omitempty"`
	ReportAddress  *string        `db:"report_address" json:"report_address,omitempty"`
	ReportImageIDs pq.StringArray `db:"report_image_ids" json:"report_image_ids,omitempty"`
	ReportFileIDs  pq.StringArray `db:"report_file_ids" json:"report_file_ids,omitempty"`

	AssignerID         *string    `db:"assigner_id" json:"assigner_id,omitempty"`
	AssignedMediatorID *string    `db:"assigned_mediator_id" json:"assigned_mediator_id,omitempty"`
	AssignedAt         *time.Time `db:"assigned_at" json:"assigned_at,omitempty"`

	ProcessSubmittedAt *time.Time    `db:"process_submitted_at" json:"process_submitted_at,omitempty"`
	Participants       *string       `db:"participants" json:"participants,omitempty"`
	HandleMethod       *HandleMethod `db:"handle_method" json:"handle_method,omitempty"`
	ExpectedPlan       *string       `db:"expected_plan" json:"expected_plan,omitempty"`

	Result             *MediationResult `db:"result" json:"result,omitempty"`
	ResultDetail       *string          `db:"result_detail" json:"result_detail,omitempty"`
	ProcessDescription *string          `db:"process_description" json:"process_description,omitempty"`
	CompletedAt        *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	CompleteLng        *float64         `db:"complete_lng" json:"complete_lng,omitempty"`
	CompleteLat        *float64         `db:"complete_lat" json:"complete_lat,omitempty"`
	CompleteAddress    *string          `db:"complete_address" json:"complete_address,omitempty"`
	CompleteImageIDs   pq.StringArray   `db:"complete_image_ids" json:"complete_image_ids,omitempty"`
	CompleteFileIDs    pq.StringArray   `db:"complete_file_ids" json:"complete_file_ids,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Joined display fields.
	TypeName             *string `db:"type_name" json:"type_name,omitempty"`
	GridName             *string `db:"grid_name" json:"grid_name,omitempty"`
	ReporterName         *string `db:"reporter_name" json:"reporter_name,omitempty"`
	AssignerName         *string `db:"assigner_name" json:"assigner_name,omitempty"`
	AssignedMediatorName *string `db:"assigned_mediator_name" json:"assigned_mediator_name,omitempty"`
}

// IsUnfinished reports whether a task still blocks grid/mediator removal.
func (t *Task) IsUnfinished() bool {
	return t.Status != TaskStatusCompleted && t.Status != TaskStatusArchived
}

// TaskFilter constrains task listing queries. Scope fields are set by the
// authorization gate, never directly from client input.
type TaskFilter struct {
	Search     string
	TaskTypeID string
	Status     *TaskStatus
	Statuses   []TaskStatus
	GridID     string

	// Scoping (authorization gate).
	ManagerID          string
	ReporterID         string
	AssignedMediatorID string
	VisibleToMediator  string
	ExcludeArchived    bool

	CompletedFrom *time.Time
	CompletedTo   *time.Time
	ReportedFrom  *time.Time
	ReportedTo    *time.Time

	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

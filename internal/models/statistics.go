package models

// TaskTypeCount is one row of a by-type aggregate.
type TaskTypeCount struct {
	TaskTypeID string `db:"task_type_id" json:"task_type_id"`
	TypeName   string `db:"type_name" json:"type_name"`
	Count      int    `db:"count" json:"count"`
}

// TaskStatusCount is one row of a by-status aggregate.
type TaskStatusCount struct {
	Status TaskStatus `db:"status" json:"status"`
	Count  int        `db:"count" json:"count"`
}

// GridTaskCount is one row of a by-grid aggregate.
type GridTaskCount struct {
	GridID    string `db:"grid_id" json:"grid_id"`
	GridName  string `db:"grid_name" json:"grid_name"`
	Total     int    `db:"total" json:"total"`
	Completed int    `db:"completed" json:"completed"`
}

// MonthlyTypeRow is one row of the monthly cross-tab: per task type,
// resolved means result in (SUCCESS, PARTIAL); everything else — including
// tasks not yet completed — counts as unresolved.
type MonthlyTypeRow struct {
	TaskTypeID string `db:"task_type_id" json:"task_type_id"`
	TypeName   string `db:"type_name" json:"type_name"`
	Total      int    `db:"total" json:"total"`
	Resolved   int    `db:"resolved" json:"resolved"`
	Unresolved int    `db:"unresolved" json:"unresolved"`
}

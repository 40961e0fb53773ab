package models

// Procurement workflow kinds and statuses.
const (
	TaskKindChecklist = "cl"
	TaskKindImport    = "imp"

	TaskStatusOpen       = "open"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
	TaskStatusCancelled  = "cancelled"
)

// ProcurementTask tracks a multi-step procurement workflow (checklist or
// import) with a current step counter advanced by the service layer.
type ProcurementTask struct {
	BaseModel

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Kind        string `gorm:"not null;index" json:"kind"`
	Status      string `gorm:"not null;index;default:open" json:"status"`
	Step        int    `gorm:"default:0" json:"step"`
	TotalSteps  int    `gorm:"default:0" json:"total_steps"`

	AssigneeID *string `gorm:"type:uuid;index" json:"assignee_id"`
	Assignee   *User   `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`

	Notes []TaskNote `gorm:"foreignKey:TaskID" json:"notes,omitempty"`
}

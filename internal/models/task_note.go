package models

// TaskNote is a free-form comment attached to a procurement task.
type TaskNote struct {
	BaseModel

	TaskID string           `gorm:"type:uuid;not null;index" json:"task_id"`
	Task   *ProcurementTask `gorm:"foreignKey:TaskID" json:"-"`

	Body string `gorm:"not null" json:"body"`

	AuthorID *string `gorm:"type:uuid;index" json:"author_id"`
	Author   *User   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

package models

// Category groups inventory items for navigation and reporting.
type Category struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`

	Items []Item `gorm:"foreignKey:CategoryID" json:"items,omitempty"`
}

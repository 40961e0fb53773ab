package models

// Location is a physical place stock is held (warehouse, shelf, site).
type Location struct {
	BaseModel

	Name    string `gorm:"uniqueIndex;not null" json:"name"`
	Address string `json:"address"`

	Items []Item `gorm:"foreignKey:LocationID" json:"items,omitempty"`
}

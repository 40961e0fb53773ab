package models

// Item is a stocked inventory article. Quantity is only mutated through
// stock transactions so every movement leaves a trail.
type Item struct {
	BaseModel

	SKU         string `gorm:"uniqueIndex;not null" json:"sku"`
	Name        string `gorm:"not null;index" json:"name"`
	Description string `json:"description"`

	Quantity     int     `gorm:"default:0" json:"quantity"`
	UnitCost     float64 `gorm:"default:0" json:"unit_cost"`
	ReorderLevel int     `gorm:"default:0" json:"reorder_level"`

	CategoryID *string   `gorm:"type:uuid;index" json:"category_id"`
	Category   *Category `json:"category,omitempty"`
	LocationID *string   `gorm:"type:uuid;index" json:"location_id"`
	Location   *Location `json:"location,omitempty"`

	IsActive bool `gorm:"default:true" json:"is_active"`
}

// LowStock reports whether the item has fallen to or below its reorder level.
func (i *Item) LowStock() bool {
	return i.ReorderLevel > 0 && i.Quantity <= i.ReorderLevel
}

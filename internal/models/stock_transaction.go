package models

// Stock transaction types.
const (
	TransactionIn         = "in"
	TransactionOut        = "out"
	TransactionAdjustment = "adjustment"
)

// StockTransaction records one stock movement against an item, including the
// quantity before and after so the ledger is auditable on its own.
type StockTransaction struct {
	BaseModel

	ItemID string `gorm:"type:uuid;not null;index" json:"item_id"`
	Item   *Item  `json:"item,omitempty"`

	Type             string `gorm:"not null;index" json:"type"`
	Quantity         int    `gorm:"not null" json:"quantity"`
	PreviousQuantity int    `json:"previous_quantity"`
	NewQuantity      int    `json:"new_quantity"`

	Reference string `json:"reference"`
	Notes     string `json:"notes"`

	UserID *string `gorm:"type:uuid;index" json:"user_id"`
	User   *User   `json:"user,omitempty"`
}

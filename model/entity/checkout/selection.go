package checkout

import (
	"time"
)

// Selection statuses
const (
	SelectionOpen      = "OPEN"
	SelectionConverted = "CONVERTED"
)

// Purchase statuses
const (
	PurchaseCompleted = "COMPLETED"
)

// Selection represents a pending cart handed to the checkout orchestrator.
type Selection struct {
	SelectionID uint            `gorm:"column:selection_id;primaryKey;autoIncrement" json:"selection_id,omitempty"`
	Status      string          `gorm:"column:status;type:varchar(16);not null;default:OPEN" json:"status"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	Lines       []SelectionLine `gorm:"foreignKey:SelectionID" json:"lines,omitempty"`
}

func (Selection) TableName() string {
	return "checkout_selection"
}

// SelectionLine is one item/quantity in a selection, optionally date-ranged.
type SelectionLine struct {
	LineID      uint       `gorm:"column:line_id;primaryKey;autoIncrement" json:"line_id,omitempty"`
	SelectionID uint       `gorm:"column:selection_id;index;not null" json:"selection_id"`
	ItemID      uint       `gorm:"column:item_id;not null" json:"item_id"`
	Quantity    int64      `gorm:"column:quantity;not null" json:"quantity"`
	From        *time.Time `gorm:"column:from_date" json:"from,omitempty"`
	Until       *time.Time `gorm:"column:until_date" json:"until,omitempty"`
}

func (SelectionLine) TableName() string {
	return "checkout_selection_line"
}

// Purchase records a fully committed selection together with the claim
// handles it produced.
type Purchase struct {
	PurchaseID  uint      `gorm:"column:purchase_id;primaryKey;autoIncrement" json:"purchase_id,omitempty"`
	SelectionID uint      `gorm:"column:selection_id;index;not null" json:"selection_id"`
	Status      string    `gorm:"column:status;type:varchar(16);not null" json:"status"`
	ClaimIDs    string    `gorm:"column:claim_ids;type:text" json:"claim_ids,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Purchase) TableName() string {
	return "checkout_purchase"
}

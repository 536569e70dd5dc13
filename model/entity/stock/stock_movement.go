package stock

import (
	"time"

	"gorm.io/datatypes"
)

// Movement kinds
const (
	KindIncrease = "INCREASE"
	KindDecrease = "DECREASE"
	KindClaimed  = "CLAIMED"
)

// Movement statuses
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
)

// StockMovement represents one row of the append-only stock_movement ledger.
// Quantity is signed: positive = added, negative = removed. Rows never change
// after creation except the PENDING -> COMPLETED status flip on claims.
type StockMovement struct {
	MovementID    string         `gorm:"column:movement_id;type:varchar(36);primaryKey" json:"movement_id"`
	ItemID        uint           `gorm:"column:item_id;index;not null" json:"item_id"`
	Quantity      int64          `gorm:"column:quantity;not null" json:"quantity"`
	Kind          string         `gorm:"column:kind;type:varchar(16);not null;index" json:"kind"`
	Status        string         `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	ReferenceKind string         `gorm:"column:reference_kind;type:varchar(32)" json:"reference_kind,omitempty"`
	ReferenceID   string         `gorm:"column:reference_id;type:varchar(64)" json:"reference_id,omitempty"`
	ClaimedFrom   *time.Time     `gorm:"column:claimed_from" json:"claimed_from,omitempty"`
	ExpiresAt     *time.Time     `gorm:"column:expires_at;index" json:"expires_at,omitempty"`
	Note          string         `gorm:"column:note;type:varchar(255)" json:"note,omitempty"`
	Metadata      datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (StockMovement) TableName() string {
	return "stock_movement"
}

// IsPendingClaim reports whether the row is a live reservation.
func (m *StockMovement) IsPendingClaim() bool {
	return m.Kind == KindClaimed && m.Status == StatusPending
}

// Expired reports whether the claim carries a hard expiry in the past.
func (m *StockMovement) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && m.ExpiresAt.Before(now)
}

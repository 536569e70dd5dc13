package stock

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockableItem represents the stockable_item table. An item with
// ManageStock=false has unbounded availability; a pool item fans every
// operation out to its members and never holds stock of its own.
type StockableItem struct {
	ItemID            uint            `gorm:"column:item_id;primaryKey;autoIncrement" json:"item_id,omitempty"`
	SKU               string          `gorm:"column:sku;type:varchar(64);not null;uniqueIndex" json:"sku"`
	ManageStock       bool            `gorm:"column:manage_stock;not null" json:"manage_stock"`
	LowStockThreshold *int64          `gorm:"column:low_stock_threshold" json:"low_stock_threshold,omitempty"`
	IsPool            bool            `gorm:"column:is_pool;not null;default:false" json:"is_pool"`
	PriceStrategy     string          `gorm:"column:price_strategy;type:varchar(16);not null;default:LOWEST" json:"price_strategy"`
	Booking           bool            `gorm:"column:booking;not null;default:false" json:"booking"`
	Price             decimal.Decimal `gorm:"column:price;type:decimal(20,6);not null;default:0" json:"price"`
	PoolID            *uint           `gorm:"column:pool_id;index" json:"pool_id,omitempty"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (StockableItem) TableName() string {
	return "stockable_item"
}

// PoolMember is the pool-side edge of the pool/member relation. The member
// side lives in stockable_item.pool_id; both are written in one transaction
// by ItemRepository.AttachMembers so a one-directional edge cannot exist.
type PoolMember struct {
	LinkID uint `gorm:"column:link_id;primaryKey;autoIncrement" json:"link_id,omitempty"`
	PoolID uint `gorm:"column:pool_id;index;not null" json:"pool_id"`
	ItemID uint `gorm:"column:item_id;uniqueIndex;not null" json:"item_id"`
}

func (PoolMember) TableName() string {
	return "pool_member"
}

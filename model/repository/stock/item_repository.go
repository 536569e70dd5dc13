package stock

import (
	"errors"

	"gorm.io/gorm"

	stockEntity "bookable.GO/model/entity/stock"
)

var ErrNotPool = errors.New("item is not a pool")

type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Create(item *stockEntity.StockableItem) error {
	return r.db.Create(item).Error
}

func (r *ItemRepository) FindByID(id uint) (*stockEntity.StockableItem, error) {
	var item stockEntity.StockableItem
	if err := r.db.First(&item, "item_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *ItemRepository) FindBySKU(sku string) (*stockEntity.StockableItem, error) {
	var item stockEntity.StockableItem
	if err := r.db.First(&item, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// AttachMembers links each item to the pool by writing both directions of the
// relation (pool_member row + the member's pool_id column) inside one
// transaction per pair. There is no single-direction variant; a partial edge
// cannot be observed even under failure.
func (r *ItemRepository) AttachMembers(poolID uint, itemIDs []uint) error {
	pool, err := r.FindByID(poolID)
	if err != nil {
		return err
	}
	if !pool.IsPool {
		return ErrNotPool
	}
	for _, itemID := range itemIDs {
		id := itemID
		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&stockEntity.PoolMember{PoolID: poolID, ItemID: id}).Error; err != nil {
				return err
			}
			return tx.Model(&stockEntity.StockableItem{}).
				Where("item_id = ?", id).
				Update("pool_id", poolID).Error
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Members returns the pool's member items.
func (r *ItemRepository) Members(poolID uint) ([]stockEntity.StockableItem, error) {
	var items []stockEntity.StockableItem
	err := r.db.
		Joins("JOIN pool_member ON pool_member.item_id = stockable_item.item_id").
		Where("pool_member.pool_id = ?", poolID).
		Order("stockable_item.item_id ASC").
		Find(&items).Error
	return items, err
}

// PoolOf returns the pool an item belongs to, or nil.
func (r *ItemRepository) PoolOf(itemID uint) (*stockEntity.StockableItem, error) {
	item, err := r.FindByID(itemID)
	if err != nil {
		return nil, err
	}
	if item.PoolID == nil {
		return nil, nil
	}
	return r.FindByID(*item.PoolID)
}

// ManagedItems returns all non-pool items with managed stock, for low-stock
// scans.
func (r *ItemRepository) ManagedItems() ([]stockEntity.StockableItem, error) {
	var items []stockEntity.StockableItem
	err := r.db.
		Where("manage_stock = ? AND is_pool = ?", true, false).
		Find(&items).Error
	return items, err
}

package checkout

import (
	"gorm.io/gorm"

	checkoutEntity "bookable.GO/model/entity/checkout"
)

type SelectionRepository struct {
	db *gorm.DB
}

func NewSelectionRepository(db *gorm.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

func (r *SelectionRepository) Create(s *checkoutEntity.Selection) error {
	return r.db.Create(s).Error
}

func (r *SelectionRepository) FindByID(id uint) (*checkoutEntity.Selection, error) {
	var s checkoutEntity.Selection
	if err := r.db.Preload("Lines").First(&s, "selection_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// MarkConverted flips a selection OPEN -> CONVERTED. Returns false when the
// selection was already converted, so two racing commits cannot both win.
func (r *SelectionRepository) MarkConverted(id uint) (bool, error) {
	res := r.db.Model(&checkoutEntity.Selection{}).
		Where("selection_id = ? AND status = ?", id, checkoutEntity.SelectionOpen).
		Update("status", checkoutEntity.SelectionConverted)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *SelectionRepository) CreatePurchase(p *checkoutEntity.Purchase) error {
	return r.db.Create(p).Error
}

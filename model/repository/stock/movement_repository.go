package stock

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	stockEntity "bookable.GO/model/entity/stock"
)

type MovementRepository struct {
	db    *gorm.DB
	sqlDB *sql.DB
}

func NewMovementRepository(db *gorm.DB) (*MovementRepository, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return &MovementRepository{db: db, sqlDB: sqlDB}, nil
}

// DB exposes the underlying handle for callers that need to open a
// transaction spanning repository calls.
func (r *MovementRepository) DB() *gorm.DB {
	return r.db
}

// Append writes a movement row as-is. The ledger is append-only; callers
// never update quantities after the fact.
func (r *MovementRepository) Append(tx *gorm.DB, m *stockEntity.StockMovement) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(m).Error
}

// AvailableSum returns the claimable quantity: the sum of all COMPLETED
// movements. A pending claim is held through its paired DECREASE; completing
// the claim lets its positive quantity re-enter this sum.
// Uses raw SQL for minimal overhead.
func (r *MovementRepository) AvailableSum(itemID uint) (int64, error) {
	const query = `SELECT COALESCE(SUM(quantity), 0) FROM stock_movement WHERE item_id = ? AND status = 'COMPLETED'`
	var total int64
	err := r.sqlDB.QueryRow(query, itemID).Scan(&total)
	return total, err
}

// PhysicalSum returns physical stock: completed INCREASE/DECREASE movements
// only, ignoring claims.
func (r *MovementRepository) PhysicalSum(itemID uint) (int64, error) {
	const query = `SELECT COALESCE(SUM(quantity), 0) FROM stock_movement WHERE item_id = ? AND status = 'COMPLETED' AND kind IN ('INCREASE', 'DECREASE')`
	var total int64
	err := r.sqlDB.QueryRow(query, itemID).Scan(&total)
	return total, err
}

// PendingClaimSum returns the total quantity held by live claims.
func (r *MovementRepository) PendingClaimSum(itemID uint) (int64, error) {
	const query = `SELECT COALESCE(SUM(quantity), 0) FROM stock_movement WHERE item_id = ? AND kind = 'CLAIMED' AND status = 'PENDING'`
	var total int64
	err := r.sqlDB.QueryRow(query, itemID).Scan(&total)
	return total, err
}

// conditionalDecreaseSQL appends the DECREASE row only while the available
// sum still covers the requested magnitude. The check and the write happen in
// one statement, so two racing decrements serialize on the store instead of
// both passing a stale check. The derived table keeps the statement valid on
// both MySQL and SQLite.
const conditionalDecreaseSQL = `
INSERT INTO stock_movement
	(movement_id, item_id, quantity, kind, status, reference_kind, reference_id, note, created_at)
SELECT ?, ?, ?, 'DECREASE', 'COMPLETED', ?, ?, ?, ?
FROM (
	SELECT COALESCE(SUM(quantity), 0) AS available
	FROM stock_movement
	WHERE item_id = ? AND status = 'COMPLETED'
) AS ledger
WHERE ledger.available >= ?`

// DecreaseIfAvailable atomically appends a DECREASE of qty (a positive
// magnitude) for the item. Returns false when available stock does not cover
// qty. Safe to call inside a surrounding transaction via tx.
func (r *MovementRepository) DecreaseIfAvailable(tx *gorm.DB, movementID string, itemID uint, qty int64, refKind, refID, note string, now time.Time) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.Exec(conditionalDecreaseSQL,
		movementID, itemID, -qty, refKind, refID, note, now,
		itemID, qty,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReleaseClaim flips one claim PENDING -> COMPLETED. Returns false when the
// claim was already released; racing releases are harmless.
func (r *MovementRepository) ReleaseClaim(movementID string) (bool, error) {
	res := r.db.Model(&stockEntity.StockMovement{}).
		Where("movement_id = ? AND kind = ? AND status = ?", movementID, stockEntity.KindClaimed, stockEntity.StatusPending).
		Update("status", stockEntity.StatusCompleted)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindByID returns one movement row.
func (r *MovementRepository) FindByID(movementID string) (*stockEntity.StockMovement, error) {
	var m stockEntity.StockMovement
	if err := r.db.Where("movement_id = ?", movementID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// PendingClaims returns a snapshot of live claims for an item, oldest first.
// The availability calculator works over this snapshot without touching the
// store again.
func (r *MovementRepository) PendingClaims(itemID uint) ([]stockEntity.StockMovement, error) {
	var claims []stockEntity.StockMovement
	err := r.db.
		Where("item_id = ? AND kind = ? AND status = ?", itemID, stockEntity.KindClaimed, stockEntity.StatusPending).
		Order("created_at ASC").
		Find(&claims).Error
	return claims, err
}

// ExpiredPendingClaims returns live claims whose hard expiry is in the past.
func (r *MovementRepository) ExpiredPendingClaims(now time.Time, limit int) ([]stockEntity.StockMovement, error) {
	var claims []stockEntity.StockMovement
	q := r.db.
		Where("kind = ? AND status = ? AND expires_at IS NOT NULL AND expires_at < ?",
			stockEntity.KindClaimed, stockEntity.StatusPending, now).
		Order("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&claims).Error
	return claims, err
}

// ClaimsByReference returns all claims carrying the given reference pointer.
func (r *MovementRepository) ClaimsByReference(refKind, refID string) ([]stockEntity.StockMovement, error) {
	var claims []stockEntity.StockMovement
	err := r.db.
		Where("kind = ? AND reference_kind = ? AND reference_id = ?", stockEntity.KindClaimed, refKind, refID).
		Order("created_at ASC").
		Find(&claims).Error
	return claims, err
}

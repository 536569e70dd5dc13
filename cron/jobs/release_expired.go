package jobs

import (
	"log"

	"gorm.io/gorm"

	stockRepo "bookable.GO/model/repository/stock"
	stockService "bookable.GO/service/stock"
)

// OpenDB is wired by the entrypoints (config.NewDB) so jobs can reach the
// store without importing config back.
var OpenDB func() (*gorm.DB, error)

// LowStockDefault is wired by the entrypoints from the app config.
var LowStockDefault int64

func services() (*stockService.StockLedger, *stockService.ClaimManager, error) {
	if OpenDB == nil {
		log.Println("cron/jobs: no database configured")
		return nil, nil, gorm.ErrInvalidDB
	}
	db, err := OpenDB()
	if err != nil {
		return nil, nil, err
	}
	items := stockRepo.NewItemRepository(db)
	movements, err := stockRepo.NewMovementRepository(db)
	if err != nil {
		return nil, nil, err
	}
	ledger := stockService.NewStockLedger(items, movements, nil, nil)
	ledger.DefaultLowStock = LowStockDefault
	claims := stockService.NewClaimManager(ledger, movements, nil, nil)
	return ledger, claims, nil
}

// ReleaseExpiredJob is the periodic sweep: every pending claim whose expiry
// has passed is released, and the count is logged for observability. Safe to
// run from several instances at once.
func ReleaseExpiredJob(args ...string) {
	_, claims, err := services()
	if err != nil {
		log.Printf("releaseexpired: %v", err)
		return
	}
	released, err := claims.ReleaseExpired()
	if err != nil {
		log.Printf("releaseexpired: %v", err)
		return
	}
	log.Printf("releaseexpired: released %d claims", released)
}

package api

import (
	"sync"

	"gorm.io/gorm"

	"bookable.GO/config"
	checkoutRepo "bookable.GO/model/repository/checkout"
	stockRepo "bookable.GO/model/repository/stock"
	checkoutService "bookable.GO/service/checkout"
	stockService "bookable.GO/service/stock"
)

// Engine bundles the inventory services the API modules share. Built once
// per DB handle.
type Engine struct {
	Items        *stockRepo.ItemRepository
	Movements    *stockRepo.MovementRepository
	Ledger       *stockService.StockLedger
	Claims       *stockService.ClaimManager
	Availability *stockService.AvailabilityCalculator
	Pools        *stockService.PoolAggregator
	Selections   *checkoutRepo.SelectionRepository
	Checkout     *checkoutService.Orchestrator
	Indexer      *stockService.MovementIndexer
}

var (
	engineMu sync.Mutex
	engines  = make(map[*gorm.DB]*Engine)
)

// GetEngine returns the engine for db, building it on first use.
func GetEngine(db *gorm.DB) (*Engine, error) {
	engineMu.Lock()
	defer engineMu.Unlock()
	if e, ok := engines[db]; ok {
		return e, nil
	}
	e, err := NewEngine(db)
	if err != nil {
		return nil, err
	}
	engines[db] = e
	return e, nil
}

// NewEngine wires the full service graph. The event publisher and movement
// indexer are optional collaborators; both tolerate being nil/unconfigured.
func NewEngine(db *gorm.DB) (*Engine, error) {
	items := stockRepo.NewItemRepository(db)
	movements, err := stockRepo.NewMovementRepository(db)
	if err != nil {
		return nil, err
	}

	indexer := stockService.NewMovementIndexer()
	ledger := stockService.NewStockLedger(items, movements, config.EventPublisher, indexer)
	if config.AppConfig != nil {
		ledger.DefaultLowStock = config.AppConfig.LowStockDefault
	}
	claims := stockService.NewClaimManager(ledger, movements, config.EventPublisher, indexer)
	availability := stockService.NewAvailabilityCalculator(items, movements)
	pools := stockService.NewPoolAggregator(items, movements, claims, availability)
	selections := checkoutRepo.NewSelectionRepository(db)
	orchestrator := checkoutService.NewOrchestrator(items, claims, pools, selections)

	return &Engine{
		Items:        items,
		Movements:    movements,
		Ledger:       ledger,
		Claims:       claims,
		Availability: availability,
		Pools:        pools,
		Selections:   selections,
		Checkout:     orchestrator,
		Indexer:      indexer,
	}, nil
}

package checkout_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	checkoutEntity "bookable.GO/model/entity/checkout"
	stockEntity "bookable.GO/model/entity/stock"
	checkoutRepo "bookable.GO/model/repository/checkout"
	stockRepo "bookable.GO/model/repository/stock"
	checkoutService "bookable.GO/service/checkout"
	stockService "bookable.GO/service/stock"
)

type checkoutFixture struct {
	db           *gorm.DB
	items        *stockRepo.ItemRepository
	movements    *stockRepo.MovementRepository
	ledger       *stockService.StockLedger
	claims       *stockService.ClaimManager
	pools        *stockService.PoolAggregator
	selections   *checkoutRepo.SelectionRepository
	orchestrator *checkoutService.Orchestrator
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	tmpFile := filepath.Join(os.TempDir(), fmt.Sprintf("checkout_test_%s_%d.db", t.Name(), time.Now().UnixNano()))
	t.Cleanup(func() { os.Remove(tmpFile) })
	db, err := gorm.Open(sqlite.Open(tmpFile), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	if err := db.AutoMigrate(
		&stockEntity.StockableItem{},
		&stockEntity.PoolMember{},
		&stockEntity.StockMovement{},
		&checkoutEntity.Selection{},
		&checkoutEntity.SelectionLine{},
		&checkoutEntity.Purchase{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	items := stockRepo.NewItemRepository(db)
	movements, err := stockRepo.NewMovementRepository(db)
	if err != nil {
		t.Fatalf("movement repository: %v", err)
	}
	ledger := stockService.NewStockLedger(items, movements, nil, nil)
	claims := stockService.NewClaimManager(ledger, movements, nil, nil)
	availability := stockService.NewAvailabilityCalculator(items, movements)
	pools := stockService.NewPoolAggregator(items, movements, claims, availability)
	selections := checkoutRepo.NewSelectionRepository(db)
	orchestrator := checkoutService.NewOrchestrator(items, claims, pools, selections)

	return &checkoutFixture{
		db:           db,
		items:        items,
		movements:    movements,
		ledger:       ledger,
		claims:       claims,
		pools:        pools,
		selections:   selections,
		orchestrator: orchestrator,
	}
}

func (f *checkoutFixture) item(t *testing.T, sku string, qty int64, booking bool) *stockEntity.StockableItem {
	t.Helper()
	item := &stockEntity.StockableItem{
		SKU:         sku,
		ManageStock: true,
		Booking:     booking,
		Price:       decimal.RequireFromString("10.00"),
	}
	if err := f.items.Create(item); err != nil {
		t.Fatalf("create item %s: %v", sku, err)
	}
	if qty > 0 {
		ref := stockService.Reference{Kind: stockService.RefAdmin, ID: "seed"}
		if _, err := f.ledger.Increase(item.ItemID, qty, ref, ""); err != nil {
			t.Fatalf("seed stock %s: %v", sku, err)
		}
	}
	return item
}

func (f *checkoutFixture) selection(t *testing.T, lines ...checkoutEntity.SelectionLine) *checkoutEntity.Selection {
	t.Helper()
	s := &checkoutEntity.Selection{Status: checkoutEntity.SelectionOpen, Lines: lines}
	if err := f.selections.Create(s); err != nil {
		t.Fatalf("create selection: %v", err)
	}
	return s
}

func TestCommit_SingleLine(t *testing.T) {
	f := newCheckoutFixture(t)
	item := f.item(t, "WIDGET", 10, false)
	sel := f.selection(t, checkoutEntity.SelectionLine{ItemID: item.ItemID, Quantity: 3})

	purchase, err := f.orchestrator.Commit(sel.SelectionID)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if purchase.Status != checkoutEntity.PurchaseCompleted {
		t.Errorf("purchase status = %s, want COMPLETED", purchase.Status)
	}
	if purchase.ClaimIDs == "" {
		t.Error("purchase has no claim ids")
	}

	available, _ := f.ledger.Available(item.ItemID)
	if available != 7 {
		t.Errorf("available after commit = %d, want 7", available)
	}

	// Claims carry the selection as their reference.
	held, err := f.movements.ClaimsByReference(stockService.RefCheckout, strconv.FormatUint(uint64(sel.SelectionID), 10))
	if err != nil {
		t.Fatalf("claims by reference: %v", err)
	}
	if len(held) != 1 {
		t.Errorf("claims for selection = %d, want 1", len(held))
	}

	got, err := f.selections.FindByID(sel.SelectionID)
	if err != nil {
		t.Fatalf("reload selection: %v", err)
	}
	if got.Status != checkoutEntity.SelectionConverted {
		t.Errorf("selection status = %s, want CONVERTED", got.Status)
	}
}

func TestCommit_SecondLineFailureRollsBackFirst(t *testing.T) {
	f := newCheckoutFixture(t)
	plenty := f.item(t, "PLENTY", 10, false)
	scarce := f.item(t, "SCARCE", 1, false)
	sel := f.selection(t,
		checkoutEntity.SelectionLine{ItemID: plenty.ItemID, Quantity: 2},
		checkoutEntity.SelectionLine{ItemID: scarce.ItemID, Quantity: 5},
	)

	_, err := f.orchestrator.Commit(sel.SelectionID)
	if !stockService.IsInsufficientStock(err) {
		t.Fatalf("commit: err = %v, want InsufficientStockError", err)
	}

	// The first line's hold was compensated.
	available, _ := f.ledger.Available(plenty.ItemID)
	if available != 10 {
		t.Errorf("first line available after rollback = %d, want 10", available)
	}
	pending, _ := f.movements.PendingClaims(plenty.ItemID)
	if len(pending) != 0 {
		t.Errorf("pending claims after rollback = %d, want 0", len(pending))
	}

	// Selection stays open for a corrected retry.
	got, _ := f.selections.FindByID(sel.SelectionID)
	if got.Status != checkoutEntity.SelectionOpen {
		t.Errorf("selection status = %s, want OPEN", got.Status)
	}
}

func TestCommit_TwiceFails(t *testing.T) {
	f := newCheckoutFixture(t)
	item := f.item(t, "WIDGET", 10, false)
	sel := f.selection(t, checkoutEntity.SelectionLine{ItemID: item.ItemID, Quantity: 1})

	if _, err := f.orchestrator.Commit(sel.SelectionID); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	_, err := f.orchestrator.Commit(sel.SelectionID)
	if !errors.Is(err, checkoutService.ErrSelectionConverted) {
		t.Fatalf("second commit: err = %v, want ErrSelectionConverted", err)
	}

	// No double hold.
	available, _ := f.ledger.Available(item.ItemID)
	if available != 9 {
		t.Errorf("available after double commit = %d, want 9", available)
	}
}

func TestCommit_BookingLineRequiresDates(t *testing.T) {
	f := newCheckoutFixture(t)
	plenty := f.item(t, "PLENTY", 10, false)
	room := f.item(t, "ROOM", 1, true)
	sel := f.selection(t,
		checkoutEntity.SelectionLine{ItemID: plenty.ItemID, Quantity: 1},
		checkoutEntity.SelectionLine{ItemID: room.ItemID, Quantity: 1},
	)

	_, err := f.orchestrator.Commit(sel.SelectionID)
	if !errors.Is(err, stockService.ErrInvalidDateRange) {
		t.Fatalf("commit: err = %v, want ErrInvalidDateRange", err)
	}

	// Validation runs before any claim, so nothing was held.
	pending, _ := f.movements.PendingClaims(plenty.ItemID)
	if len(pending) != 0 {
		t.Errorf("pending claims after failed validation = %d, want 0", len(pending))
	}
}

func TestCommit_PoolLine(t *testing.T) {
	f := newCheckoutFixture(t)
	pool := &stockEntity.StockableItem{SKU: "FLEET", ManageStock: true, IsPool: true, PriceStrategy: "LOWEST"}
	if err := f.items.Create(pool); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	a := f.item(t, "BIKE-A", 1, false)
	b := f.item(t, "BIKE-B", 1, false)
	if err := f.pools.AttachMembers(pool.ItemID, []uint{a.ItemID, b.ItemID}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	sel := f.selection(t, checkoutEntity.SelectionLine{ItemID: pool.ItemID, Quantity: 2})
	purchase, err := f.orchestrator.Commit(sel.SelectionID)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if purchase.ClaimIDs == "" {
		t.Error("pool purchase has no claim ids")
	}

	qty, err := f.pools.MaxQuantity(pool.ItemID, nil, nil)
	if err != nil {
		t.Fatalf("max quantity: %v", err)
	}
	if qty != 0 {
		t.Errorf("pool quantity after commit = %d, want 0", qty)
	}
}

func TestCommit_UnmanagedLineSkipsClaims(t *testing.T) {
	f := newCheckoutFixture(t)
	service := &stockEntity.StockableItem{SKU: "SERVICE", ManageStock: false}
	if err := f.items.Create(service); err != nil {
		t.Fatalf("create item: %v", err)
	}
	sel := f.selection(t, checkoutEntity.SelectionLine{ItemID: service.ItemID, Quantity: 5})

	purchase, err := f.orchestrator.Commit(sel.SelectionID)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if purchase.ClaimIDs != "" {
		t.Errorf("unmanaged purchase claim ids = %q, want empty", purchase.ClaimIDs)
	}

	pending, _ := f.movements.PendingClaims(service.ItemID)
	if len(pending) != 0 {
		t.Errorf("pending claims on unmanaged item = %d, want 0", len(pending))
	}
}

package stock

import (
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	stockEntity "bookable.GO/model/entity/stock"
	stockRepo "bookable.GO/model/repository/stock"
)

// StockLedger is the only writer of INCREASE/DECREASE movements. Every stock
// change in the system goes through it (or through ClaimManager, which builds
// on it), so the availability invariant stays provable.
type StockLedger struct {
	items     *stockRepo.ItemRepository
	movements *stockRepo.MovementRepository
	events    *Publisher
	indexer   *MovementIndexer

	// DefaultLowStock applies to managed items without their own
	// low_stock_threshold. Zero disables the fallback.
	DefaultLowStock int64
}

func NewStockLedger(items *stockRepo.ItemRepository, movements *stockRepo.MovementRepository, events *Publisher, indexer *MovementIndexer) *StockLedger {
	return &StockLedger{items: items, movements: movements, events: events, indexer: indexer}
}

// Increase appends an INCREASE/COMPLETED movement. No precondition.
func (l *StockLedger) Increase(itemID uint, qty int64, ref Reference, note string) (*stockEntity.StockMovement, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if _, err := l.items.FindByID(itemID); err != nil {
		return nil, err
	}
	m := &stockEntity.StockMovement{
		MovementID:    uuid.NewString(),
		ItemID:        itemID,
		Quantity:      qty,
		Kind:          stockEntity.KindIncrease,
		Status:        stockEntity.StatusCompleted,
		ReferenceKind: ref.Kind,
		ReferenceID:   ref.ID,
		Note:          note,
	}
	if err := l.movements.Append(nil, m); err != nil {
		return nil, err
	}
	l.afterWrite(EventStockIncreased, m)
	return m, nil
}

// Decrease appends a DECREASE/COMPLETED movement only while available stock
// covers qty; the check and the write are one atomic statement. Items with
// unmanaged stock skip the check.
func (l *StockLedger) Decrease(itemID uint, qty int64, ref Reference, note string) (*stockEntity.StockMovement, error) {
	m, err := l.decrease(nil, itemID, qty, ref, note)
	if err != nil {
		return nil, err
	}
	l.afterWrite(EventStockDecreased, m)
	return m, nil
}

func (l *StockLedger) decrease(tx *gorm.DB, itemID uint, qty int64, ref Reference, note string) (*stockEntity.StockMovement, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	item, err := l.items.FindByID(itemID)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	if !item.ManageStock {
		m := &stockEntity.StockMovement{
			MovementID:    id,
			ItemID:        itemID,
			Quantity:      -qty,
			Kind:          stockEntity.KindDecrease,
			Status:        stockEntity.StatusCompleted,
			ReferenceKind: ref.Kind,
			ReferenceID:   ref.ID,
			Note:          note,
		}
		if err := l.movements.Append(tx, m); err != nil {
			return nil, err
		}
		return m, nil
	}

	now := time.Now()
	ok, err := l.movements.DecreaseIfAvailable(tx, id, itemID, qty, ref.Kind, ref.ID, note, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		available, _ := l.movements.AvailableSum(itemID)
		return nil, &InsufficientStockError{ItemID: itemID, Requested: qty, Available: available}
	}
	m := &stockEntity.StockMovement{
		MovementID:    id,
		ItemID:        itemID,
		Quantity:      -qty,
		Kind:          stockEntity.KindDecrease,
		Status:        stockEntity.StatusCompleted,
		ReferenceKind: ref.Kind,
		ReferenceID:   ref.ID,
		Note:          note,
		CreatedAt:     now,
	}
	return m, nil
}

// Available returns the claimable quantity, or MaxInt64 for unmanaged items.
func (l *StockLedger) Available(itemID uint) (int64, error) {
	item, err := l.items.FindByID(itemID)
	if err != nil {
		return 0, err
	}
	if !item.ManageStock {
		return math.MaxInt64, nil
	}
	return l.movements.AvailableSum(itemID)
}

// Physical returns completed increase/decrease movements only, ignoring
// claims.
func (l *StockLedger) Physical(itemID uint) (int64, error) {
	return l.movements.PhysicalSum(itemID)
}

// IsLowStock reports whether the item's availability has fallen to or below
// its threshold. Items without their own threshold fall back to
// DefaultLowStock; unmanaged items never report low.
func (l *StockLedger) IsLowStock(item *stockEntity.StockableItem) (bool, error) {
	if !item.ManageStock {
		return false, nil
	}
	threshold := l.DefaultLowStock
	if item.LowStockThreshold != nil {
		threshold = *item.LowStockThreshold
	}
	if threshold <= 0 {
		return false, nil
	}
	available, err := l.movements.AvailableSum(item.ItemID)
	if err != nil {
		return false, err
	}
	return available <= threshold, nil
}

// LowStockItems scans managed items and returns those at or below threshold.
// The catalog collaborator owns notification; this only reports state.
func (l *StockLedger) LowStockItems() ([]stockEntity.StockableItem, error) {
	items, err := l.items.ManagedItems()
	if err != nil {
		return nil, err
	}
	var low []stockEntity.StockableItem
	for i := range items {
		ok, err := l.IsLowStock(&items[i])
		if err != nil {
			return nil, err
		}
		if ok {
			low = append(low, items[i])
		}
	}
	return low, nil
}

func (l *StockLedger) afterWrite(event string, m *stockEntity.StockMovement) {
	if l.events != nil {
		if err := l.events.Publish(event, m); err != nil {
			log.Printf("stock: publish %s: %v", event, err)
		}
	}
	if l.indexer != nil {
		l.indexer.Index(m)
	}
}

package stock

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	stockEntity "bookable.GO/model/entity/stock"
	stockRepo "bookable.GO/model/repository/stock"
)

// ClaimManager creates, releases and expires claims on top of the ledger.
// A claim is a CLAIMED/PENDING movement paired at creation with a completed
// DECREASE of the same magnitude; both commit together or neither does.
type ClaimManager struct {
	ledger    *StockLedger
	movements *stockRepo.MovementRepository
	events    *Publisher
	indexer   *MovementIndexer
}

func NewClaimManager(ledger *StockLedger, movements *stockRepo.MovementRepository, events *Publisher, indexer *MovementIndexer) *ClaimManager {
	return &ClaimManager{ledger: ledger, movements: movements, events: events, indexer: indexer}
}

// Claim atomically decrements available stock and records the reservation.
// from/until are both optional: a nil from means "since always", a nil until
// means the claim never expires on its own.
func (c *ClaimManager) Claim(itemID uint, qty int64, ref Reference, from, until *time.Time, note string) (*stockEntity.StockMovement, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if err := ValidateOptionalRange(from, until); err != nil {
		return nil, err
	}

	claim := &stockEntity.StockMovement{
		MovementID:    uuid.NewString(),
		ItemID:        itemID,
		Quantity:      qty,
		Kind:          stockEntity.KindClaimed,
		Status:        stockEntity.StatusPending,
		ReferenceKind: ref.Kind,
		ReferenceID:   ref.ID,
		ClaimedFrom:   from,
		ExpiresAt:     until,
		Note:          note,
	}

	var decrease *stockEntity.StockMovement
	err := c.movements.DB().Transaction(func(tx *gorm.DB) error {
		var err error
		decrease, err = c.ledger.decrease(tx, itemID, qty, ref, note)
		if err != nil {
			return err
		}
		return c.movements.Append(tx, claim)
	})
	if err != nil {
		return nil, err
	}

	c.ledger.afterWrite(EventStockDecreased, decrease)
	c.afterWrite(EventStockClaimed, claim)
	return claim, nil
}

// Release flips one claim PENDING -> COMPLETED, surfacing its quantity back
// to claimable stock. Returns false (not an error) when the claim was already
// released; the sweep and manual release paths race harmlessly.
func (c *ClaimManager) Release(movementID string) (bool, error) {
	ok, err := c.movements.ReleaseClaim(movementID)
	if err != nil {
		return false, err
	}
	if ok {
		if m, ferr := c.movements.FindByID(movementID); ferr == nil {
			c.afterWrite(EventStockReleased, m)
		}
	}
	return ok, nil
}

// ReleaseExpired releases every pending claim whose expiry is in the past and
// returns the count. Safe to run from several instances at once: each release
// is a conditional update, so double-invocation on the same claim is a no-op.
func (c *ClaimManager) ReleaseExpired() (int, error) {
	expired, err := c.movements.ExpiredPendingClaims(time.Now(), 0)
	if err != nil {
		return 0, err
	}
	released := 0
	for i := range expired {
		ok, err := c.Release(expired[i].MovementID)
		if err != nil {
			log.Printf("stock: release expired claim %s: %v", expired[i].MovementID, err)
			continue
		}
		if ok {
			released++
		}
	}
	return released, nil
}

func (c *ClaimManager) afterWrite(event string, m *stockEntity.StockMovement) {
	if c.events != nil {
		if err := c.events.Publish(event, m); err != nil {
			log.Printf("stock: publish %s: %v", event, err)
		}
	}
	if c.indexer != nil {
		c.indexer.Index(m)
	}
}

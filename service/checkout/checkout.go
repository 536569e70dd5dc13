package checkout

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	checkoutEntity "bookable.GO/model/entity/checkout"
	stockEntity "bookable.GO/model/entity/stock"
	checkoutRepo "bookable.GO/model/repository/checkout"
	stockRepo "bookable.GO/model/repository/stock"
	stockService "bookable.GO/service/stock"
)

// ErrSelectionConverted is returned when a selection was already committed.
var ErrSelectionConverted = errors.New("selection already converted")

// Orchestrator converts a finalized selection into committed claims and a
// purchase record. All-or-nothing at the selection level: any line failure
// releases every claim made for prior lines before the error surfaces.
type Orchestrator struct {
	items      *stockRepo.ItemRepository
	claims     *stockService.ClaimManager
	pools      *stockService.PoolAggregator
	selections *checkoutRepo.SelectionRepository
}

func NewOrchestrator(items *stockRepo.ItemRepository, claims *stockService.ClaimManager, pools *stockService.PoolAggregator, selections *checkoutRepo.SelectionRepository) *Orchestrator {
	return &Orchestrator{items: items, claims: claims, pools: pools, selections: selections}
}

// validateLine checks temporal parameters before any claim is attempted.
// Booking lines (dated items, pools of dated members) must carry a valid
// from/until pair; plain stocked lines need none.
func validateLine(item *stockEntity.StockableItem, line *checkoutEntity.SelectionLine) error {
	if item.Booking {
		if err := stockService.ValidateRange(line.From, line.Until); err != nil {
			return fmt.Errorf("line %d: %w", line.LineID, err)
		}
	}
	return nil
}

// Commit converts the selection. Claims are made pool-by-pool and line-by-
// line, each its own atomic unit; compensation on failure is explicit.
func (o *Orchestrator) Commit(selectionID uint) (*checkoutEntity.Purchase, error) {
	selection, err := o.selections.FindByID(selectionID)
	if err != nil {
		return nil, err
	}
	if selection.Status != checkoutEntity.SelectionOpen {
		return nil, ErrSelectionConverted
	}

	ref := stockService.Reference{Kind: stockService.RefCheckout, ID: strconv.FormatUint(uint64(selectionID), 10)}

	// Validate every line before claiming anything.
	lineItems := make([]*stockEntity.StockableItem, len(selection.Lines))
	for i := range selection.Lines {
		item, err := o.items.FindByID(selection.Lines[i].ItemID)
		if err != nil {
			return nil, err
		}
		if err := validateLine(item, &selection.Lines[i]); err != nil {
			return nil, err
		}
		lineItems[i] = item
	}

	var made []*stockEntity.StockMovement
	for i := range selection.Lines {
		line := &selection.Lines[i]
		item := lineItems[i]

		switch {
		case item.IsPool:
			claims, err := o.pools.ClaimPoolStock(item.ItemID, line.Quantity, ref, line.From, line.Until, "checkout")
			if err != nil {
				o.rollback(made)
				return nil, err
			}
			made = append(made, claims...)
		case !item.ManageStock:
			// Unbounded availability; nothing to claim.
		default:
			claim, err := o.claims.Claim(item.ItemID, line.Quantity, ref, line.From, line.Until, "checkout")
			if err != nil {
				o.rollback(made)
				return nil, err
			}
			made = append(made, claim)
		}
	}

	converted, err := o.selections.MarkConverted(selectionID)
	if err != nil {
		o.rollback(made)
		return nil, err
	}
	if !converted {
		o.rollback(made)
		return nil, ErrSelectionConverted
	}

	ids := make([]string, len(made))
	for i, c := range made {
		ids[i] = c.MovementID
	}
	purchase := &checkoutEntity.Purchase{
		SelectionID: selectionID,
		Status:      checkoutEntity.PurchaseCompleted,
		ClaimIDs:    strings.Join(ids, ","),
	}
	if err := o.selections.CreatePurchase(purchase); err != nil {
		// The claims stand; the purchase row is bookkeeping. Surface the
		// error without compensating committed stock.
		return nil, err
	}
	return purchase, nil
}

// rollback releases every claim made in this commit. Failures are logged and
// never mask the original error.
func (o *Orchestrator) rollback(made []*stockEntity.StockMovement) {
	for _, claim := range made {
		if _, err := o.claims.Release(claim.MovementID); err != nil {
			log.Printf("checkout: rollback release of claim %s failed: %v", claim.MovementID, err)
		}
	}
}

package stock

import (
	"math"
	"time"

	stockRepo "bookable.GO/model/repository/stock"
)

// AvailabilityCalculator answers date-ranged booking questions for non-pool
// items. It reads one snapshot of pending claims and hands it to the pure
// interval math in availability.go.
type AvailabilityCalculator struct {
	items     *stockRepo.ItemRepository
	movements *stockRepo.MovementRepository
}

func NewAvailabilityCalculator(items *stockRepo.ItemRepository, movements *stockRepo.MovementRepository) *AvailabilityCalculator {
	return &AvailabilityCalculator{items: items, movements: movements}
}

// rangeCapacity is what the item can hold over any window: claimable stock
// plus the quantity of live claims. The claimed units are physically present,
// just spoken for in their own windows; the overlap test charges them to the
// windows they intersect.
func (a *AvailabilityCalculator) rangeCapacity(itemID uint) (int64, error) {
	available, err := a.movements.AvailableSum(itemID)
	if err != nil {
		return 0, err
	}
	pending, err := a.movements.PendingClaimSum(itemID)
	if err != nil {
		return 0, err
	}
	return available + pending, nil
}

// IsAvailable reports whether the item has qty uncommitted units over the
// whole half-open range [from, until). Fails with ErrInvalidDateRange when
// from is not strictly before until.
func (a *AvailabilityCalculator) IsAvailable(itemID uint, from, until time.Time, qty int64) (bool, error) {
	if err := ValidateRange(&from, &until); err != nil {
		return false, err
	}
	if qty <= 0 {
		return false, ErrInvalidQuantity
	}
	item, err := a.items.FindByID(itemID)
	if err != nil {
		return false, err
	}
	if !item.ManageStock {
		return true, nil
	}

	capacity, err := a.rangeCapacity(itemID)
	if err != nil {
		return false, err
	}
	claims, err := a.movements.PendingClaims(itemID)
	if err != nil {
		return false, err
	}
	return AvailableForRange(capacity, Windows(claims), from, until) >= qty, nil
}

// Calendar returns the per-day available count over [start, end] inclusive.
func (a *AvailabilityCalculator) Calendar(itemID uint, start, end time.Time) (map[string]int64, error) {
	if end.Before(start) {
		return nil, ErrInvalidDateRange
	}
	item, err := a.items.FindByID(itemID)
	if err != nil {
		return nil, err
	}
	if !item.ManageStock {
		out := make(map[string]int64)
		day := start.Truncate(24 * time.Hour)
		last := end.Truncate(24 * time.Hour)
		for !day.After(last) {
			out[day.Format(DayKey)] = math.MaxInt64
			day = day.Add(24 * time.Hour)
		}
		return out, nil
	}

	capacity, err := a.rangeCapacity(itemID)
	if err != nil {
		return nil, err
	}
	claims, err := a.movements.PendingClaims(itemID)
	if err != nil {
		return nil, err
	}
	return CalendarCounts(capacity, Windows(claims), start, end), nil
}

package stock

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	stockEntity "bookable.GO/model/entity/stock"
	stockRepo "bookable.GO/model/repository/stock"
)

// PriceStrategy selects how a pool derives its price from the prices of its
// currently-available members.
type PriceStrategy string

const (
	StrategyLowest  PriceStrategy = "LOWEST"
	StrategyHighest PriceStrategy = "HIGHEST"
	StrategyAverage PriceStrategy = "AVERAGE"
)

// ParseStrategy validates a strategy string.
func ParseStrategy(s string) (PriceStrategy, error) {
	switch PriceStrategy(s) {
	case StrategyLowest, StrategyHighest, StrategyAverage:
		return PriceStrategy(s), nil
	}
	return "", fmt.Errorf("unknown price strategy %q", s)
}

// PoolAggregator composes member single-items into one virtual inventory
// unit. A pool's own stock is never claimed; every operation fans out to the
// members.
type PoolAggregator struct {
	items     *stockRepo.ItemRepository
	movements *stockRepo.MovementRepository
	claims    *ClaimManager
	avail     *AvailabilityCalculator
}

func NewPoolAggregator(items *stockRepo.ItemRepository, movements *stockRepo.MovementRepository, claims *ClaimManager, avail *AvailabilityCalculator) *PoolAggregator {
	return &PoolAggregator{items: items, movements: movements, claims: claims, avail: avail}
}

// AttachMembers establishes the bidirectional pool<->member relation for each
// id, one atomic operation per pair.
func (p *PoolAggregator) AttachMembers(poolID uint, itemIDs []uint) error {
	return p.items.AttachMembers(poolID, itemIDs)
}

// memberAvailable reports whether one member can satisfy a single-unit claim,
// for the date range when given.
func (p *PoolAggregator) memberAvailable(member *stockEntity.StockableItem, from, until *time.Time) (bool, error) {
	if from != nil && until != nil {
		return p.avail.IsAvailable(member.ItemID, *from, *until, 1)
	}
	if !member.ManageStock {
		return true, nil
	}
	available, err := p.movements.AvailableSum(member.ItemID)
	if err != nil {
		return false, err
	}
	return available >= 1, nil
}

// availableMembers fans out the per-member availability test and returns the
// members that pass, preserving member order.
func (p *PoolAggregator) availableMembers(poolID uint, from, until *time.Time) ([]stockEntity.StockableItem, error) {
	if (from == nil) != (until == nil) {
		return nil, ErrInvalidDateRange
	}
	members, err := p.items.Members(poolID)
	if err != nil {
		return nil, err
	}

	ok := make([]bool, len(members))
	var g errgroup.Group
	for i := range members {
		i := i
		g.Go(func() error {
			available, err := p.memberAvailable(&members[i], from, until)
			if err != nil {
				return err
			}
			ok[i] = available
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []stockEntity.StockableItem
	for i := range members {
		if ok[i] {
			out = append(out, members[i])
		}
	}
	return out, nil
}

// MaxQuantity returns how many member items are individually available, for
// the date range when given.
func (p *PoolAggregator) MaxQuantity(poolID uint, from, until *time.Time) (int64, error) {
	available, err := p.availableMembers(poolID, from, until)
	if err != nil {
		return 0, err
	}
	return int64(len(available)), nil
}

// AvailabilityCalendar returns the per-day count of available members over
// [start, end] inclusive.
func (p *PoolAggregator) AvailabilityCalendar(poolID uint, start, end time.Time) (map[string]int64, error) {
	if end.Before(start) {
		return nil, ErrInvalidDateRange
	}
	members, err := p.items.Members(poolID)
	if err != nil {
		return nil, err
	}

	calendars := make([]map[string]int64, len(members))
	var g errgroup.Group
	for i := range members {
		i := i
		g.Go(func() error {
			cal, err := p.avail.Calendar(members[i].ItemID, start, end)
			if err != nil {
				return err
			}
			calendars[i] = cal
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]int64)
	day := start.Truncate(24 * time.Hour)
	last := end.Truncate(24 * time.Hour)
	for !day.After(last) {
		key := day.Format(DayKey)
		var count int64
		for _, cal := range calendars {
			if cal[key] >= 1 {
				count++
			}
		}
		out[key] = count
		day = day.Add(24 * time.Hour)
	}
	return out, nil
}

// Price derives the pool price from currently-available members under the
// given strategy. ok is false when no members are available; that is the
// caller's case to handle, not an error.
func (p *PoolAggregator) Price(poolID uint, strategy PriceStrategy) (decimal.Decimal, bool, error) {
	available, err := p.availableMembers(poolID, nil, nil)
	if err != nil {
		return decimal.Zero, false, err
	}
	if len(available) == 0 {
		return decimal.Zero, false, nil
	}

	prices := make([]decimal.Decimal, len(available))
	for i := range available {
		prices[i] = available[i].Price
	}

	switch strategy {
	case StrategyHighest:
		return decimal.Max(prices[0], prices[1:]...), true, nil
	case StrategyAverage:
		return decimal.Avg(prices[0], prices[1:]...), true, nil
	default:
		return decimal.Min(prices[0], prices[1:]...), true, nil
	}
}

// sortByStrategy orders candidate members so claims are taken consistently
// with the quoted price: cheapest first under LOWEST and AVERAGE, priciest
// first under HIGHEST.
func sortByStrategy(members []stockEntity.StockableItem, strategy PriceStrategy) {
	sort.SliceStable(members, func(i, j int) bool {
		if strategy == StrategyHighest {
			return members[i].Price.GreaterThan(members[j].Price)
		}
		return members[i].Price.LessThan(members[j].Price)
	})
}

// ClaimPoolStock claims qty distinct available members, one unit each, in the
// pool's strategy order. All-or-nothing: if any member claim fails partway,
// every claim made in this call is released before the error returns. Each
// member claim is its own atomic unit; there is no cross-item transaction.
func (p *PoolAggregator) ClaimPoolStock(poolID uint, qty int64, ref Reference, from, until *time.Time, note string) ([]*stockEntity.StockMovement, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	pool, err := p.items.FindByID(poolID)
	if err != nil {
		return nil, err
	}
	candidates, err := p.availableMembers(poolID, from, until)
	if err != nil {
		return nil, err
	}
	if int64(len(candidates)) < qty {
		return nil, &InsufficientStockError{ItemID: poolID, Requested: qty, Available: int64(len(candidates))}
	}
	sortByStrategy(candidates, PriceStrategy(pool.PriceStrategy))

	var made []*stockEntity.StockMovement
	for i := range candidates {
		if int64(len(made)) == qty {
			break
		}
		claim, err := p.claims.Claim(candidates[i].ItemID, 1, ref, from, until, note)
		if err != nil {
			if IsInsufficientStock(err) {
				// Member got taken between the snapshot and the claim;
				// try the next candidate.
				continue
			}
			p.rollback(made)
			return nil, err
		}
		made = append(made, claim)
	}

	if int64(len(made)) < qty {
		p.rollback(made)
		return nil, &InsufficientStockError{ItemID: poolID, Requested: qty, Available: int64(len(made))}
	}
	return made, nil
}

// rollback compensates a partial multi-member claim. Failures are logged and
// never mask the original error.
func (p *PoolAggregator) rollback(made []*stockEntity.StockMovement) {
	for _, claim := range made {
		if _, err := p.claims.Release(claim.MovementID); err != nil {
			log.Printf("stock: rollback release of claim %s failed: %v", claim.MovementID, err)
		}
	}
}

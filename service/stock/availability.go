package stock

import (
	"time"

	stockEntity "bookable.GO/model/entity/stock"
)

// ClaimWindow is the slice of a pending claim the interval math needs: its
// quantity and its half-open [From, Until) window. A nil From means "since
// always", a nil Until means "forever".
type ClaimWindow struct {
	Quantity int64
	From     *time.Time
	Until    *time.Time
}

// ValidateRange checks a required from/until pair: both must be present and
// from must be strictly before until.
func ValidateRange(from, until *time.Time) error {
	if from == nil || until == nil {
		return ErrInvalidDateRange
	}
	if !from.Before(*until) {
		return ErrInvalidDateRange
	}
	return nil
}

// ValidateOptionalRange checks a claim's window where either bound may be
// omitted; when both are present, from must be strictly before until.
func ValidateOptionalRange(from, until *time.Time) error {
	if from != nil && until != nil && !from.Before(*until) {
		return ErrInvalidDateRange
	}
	return nil
}

// Overlaps reports whether the claim window intersects the half-open query
// range [from, until). A claim ending exactly at from does not conflict.
func (w ClaimWindow) Overlaps(from, until time.Time) bool {
	if w.Until != nil && !w.Until.After(from) {
		return false
	}
	if w.From != nil && !w.From.Before(until) {
		return false
	}
	return true
}

// MaxConcurrent returns the largest total claimed quantity held at any single
// instant within [from, until). Concurrency can only change where a claim
// window begins, so it is enough to sample the range start plus each claim's
// clamped start.
func MaxConcurrent(claims []ClaimWindow, from, until time.Time) int64 {
	points := []time.Time{from}
	for _, c := range claims {
		if c.From != nil && c.From.After(from) && c.From.Before(until) {
			points = append(points, *c.From)
		}
	}

	var max int64
	for _, p := range points {
		var held int64
		for _, c := range claims {
			if c.Overlaps(p, until) && (c.From == nil || !c.From.After(p)) {
				held += c.Quantity
			}
		}
		if held > max {
			max = held
		}
	}
	return max
}

// AvailableForRange returns how many units remain claimable over the whole of
// [from, until): capacity minus the worst-case concurrent overlap.
func AvailableForRange(capacity int64, claims []ClaimWindow, from, until time.Time) int64 {
	return capacity - MaxConcurrent(claims, from, until)
}

// DayKey is the calendar map key format.
const DayKey = "2006-01-02"

// CalendarCounts evaluates the range availability once per day over
// [start, end] inclusive, using the same half-open overlap test against each
// day's [midnight, next midnight) window.
func CalendarCounts(capacity int64, claims []ClaimWindow, start, end time.Time) map[string]int64 {
	out := make(map[string]int64)
	day := start.Truncate(24 * time.Hour)
	last := end.Truncate(24 * time.Hour)
	for !day.After(last) {
		next := day.Add(24 * time.Hour)
		out[day.Format(DayKey)] = AvailableForRange(capacity, claims, day, next)
		day = next
	}
	return out
}

// Windows converts pending-claim snapshot rows to their interval view.
func Windows(claims []stockEntity.StockMovement) []ClaimWindow {
	out := make([]ClaimWindow, 0, len(claims))
	for _, c := range claims {
		out = append(out, ClaimWindow{Quantity: c.Quantity, From: c.ClaimedFrom, Until: c.ExpiresAt})
	}
	return out
}

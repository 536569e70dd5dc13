package stock

import (
	"errors"
	"fmt"
)

// InsufficientStockError is returned when a decrease or claim asks for more
// than the item has available at the moment of the atomic check. Available
// carries the quantity seen at that moment so callers can build an
// actionable message ("only N available").
type InsufficientStockError struct {
	ItemID    uint
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d: requested %d, available %d", e.ItemID, e.Requested, e.Available)
}

// IsInsufficientStock reports whether err is an insufficient-stock failure.
func IsInsufficientStock(err error) bool {
	var ise *InsufficientStockError
	return errors.As(err, &ise)
}

// ErrInvalidDateRange is returned when from >= until, or when only one of a
// required from/until pair is supplied. Always a local validation failure.
var ErrInvalidDateRange = errors.New("invalid date range")

// ErrInvalidQuantity is returned for zero or negative quantities.
var ErrInvalidQuantity = errors.New("quantity must be positive")

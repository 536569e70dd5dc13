package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	stockRepo "bookable.GO/model/repository/stock"
	checkoutService "bookable.GO/service/checkout"
	stockService "bookable.GO/service/stock"
)

// JSONError maps engine errors to user-actionable HTTP responses.
// Insufficient stock and invalid ranges get distinct statuses and messages
// rather than generic failures.
func JSONError(c echo.Context, err error) error {
	var ise *stockService.InsufficientStockError
	switch {
	case errors.As(err, &ise):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     fmt.Sprintf("only %d available", ise.Available),
			"available": ise.Available,
			"requested": ise.Requested,
			"item_id":   ise.ItemID,
		})
	case errors.Is(err, stockService.ErrInvalidDateRange),
		errors.Is(err, stockService.ErrInvalidQuantity),
		errors.Is(err, stockRepo.ErrNotPool):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, checkoutService.ErrSelectionConverted):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
}

// ParseTime accepts RFC3339 or a bare date.
func ParseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q (want RFC3339 or YYYY-MM-DD)", s)
	}
	return &t, nil
}

package stock

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	stockEntity "bookable.GO/model/entity/stock"
	stockRepo "bookable.GO/model/repository/stock"
)

// StockInput is one row of an initial-inventory load.
type StockInput struct {
	SKU               string  `json:"sku"`
	Qty               int64   `json:"qty"`
	Price             string  `json:"price,omitempty"`
	ManageStock       *bool   `json:"manage_stock,omitempty"`
	Booking           bool    `json:"booking,omitempty"`
	LowStockThreshold *int64  `json:"low_stock_threshold,omitempty"`
}

// ImportResult reports what a bulk load did.
type ImportResult struct {
	Created   int      `json:"created"`
	Increased int      `json:"increased"`
	Skipped   int      `json:"skipped"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ImportStock upserts items by SKU and appends INCREASE movements for the
// given quantities. Rows with bad data are skipped with a warning rather than
// failing the whole load.
func ImportStock(db *gorm.DB, ledger *StockLedger, inputs []StockInput) (*ImportResult, error) {
	items := stockRepo.NewItemRepository(db)
	res := &ImportResult{}

	for _, in := range inputs {
		sku := strings.TrimSpace(in.SKU)
		if sku == "" {
			res.Skipped++
			res.Warnings = append(res.Warnings, "row with empty sku skipped")
			continue
		}
		if in.Qty < 0 {
			res.Skipped++
			res.Warnings = append(res.Warnings, fmt.Sprintf("sku=%s: negative qty", sku))
			continue
		}

		item, err := items.FindBySKU(sku)
		if err != nil {
			item = &stockEntity.StockableItem{SKU: sku, ManageStock: true, Booking: in.Booking}
			if in.ManageStock != nil {
				item.ManageStock = *in.ManageStock
			}
			item.LowStockThreshold = in.LowStockThreshold
			if in.Price != "" {
				price, perr := decimal.NewFromString(in.Price)
				if perr != nil {
					res.Skipped++
					res.Warnings = append(res.Warnings, fmt.Sprintf("sku=%s: invalid price %q", sku, in.Price))
					continue
				}
				item.Price = price
			}
			if err := items.Create(item); err != nil {
				res.Skipped++
				res.Warnings = append(res.Warnings, fmt.Sprintf("sku=%s: create: %v", sku, err))
				continue
			}
			res.Created++
		}

		if in.Qty > 0 {
			if _, err := ledger.Increase(item.ItemID, in.Qty, Reference{Kind: RefImport, ID: sku}, "bulk import"); err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("sku=%s: increase: %v", sku, err))
				continue
			}
			res.Increased++
		}
	}
	return res, nil
}

// ImportStockCSV parses a CSV with a header row (sku,qty[,price][,manage_stock]
// [,booking][,low_stock_threshold]) and feeds it to ImportStock.
func ImportStockCSV(db *gorm.DB, ledger *StockLedger, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := colIndex["sku"]; !ok {
		return nil, fmt.Errorf("csv missing sku column")
	}

	cell := func(row []string, col string) string {
		i, ok := colIndex[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var inputs []StockInput
	var warnings []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		in := StockInput{SKU: cell(row, "sku"), Price: cell(row, "price")}
		if v := cell(row, "qty"); v != "" {
			q, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("sku=%s: invalid qty %q", in.SKU, v))
				continue
			}
			in.Qty = q
		}
		if v := cell(row, "manage_stock"); v != "" {
			b := v == "1" || strings.EqualFold(v, "true")
			in.ManageStock = &b
		}
		if v := cell(row, "booking"); v != "" {
			in.Booking = v == "1" || strings.EqualFold(v, "true")
		}
		if v := cell(row, "low_stock_threshold"); v != "" {
			t, err := strconv.ParseInt(v, 10, 64)
			if err == nil {
				in.LowStockThreshold = &t
			}
		}
		inputs = append(inputs, in)
	}

	res, err := ImportStock(db, ledger, inputs)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(warnings, res.Warnings...)
	return res, nil
}

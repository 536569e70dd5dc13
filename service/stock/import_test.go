package stock_test

import (
	"strings"
	"testing"

	stockService "bookable.GO/service/stock"
)

func TestImportStock_CreatesAndIncreases(t *testing.T) {
	db := stockTestDB(t)
	s := newStockServices(t, db)

	res, err := stockService.ImportStock(db, s.ledger, []stockService.StockInput{
		{SKU: "IMP-A", Qty: 5, Price: "9.99"},
		{SKU: "IMP-B", Qty: 0},
		{SKU: "", Qty: 3},
		{SKU: "IMP-C", Qty: -1},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Created != 2 {
		t.Errorf("created = %d, want 2", res.Created)
	}
	if res.Increased != 1 {
		t.Errorf("increased = %d, want 1", res.Increased)
	}
	if res.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", res.Skipped)
	}

	item, err := s.items.FindBySKU("IMP-A")
	if err != nil {
		t.Fatalf("find imported item: %v", err)
	}
	available, _ := s.ledger.Available(item.ItemID)
	if available != 5 {
		t.Errorf("imported available = %d, want 5", available)
	}
}

func TestImportStock_ExistingSKUOnlyIncreases(t *testing.T) {
	db := stockTestDB(t)
	s := newStockServices(t, db)
	item := createItem(t, s, "IMP-A", "9.99", false)

	res, err := stockService.ImportStock(db, s.ledger, []stockService.StockInput{
		{SKU: "IMP-A", Qty: 7},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Created != 0 {
		t.Errorf("created = %d, want 0", res.Created)
	}
	if res.Increased != 1 {
		t.Errorf("increased = %d, want 1", res.Increased)
	}

	available, _ := s.ledger.Available(item.ItemID)
	if available != 7 {
		t.Errorf("available = %d, want 7", available)
	}
}

func TestImportStockCSV(t *testing.T) {
	db := stockTestDB(t)
	s := newStockServices(t, db)

	csvData := strings.Join([]string{
		"sku,qty,price,manage_stock,booking",
		"CSV-A,4,19.99,1,0",
		"CSV-B,2,29.99,true,true",
		"CSV-C,notanumber,5.00,1,0",
	}, "\n")

	res, err := stockService.ImportStockCSV(db, s.ledger, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("csv import: %v", err)
	}
	if res.Created != 2 {
		t.Errorf("created = %d, want 2", res.Created)
	}
	if len(res.Warnings) == 0 {
		t.Error("bad qty row should leave a warning")
	}

	b, err := s.items.FindBySKU("CSV-B")
	if err != nil {
		t.Fatalf("find CSV-B: %v", err)
	}
	if !b.Booking {
		t.Error("CSV-B should be a booking item")
	}
}

func TestImportStockCSV_MissingSKUColumn(t *testing.T) {
	db := stockTestDB(t)
	s := newStockServices(t, db)

	_, err := stockService.ImportStockCSV(db, s.ledger, strings.NewReader("qty,price\n1,2.00\n"))
	if err == nil {
		t.Fatal("csv without sku column should fail")
	}
}

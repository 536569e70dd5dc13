package jobs

import (
	"log"
)

// LowStockReportJob logs items at or below their low-stock threshold. The
// catalog collaborator owns notification; this report is for the operator.
func LowStockReportJob(args ...string) {
	ledger, _, err := services()
	if err != nil {
		log.Printf("lowstockreport: %v", err)
		return
	}
	items, err := ledger.LowStockItems()
	if err != nil {
		log.Printf("lowstockreport: %v", err)
		return
	}
	if len(items) == 0 {
		log.Println("lowstockreport: no items below threshold")
		return
	}
	for i := range items {
		log.Printf("lowstockreport: sku=%s item=%d at or below threshold", items[i].SKU, items[i].ItemID)
	}
}

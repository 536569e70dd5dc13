package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bookable.GO/config"
	stockRepo "bookable.GO/model/repository/stock"
	stockService "bookable.GO/service/stock"
)

var importFile string

var stockImportCmd = &cobra.Command{
	Use:   "stock:import",
	Short: "Import stockable items and opening stock from CSV",
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(importFile)
		if err != nil {
			fmt.Printf("Failed to open CSV: %v\n", err)
			return
		}
		defer f.Close()

		db, err := config.NewDB()
		if err != nil {
			fmt.Printf("Database connection failed: %v\n", err)
			return
		}

		items := stockRepo.NewItemRepository(db)
		movements, err := stockRepo.NewMovementRepository(db)
		if err != nil {
			fmt.Printf("Repository init failed: %v\n", err)
			return
		}
		ledger := stockService.NewStockLedger(items, movements, nil, nil)

		start := time.Now()
		res, err := stockService.ImportStockCSV(db, ledger, f)
		if err != nil {
			fmt.Printf("Import failed: %v\n", err)
			return
		}

		for _, w := range res.Warnings {
			fmt.Printf("  [warn] %s\n", w)
		}
		fmt.Printf(`
=== Import Report ===
Created:    %d
Increased:  %d
Skipped:    %d
Total time: %s
=====================
`, res.Created, res.Increased, res.Skipped, time.Since(start).Round(time.Millisecond))
	},
}

var releaseExpiredCmd = &cobra.Command{
	Use:   "stock:release-expired",
	Short: "Release expired pending claims and exit",
	Run: func(cmd *cobra.Command, args []string) {
		db, err := config.NewDB()
		if err != nil {
			fmt.Printf("Database connection failed: %v\n", err)
			return
		}
		items := stockRepo.NewItemRepository(db)
		movements, err := stockRepo.NewMovementRepository(db)
		if err != nil {
			fmt.Printf("Repository init failed: %v\n", err)
			return
		}
		ledger := stockService.NewStockLedger(items, movements, nil, nil)
		claims := stockService.NewClaimManager(ledger, movements, nil, nil)

		released, err := claims.ReleaseExpired()
		if err != nil {
			fmt.Printf("Release failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Released %d expired claim(s)\n", released)
	},
}

func init() {
	stockImportCmd.Flags().StringVarP(&importFile, "file", "f", "", "CSV file path (required)")
	stockImportCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(stockImportCmd)
	rootCmd.AddCommand(releaseExpiredCmd)
}

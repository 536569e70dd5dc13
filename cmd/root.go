package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bookable",
	Short: "Bookable stock engine CLI",
	Long:  "Stock ledger, claims and bookable pool tooling. Run a subcommand, or see --help.",
}

// Execute runs the CLI. Applies registered custom commands first.
func Execute() {
	Apply()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

//go:build cli
// +build cli

package main

import (
	_ "bookable.GO/custom"

	"bookable.GO/cmd"
	"bookable.GO/config"
	"bookable.GO/cron/jobs"
)

func main() {
	config.LoadEnv()
	config.LoadAppConfig()
	jobs.OpenDB = config.NewDB
	jobs.LowStockDefault = config.AppConfig.LowStockDefault
	cmd.Execute()
}

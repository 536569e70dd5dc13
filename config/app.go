package config

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// AppConfig holds global application configuration
var AppConfig *Config
var once sync.Once

type Config struct {
	AppName string
	Port    string
	Env     string
	Debug   bool

	// DefaultClaimTTL is applied to claims created without an explicit
	// expiry when a TTL is wanted (cart holds). Zero means no default.
	DefaultClaimTTL time.Duration

	// SweepSchedule is the cron spec for the expired-claim sweep.
	SweepSchedule string

	// LowStockDefault applies to items without their own threshold in the
	// low-stock report. Zero disables the fallback.
	LowStockDefault int64
}

// LoadAppConfig initializes the global AppConfig variable
func LoadAppConfig() {
	once.Do(func() {
		ttlMinutes, _ := strconv.Atoi(GetEnv("CLAIM_TTL_MINUTES", "30"))
		lowStock, _ := strconv.ParseInt(GetEnv("LOW_STOCK_DEFAULT", "0"), 10, 64)
		AppConfig = &Config{
			AppName:         os.Getenv("APP_NAME"),
			Port:            os.Getenv("PORT"),
			Env:             os.Getenv("APP_ENV"),
			Debug:           os.Getenv("DEBUG") == "true",
			DefaultClaimTTL: time.Duration(ttlMinutes) * time.Minute,
			SweepSchedule:   GetEnv("SWEEP_SCHEDULE", "@every 5m"),
			LowStockDefault: lowStock,
		}
	})
}

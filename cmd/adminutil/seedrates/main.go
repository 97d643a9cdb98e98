// Command seedrates loads the built-in exchange-rate table into the
// database, for fresh environments that have not run a live refresh yet.
package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"perfectpay-backend/internal/config"
	"perfectpay-backend/internal/currency"
	"perfectpay-backend/internal/db"
	"perfectpay-backend/internal/logger"
)

func main() {
	_ = godotenv.Load()

	logger.InitDevelopment()
	log := logger.Log
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatal("ensure schema", zap.Error(err))
	}

	if err := currency.SeedFallback(ctx, currency.NewRepo(pool)); err != nil {
		log.Fatal("seed rates", zap.Error(err))
	}
	log.Info("rate table seeded")
}

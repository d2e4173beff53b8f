package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"goreg/adapters/api"
	"goreg/adapters/entropy"
	"goreg/adapters/postgres"
	"goreg/domain/trial"
	"goreg/internal/config"
	"goreg/internal/engine"
	"goreg/internal/logging"
	"goreg/ports"
)

func main() {
	// .env is optional; environment variables win either way
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger := logging.NewFromEnv("regd")

	var ledger ports.TrialLedger
	if cfg.Database.URL != "" {
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()

		if err := postgres.Migrate(context.Background(), db); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
		pgLedger := postgres.NewTrialLedger(db, cfg.Database.BatchSize, logging.NewFromEnv("ledger"))
		defer pgLedger.Close()
		ledger = pgLedger
	} else {
		logger.Warn("DATABASE_URL not set, running without persistence")
	}

	eng, err := engine.New(cfg.Engine, entropy.NewCryptoSource(), ledger, logging.NewFromEnv("engine"))
	if err != nil {
		log.Fatalf("engine construction failed: %v", err)
	}
	defer eng.Destroy()

	if err := eng.StartContinuous("", trial.ModeContinuous, trial.IntentionNone); err != nil {
		log.Fatalf("continuous generation failed to start: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	if cfg.Server.Enabled {
		server := api.NewServer(eng, cfg.Server.Port, logging.NewFromEnv("api"))
		group.Go(func() error {
			return server.Run(ctx)
		})
	}
	group.Go(func() error {
		<-ctx.Done()
		eng.StopContinuous()
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
	logger.Info("stopped")
}

package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/unite-defi/fusion-settlement/internal/api"
	"github.com/unite-defi/fusion-settlement/internal/config"
	"github.com/unite-defi/fusion-settlement/internal/database"
	"github.com/unite-defi/fusion-settlement/internal/ledger"
	"github.com/unite-defi/fusion-settlement/internal/logging"
	"github.com/unite-defi/fusion-settlement/internal/resolver"
	"github.com/unite-defi/fusion-settlement/internal/service"
	"github.com/unite-defi/fusion-settlement/internal/settlement"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := logging.New(cfg.Logging.Level)

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	whitelist := resolver.NewWhitelist()
	engine := settlement.New(ledger.New(), whitelist, settlement.WithRent(cfg.Settlement.EscrowRent))
	svc := service.New(engine, database.NewEscrowRepository(db), whitelist, logger)
	server := api.NewServer(cfg.API, svc, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(ctx); err != nil {
			logger.Error("API server error", "error", err)
		}
	}()

	logger.Info("settlement daemon started")

	<-ctx.Done()
	logger.Info("shutdown signal received")

	wg.Wait()
	logger.Info("settlement daemon stopped")
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fundfolio/tax-lot-engine/internal/api"
	"github.com/fundfolio/tax-lot-engine/internal/config"
	"github.com/fundfolio/tax-lot-engine/internal/database"
	"github.com/fundfolio/tax-lot-engine/internal/marketdata"
	"github.com/fundfolio/tax-lot-engine/internal/outbound"
	"github.com/fundfolio/tax-lot-engine/internal/pricing"
	"github.com/fundfolio/tax-lot-engine/internal/repository"
	"github.com/fundfolio/tax-lot-engine/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Apply embedded migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repositories
	tradeRepo := repository.NewTradeRepository(db)
	lotRepo := repository.NewLotRepository(db)
	gainRepo := repository.NewGainRepository(db)
	rateRepo := repository.NewTaxRateRepository(db)
	fundRepo := repository.NewFundRepository(db)

	// Create services
	systemService := service.NewSystemService(db)
	classifier := service.NewGainClassifier(cfg.Tax.LongTermDays)
	ledgerService := service.NewLedgerService(lotRepo, tradeRepo)
	washSaleService := service.NewWashSaleService(
		db,
		ledgerService,
		tradeRepo,
		lotRepo,
		gainRepo,
		cfg.Tax.WashSaleWindowDays,
	)
	settlementService := service.NewSettlementService(
		db,
		ledgerService,
		tradeRepo,
		gainRepo,
		classifier,
		washSaleService,
	)
	taxService := service.NewTaxService(gainRepo, rateRepo, cfg.Tax.WashSaleWindowDays)

	// Outbound harvest orders are recorded in-process until a transport to
	// the trading collaborator is configured.
	tradeSink := outbound.NewRecordingSink()
	priceSource := pricing.NewRepositorySource(fundRepo)
	harvestService := service.NewHarvestService(
		db,
		lotRepo,
		fundRepo,
		rateRepo,
		priceSource,
		classifier,
		tradeSink,
		cfg.Tax.HarvestTolerancePct,
	)

	priceSyncService := service.NewPriceSyncService(fundRepo, marketdata.NewYahooClient())

	// Periodic jobs: the wash-sale re-scan keeps fragments inside the window
	// current even when no further settlements arrive for a fund; the price
	// sync keeps harvest valuation working off recent closes.
	scheduler, err := service.NewScheduler(cfg.Tax.RescanCron, cfg.Tax.PriceSyncCron, washSaleService, priceSyncService)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(
		systemService,
		ledgerService,
		settlementService,
		taxService,
		harvestService,
		washSaleService,
		cfg,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

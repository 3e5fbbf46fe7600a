package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fundfolio/tax-lot-engine/internal/api/handlers"
	custommiddleware "github.com/fundfolio/tax-lot-engine/internal/api/middleware"
	"github.com/fundfolio/tax-lot-engine/internal/config"
	"github.com/fundfolio/tax-lot-engine/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	ledgerService *service.LedgerService,
	settlementService *service.SettlementService,
	taxService *service.TaxService,
	harvestService *service.HarvestService,
	washSaleService *service.WashSaleService,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		// Trade settlement ingestion: the sole input that mutates the ledger
		r.Route("/trade", func(r chi.Router) {
			tradeHandler := handlers.NewTradeHandler(settlementService)
			r.Post("/settlement", tradeHandler.Settle)
		})

		// Tax lot queries
		r.Route("/lot", func(r chi.Router) {
			lotHandler := handlers.NewLotHandler(ledgerService)
			r.Route("/user/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", lotHandler.UserLots)
			})
		})

		// Realized gains and tax liability
		taxHandler := handlers.NewTaxHandler(taxService)
		r.Route("/gain", func(r chi.Router) {
			r.Route("/user/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", taxHandler.UserGains)
			})
		})
		r.Route("/tax", func(r chi.Router) {
			r.Route("/liability/user/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", taxHandler.UserLiability)
			})
		})

		// Tax-loss harvesting
		r.Route("/harvest", func(r chi.Router) {
			harvestHandler := handlers.NewHarvestHandler(harvestService)
			r.Post("/optimize", harvestHandler.Optimize)
			r.Post("/execute", harvestHandler.Execute)
		})

		// Wash-sale re-evaluation
		r.Route("/washsale", func(r chi.Router) {
			washSaleHandler := handlers.NewWashSaleHandler(washSaleService)
			r.Post("/rescan", washSaleHandler.Rescan)
		})
	})

	return r
}

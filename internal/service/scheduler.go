package service

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the engine's periodic jobs: the wash-sale re-scan, which
// corrects loss fragments still inside their window even when no further
// settlements arrive for a fund, and the market-data price sync keeping the
// local fund_price table current for harvest valuation.
type Scheduler struct {
	cron      *cron.Cron
	washSale  *WashSaleService
	priceSync *PriceSyncService
}

// NewScheduler creates a scheduler running the wash-sale re-scan and the
// price sync on their respective cron expressions.
func NewScheduler(rescanSpec, priceSyncSpec string, washSale *WashSaleService, priceSync *PriceSyncService) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(),
		washSale:  washSale,
		priceSync: priceSync,
	}

	if _, err := s.cron.AddFunc(rescanSpec, s.runRescan); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(priceSyncSpec, s.runPriceSync); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runRescan() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	n, err := s.washSale.Rescan(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("wash-sale rescan failed: %v", err)
		return
	}

	log.Printf("wash-sale rescan complete: %d fragment(s) newly disallowed", n)
}

func (s *Scheduler) runPriceSync() {
	n, err := s.priceSync.SyncAll()
	if err != nil {
		log.Printf("price sync failed: %v", err)
		return
	}

	log.Printf("price sync complete: %d fund(s) updated", n)
}

package service

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/fundfolio/tax-lot-engine/internal/marketdata"
	"github.com/fundfolio/tax-lot-engine/internal/model"
	"github.com/fundfolio/tax-lot-engine/internal/repository"
)

// PriceSyncService refreshes the local fund_price table from the market-data
// client. Harvest valuation reads only local prices, so a stale table degrades
// recommendations but never blocks settlement processing.
type PriceSyncService struct {
	fundRepo *repository.FundRepository
	client   marketdata.Client
}

// NewPriceSyncService creates a new PriceSyncService with the provided dependencies.
func NewPriceSyncService(fundRepo *repository.FundRepository, client marketdata.Client) *PriceSyncService {
	return &PriceSyncService{
		fundRepo: fundRepo,
		client:   client,
	}
}

// SyncAll refreshes recent closes for every active tradeable fund with a
// symbol. A failing symbol is logged and skipped; one bad ticker must not
// starve the rest of the catalog. Returns the number of funds updated.
func (s *PriceSyncService) SyncAll() (int, error) {
	funds, err := s.fundRepo.ListSyncableFunds()
	if err != nil {
		return 0, fmt.Errorf("failed to list funds for price sync: %w", err)
	}

	updated := 0
	for _, fund := range funds {
		if err := s.syncFund(fund); err != nil {
			log.Printf("Price sync failed for fund %s (%s): %v", fund.ID, fund.Symbol, err)
			continue
		}
		updated++
	}

	return updated, nil
}

func (s *PriceSyncService) syncFund(fund model.Fund) error {
	closes, err := s.client.RecentCloses(fund.Symbol)
	if err != nil {
		return err
	}

	for _, c := range closes {
		if !c.Close.IsPositive() {
			continue
		}
		price := model.FundPrice{
			ID:     uuid.New().String(),
			FundID: fund.ID,
			Date:   c.Date,
			Price:  c.Close,
		}
		if err := s.fundRepo.UpsertPrice(&price); err != nil {
			return err
		}
	}

	return nil
}

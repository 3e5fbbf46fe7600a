// Package pricing defines the price-lookup collaborator interface used to
// value open lots. Market-data ingestion itself lives outside this service;
// the default implementation reads the locally synced fund_price table.
package pricing

import (
	"fmt"
	"time"

	"github.com/fundfolio/tax-lot-engine/internal/repository"
	"github.com/shopspring/decimal"
)

// PriceSource resolves the price per share of a fund on a given date.
type PriceSource interface {
	GetPrice(fundID string, date time.Time) (decimal.Decimal, error)
}

// RepositorySource is a PriceSource backed by the fund_price table.
type RepositorySource struct {
	fundRepo *repository.FundRepository
}

// NewRepositorySource creates a PriceSource reading from the fund repository.
func NewRepositorySource(fundRepo *repository.FundRepository) *RepositorySource {
	return &RepositorySource{fundRepo: fundRepo}
}

// GetPrice returns the most recent price on or before the given date.
func (s *RepositorySource) GetPrice(fundID string, date time.Time) (decimal.Decimal, error) {
	price, err := s.fundRepo.GetPrice(fundID, date)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return price.Price, nil
}

var _ PriceSource = (*RepositorySource)(nil)

// StaticSource is a PriceSource over a fixed fundID -> price map, used by
// tests and offline analysis runs.
type StaticSource struct {
	Prices map[string]decimal.Decimal
}

// NewStaticSource creates an empty StaticSource.
func NewStaticSource() *StaticSource {
	return &StaticSource{Prices: make(map[string]decimal.Decimal)}
}

// SetPrice assigns the price returned for a fund.
func (s *StaticSource) SetPrice(fundID string, price decimal.Decimal) {
	s.Prices[fundID] = price
}

// GetPrice returns the configured price for the fund regardless of date.
func (s *StaticSource) GetPrice(fundID string, _ time.Time) (decimal.Decimal, error) {
	price, ok := s.Prices[fundID]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no price configured for fund %s", fundID)
	}
	return price, nil
}

var _ PriceSource = (*StaticSource)(nil)

package testutil

import (
	"database/sql"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fundfolio/tax-lot-engine/internal/outbound"
	"github.com/fundfolio/tax-lot-engine/internal/pricing"
	"github.com/fundfolio/tax-lot-engine/internal/repository"
	"github.com/fundfolio/tax-lot-engine/internal/service"
)

// Default tax policy values used by the test service constructors. Tests
// that exercise policy boundaries construct services directly instead.
const (
	TestLongTermDays       = 365
	TestWashSaleWindowDays = 30
	TestHarvestTolerance   = 10
)

func NewTestLedgerService(t *testing.T, db *sql.DB) *service.LedgerService {
	t.Helper()

	lotRepo := repository.NewLotRepository(db)
	tradeRepo := repository.NewTradeRepository(db)

	return service.NewLedgerService(lotRepo, tradeRepo)
}

func NewTestWashSaleService(t *testing.T, db *sql.DB) *service.WashSaleService {
	t.Helper()

	return service.NewWashSaleService(
		db,
		NewTestLedgerService(t, db),
		repository.NewTradeRepository(db),
		repository.NewLotRepository(db),
		repository.NewGainRepository(db),
		TestWashSaleWindowDays,
	)
}

func NewTestSettlementService(t *testing.T, db *sql.DB) *service.SettlementService {
	t.Helper()

	ledger := NewTestLedgerService(t, db)
	tradeRepo := repository.NewTradeRepository(db)
	lotRepo := repository.NewLotRepository(db)
	gainRepo := repository.NewGainRepository(db)
	classifier := service.NewGainClassifier(TestLongTermDays)
	washSale := service.NewWashSaleService(db, ledger, tradeRepo, lotRepo, gainRepo, TestWashSaleWindowDays)

	return service.NewSettlementService(
		db,
		ledger,
		tradeRepo,
		gainRepo,
		classifier,
		washSale,
	)
}

func NewTestTaxService(t *testing.T, db *sql.DB) *service.TaxService {
	t.Helper()

	return service.NewTaxService(
		repository.NewGainRepository(db),
		repository.NewTaxRateRepository(db),
		TestWashSaleWindowDays,
	)
}

// NewTestHarvestService creates a HarvestService with a static price source
// and a recording sink, both returned so tests can seed prices and inspect
// submitted trade requests.
func NewTestHarvestService(t *testing.T, db *sql.DB) (*service.HarvestService, *pricing.StaticSource, *outbound.RecordingSink) {
	t.Helper()

	prices := pricing.NewStaticSource()
	sink := outbound.NewRecordingSink()

	svc := service.NewHarvestService(
		db,
		repository.NewLotRepository(db),
		repository.NewFundRepository(db),
		repository.NewTaxRateRepository(db),
		prices,
		service.NewGainClassifier(TestLongTermDays),
		sink,
		TestHarvestTolerance,
	)

	return svc, prices, sink
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeISIN generates a realistic ISIN code for testing.
//
// Example usage:
//
//	isin := testutil.MakeISIN("US")
//	// Returns: "US1A2B3C4D5E"
func MakeISIN(prefix string) string {
	if prefix == "" {
		prefix = "US"
	}
	return prefix + randomAlphanumeric(10)
}

// MakeSymbol generates a ticker symbol for testing.
//
// Example usage:
//
//	symbol := testutil.MakeSymbol("VTI")
//	// Returns: "VTI1A2B"
func MakeSymbol(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + randomAlphanumeric(4)
}

// MakeFundName generates a unique fund name for testing.
//
// Example usage:
//
//	name := testutil.MakeFundName("Tech Fund")
//	// Returns: "Tech Fund XYZ789"
func MakeFundName(base string) string {
	if base == "" {
		base = "Fund"
	}
	return base + " " + randomAlphanumeric(6)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}

// Days returns a YYYY-MM-DD date string offset by n days from a base date
// string. Negative offsets go backwards.
//
// Example usage:
//
//	testutil.Days("2024-01-01", 10) // "2024-01-11"
func Days(base string, n int) string {
	d, err := time.Parse("2006-01-02", base)
	if err != nil {
		panic(err)
	}
	return d.AddDate(0, 0, n).Format("2006-01-02")
}

// AssertDecimalEqual asserts that two decimals are numerically equal.
// Decimal equality ignores representation, so "200" equals "200.00".
func AssertDecimalEqual(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()

	want, err := decimal.NewFromString(expected)
	if err != nil {
		t.Fatalf("Failed to parse expected decimal %q: %v", expected, err)
	}
	if !actual.Equal(want) {
		t.Errorf("Expected %s, got %s", want.String(), actual.String())
	}
}

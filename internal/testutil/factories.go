package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fundfolio/tax-lot-engine/internal/model"
)

// FundBuilder provides a fluent interface for creating test funds.
//
// Example usage:
//
//	// Simple creation with defaults
//	fund := testutil.NewFund().Build(t, db)
//
//	// Customized fund
//	fund := testutil.NewFund().
//	    WithCategory("large-cap-equity").
//	    WithAum("5000000000").
//	    NotTradeable().
//	    Build(t, db)
type FundBuilder struct {
	ID          string
	Name        string
	Isin        string
	Symbol      string
	Currency    string
	Category    string
	Aum         string
	IsActive    bool
	IsTradeable bool
}

// NewFund creates a FundBuilder with sensible defaults.
func NewFund() *FundBuilder {
	return &FundBuilder{
		ID:          MakeID(),
		Name:        MakeFundName("Test Fund"),
		Isin:        MakeISIN("US"),
		Symbol:      MakeSymbol("TST"),
		Currency:    "USD",
		Category:    "large-cap-equity",
		Aum:         "1000000000",
		IsActive:    true,
		IsTradeable: true,
	}
}

// WithID sets a custom ID.
func (b *FundBuilder) WithID(id string) *FundBuilder {
	b.ID = id
	return b
}

// WithName sets a custom name.
func (b *FundBuilder) WithName(name string) *FundBuilder {
	b.Name = name
	return b
}

// WithSymbol sets a custom ticker symbol.
func (b *FundBuilder) WithSymbol(symbol string) *FundBuilder {
	b.Symbol = symbol
	return b
}

// WithCategory sets the fund category used for replacement selection.
func (b *FundBuilder) WithCategory(category string) *FundBuilder {
	b.Category = category
	return b
}

// WithAum sets the assets under management as a decimal string.
func (b *FundBuilder) WithAum(aum string) *FundBuilder {
	b.Aum = aum
	return b
}

// Inactive marks the fund inactive.
func (b *FundBuilder) Inactive() *FundBuilder {
	b.IsActive = false
	return b
}

// NotTradeable marks the fund not tradeable.
func (b *FundBuilder) NotTradeable() *FundBuilder {
	b.IsTradeable = false
	return b
}

// Build inserts the fund into the database and returns the model.
func (b *FundBuilder) Build(t *testing.T, db *sql.DB) model.Fund {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO fund (id, name, isin, symbol, currency, category, aum, is_active, is_tradeable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Isin, b.Symbol, b.Currency, b.Category, b.Aum, b.IsActive, b.IsTradeable,
	)
	if err != nil {
		t.Fatalf("Failed to insert test fund: %v", err)
	}

	return model.Fund{
		ID:          b.ID,
		Name:        b.Name,
		Isin:        b.Isin,
		Symbol:      b.Symbol,
		Currency:    b.Currency,
		Category:    b.Category,
		Aum:         mustDecimal(t, b.Aum),
		IsActive:    b.IsActive,
		IsTradeable: b.IsTradeable,
	}
}

// FundPriceBuilder provides a fluent interface for creating test fund prices.
//
// Example usage:
//
//	testutil.NewFundPrice(fund.ID).
//	    OnDate("2024-03-01").
//	    WithPrice("8.50").
//	    Build(t, db)
type FundPriceBuilder struct {
	ID     string
	FundID string
	Date   string
	Price  string
}

// NewFundPrice creates a FundPriceBuilder with sensible defaults.
func NewFundPrice(fundID string) *FundPriceBuilder {
	return &FundPriceBuilder{
		ID:     MakeID(),
		FundID: fundID,
		Date:   time.Now().UTC().Format("2006-01-02"),
		Price:  "10",
	}
}

// OnDate sets the price date (YYYY-MM-DD).
func (b *FundPriceBuilder) OnDate(date string) *FundPriceBuilder {
	b.Date = date
	return b
}

// WithPrice sets the price as a decimal string.
func (b *FundPriceBuilder) WithPrice(price string) *FundPriceBuilder {
	b.Price = price
	return b
}

// Build inserts the fund price into the database and returns the model.
func (b *FundPriceBuilder) Build(t *testing.T, db *sql.DB) model.FundPrice {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO fund_price (id, fund_id, date, price)
		VALUES (?, ?, ?, ?)`,
		b.ID, b.FundID, b.Date, b.Price,
	)
	if err != nil {
		t.Fatalf("Failed to insert test fund price: %v", err)
	}

	return model.FundPrice{
		ID:     b.ID,
		FundID: b.FundID,
		Date:   mustDate(t, b.Date),
		Price:  mustDecimal(t, b.Price),
	}
}

// TradeBuilder provides a fluent interface for creating test trades.
// The builder inserts directly with an explicit sequence, bypassing the
// settlement path, for tests that need raw trade history.
//
// Example usage:
//
//	trade := testutil.NewTrade(userID, fund.ID).
//	    Sell().
//	    WithShares("100").
//	    WithPrice("8").
//	    OnDate("2024-02-10").
//	    WithSeq(2).
//	    Build(t, db)
type TradeBuilder struct {
	ID             string
	Seq            int64
	UserID         string
	FundID         string
	Side           string
	Shares         string
	PricePerShare  string
	TradeDate      string
	SettlementDate string
}

// NewTrade creates a TradeBuilder with sensible defaults (a BUY of 100
// shares at 10, settling on the trade date).
func NewTrade(userID, fundID string) *TradeBuilder {
	date := time.Now().UTC().Format("2006-01-02")
	return &TradeBuilder{
		ID:             MakeID(),
		Seq:            1,
		UserID:         userID,
		FundID:         fundID,
		Side:           model.TradeSideBuy,
		Shares:         "100",
		PricePerShare:  "10",
		TradeDate:      date,
		SettlementDate: date,
	}
}

// WithID sets a custom ID.
func (b *TradeBuilder) WithID(id string) *TradeBuilder {
	b.ID = id
	return b
}

// WithSeq sets the monotonic trade sequence.
func (b *TradeBuilder) WithSeq(seq int64) *TradeBuilder {
	b.Seq = seq
	return b
}

// Buy marks the trade as a BUY.
func (b *TradeBuilder) Buy() *TradeBuilder {
	b.Side = model.TradeSideBuy
	return b
}

// Sell marks the trade as a SELL.
func (b *TradeBuilder) Sell() *TradeBuilder {
	b.Side = model.TradeSideSell
	return b
}

// WithShares sets the share count as a decimal string.
func (b *TradeBuilder) WithShares(shares string) *TradeBuilder {
	b.Shares = shares
	return b
}

// WithPrice sets the per-share price as a decimal string.
func (b *TradeBuilder) WithPrice(price string) *TradeBuilder {
	b.PricePerShare = price
	return b
}

// OnDate sets both the trade and settlement dates (YYYY-MM-DD).
func (b *TradeBuilder) OnDate(date string) *TradeBuilder {
	b.TradeDate = date
	b.SettlementDate = date
	return b
}

// SettledOn sets the settlement date only (YYYY-MM-DD).
func (b *TradeBuilder) SettledOn(date string) *TradeBuilder {
	b.SettlementDate = date
	return b
}

// Build inserts the trade into the database and returns the model.
func (b *TradeBuilder) Build(t *testing.T, db *sql.DB) model.Trade {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO trade (id, seq, user_id, fund_id, side, shares, price_per_share, trade_date, settlement_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Seq, b.UserID, b.FundID, b.Side, b.Shares, b.PricePerShare, b.TradeDate, b.SettlementDate,
	)
	if err != nil {
		t.Fatalf("Failed to insert test trade: %v", err)
	}

	return model.Trade{
		ID:             b.ID,
		Seq:            b.Seq,
		UserID:         b.UserID,
		FundID:         b.FundID,
		Side:           b.Side,
		Shares:         mustDecimal(t, b.Shares),
		PricePerShare:  mustDecimal(t, b.PricePerShare),
		TradeDate:      mustDate(t, b.TradeDate),
		SettlementDate: mustDate(t, b.SettlementDate),
	}
}

// LotBuilder provides a fluent interface for creating test tax lots.
//
// Example usage:
//
//	lot := testutil.NewLot(userID, fund.ID, buyTrade).
//	    WithShares("100").
//	    WithBasis("10").
//	    Build(t, db)
type LotBuilder struct {
	ID                string
	UserID            string
	FundID            string
	BuyTradeID        string
	BuyTradeSeq       int64
	Shares            string
	CostBasisPerShare string
	AcquisitionDate   string
	Status            string
}

// NewLot creates a LotBuilder from an existing buy trade, defaulting the
// lot to the trade's full shares at its price.
func NewLot(userID, fundID string, buyTrade model.Trade) *LotBuilder {
	return &LotBuilder{
		ID:                MakeID(),
		UserID:            userID,
		FundID:            fundID,
		BuyTradeID:        buyTrade.ID,
		BuyTradeSeq:       buyTrade.Seq,
		Shares:            buyTrade.Shares.String(),
		CostBasisPerShare: buyTrade.PricePerShare.String(),
		AcquisitionDate:   buyTrade.TradeDate.Format("2006-01-02"),
		Status:            model.LotStatusOpen,
	}
}

// WithID sets a custom ID.
func (b *LotBuilder) WithID(id string) *LotBuilder {
	b.ID = id
	return b
}

// WithShares sets the open share count as a decimal string.
func (b *LotBuilder) WithShares(shares string) *LotBuilder {
	b.Shares = shares
	return b
}

// WithBasis sets the cost basis per share as a decimal string.
func (b *LotBuilder) WithBasis(basis string) *LotBuilder {
	b.CostBasisPerShare = basis
	return b
}

// AcquiredOn sets the acquisition date (YYYY-MM-DD).
func (b *LotBuilder) AcquiredOn(date string) *LotBuilder {
	b.AcquisitionDate = date
	return b
}

// Closed marks the lot fully consumed.
func (b *LotBuilder) Closed() *LotBuilder {
	b.Status = model.LotStatusClosed
	b.Shares = "0"
	return b
}

// Build inserts the lot into the database and returns the model.
func (b *LotBuilder) Build(t *testing.T, db *sql.DB) model.TaxLot {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO tax_lot (id, user_id, fund_id, buy_trade_id, buy_trade_seq, shares, cost_basis_per_share, acquisition_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.FundID, b.BuyTradeID, b.BuyTradeSeq, b.Shares, b.CostBasisPerShare, b.AcquisitionDate, b.Status,
	)
	if err != nil {
		t.Fatalf("Failed to insert test tax lot: %v", err)
	}

	return model.TaxLot{
		ID:                b.ID,
		UserID:            b.UserID,
		FundID:            b.FundID,
		BuyTradeID:        b.BuyTradeID,
		BuyTradeSeq:       b.BuyTradeSeq,
		Shares:            mustDecimal(t, b.Shares),
		CostBasisPerShare: mustDecimal(t, b.CostBasisPerShare),
		AcquisitionDate:   mustDate(t, b.AcquisitionDate),
		Status:            b.Status,
	}
}

// GainBuilder provides a fluent interface for creating test realized gains.
//
// Example usage:
//
//	gain := testutil.NewGain(userID, fund.ID, lot.ID, sellTrade.ID).
//	    WithGain("-200").
//	    SoldOn("2024-02-10").
//	    Build(t, db)
type GainBuilder struct {
	ID                string
	UserID            string
	FundID            string
	LotID             string
	SellTradeID       string
	SaleDate          string
	Shares            string
	Proceeds          string
	CostBasis         string
	Gain              string
	HoldingPeriodDays int
	Classification    string
}

// NewGain creates a GainBuilder with sensible defaults (a short-term gain
// of 200 on 100 shares).
func NewGain(userID, fundID, lotID, sellTradeID string) *GainBuilder {
	return &GainBuilder{
		ID:                MakeID(),
		UserID:            userID,
		FundID:            fundID,
		LotID:             lotID,
		SellTradeID:       sellTradeID,
		SaleDate:          time.Now().UTC().Format("2006-01-02"),
		Shares:            "100",
		Proceeds:          "1200",
		CostBasis:         "1000",
		Gain:              "200",
		HoldingPeriodDays: 30,
		Classification:    model.ClassificationShortTerm,
	}
}

// WithID sets a custom ID.
func (b *GainBuilder) WithID(id string) *GainBuilder {
	b.ID = id
	return b
}

// WithShares sets the fragment share count as a decimal string.
func (b *GainBuilder) WithShares(shares string) *GainBuilder {
	b.Shares = shares
	return b
}

// WithProceeds sets the fragment proceeds as a decimal string.
func (b *GainBuilder) WithProceeds(proceeds string) *GainBuilder {
	b.Proceeds = proceeds
	return b
}

// WithCostBasis sets the fragment cost basis as a decimal string.
func (b *GainBuilder) WithCostBasis(costBasis string) *GainBuilder {
	b.CostBasis = costBasis
	return b
}

// WithGain sets the gain (negative for a loss) as a decimal string.
func (b *GainBuilder) WithGain(gain string) *GainBuilder {
	b.Gain = gain
	return b
}

// SoldOn sets the sale date (YYYY-MM-DD).
func (b *GainBuilder) SoldOn(date string) *GainBuilder {
	b.SaleDate = date
	return b
}

// WithHoldingDays sets the holding period in days.
func (b *GainBuilder) WithHoldingDays(days int) *GainBuilder {
	b.HoldingPeriodDays = days
	return b
}

// LongTerm marks the fragment long-term.
func (b *GainBuilder) LongTerm() *GainBuilder {
	b.Classification = model.ClassificationLongTerm
	return b
}

// Build inserts the realized gain into the database and returns the model.
func (b *GainBuilder) Build(t *testing.T, db *sql.DB) model.RealizedGain {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO realized_gain (id, user_id, fund_id, lot_id, sell_trade_id, sale_date, shares, proceeds, cost_basis, gain, holding_period_days, classification)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.FundID, b.LotID, b.SellTradeID, b.SaleDate, b.Shares, b.Proceeds, b.CostBasis, b.Gain, b.HoldingPeriodDays, b.Classification,
	)
	if err != nil {
		t.Fatalf("Failed to insert test realized gain: %v", err)
	}

	return model.RealizedGain{
		ID:                b.ID,
		UserID:            b.UserID,
		FundID:            b.FundID,
		LotID:             b.LotID,
		SellTradeID:       b.SellTradeID,
		SaleDate:          mustDate(t, b.SaleDate),
		Shares:            mustDecimal(t, b.Shares),
		Proceeds:          mustDecimal(t, b.Proceeds),
		CostBasis:         mustDecimal(t, b.CostBasis),
		Gain:              mustDecimal(t, b.Gain),
		HoldingPeriodDays: b.HoldingPeriodDays,
		Classification:    b.Classification,
		DisallowedAmount:  decimal.Zero,
	}
}

// TaxRateBuilder provides a fluent interface for creating test tax rates.
//
// Example usage:
//
//	testutil.NewTaxRate(model.TaxTypeShortTerm, "0.35").Build(t, db)
type TaxRateBuilder struct {
	ID            string
	TaxType       string
	Rate          string
	EffectiveDate string
}

// NewTaxRate creates a TaxRateBuilder effective far in the past so that it
// applies to any test period.
func NewTaxRate(taxType, rate string) *TaxRateBuilder {
	return &TaxRateBuilder{
		ID:            MakeID(),
		TaxType:       taxType,
		Rate:          rate,
		EffectiveDate: "2000-01-01",
	}
}

// EffectiveFrom sets the effective date (YYYY-MM-DD).
func (b *TaxRateBuilder) EffectiveFrom(date string) *TaxRateBuilder {
	b.EffectiveDate = date
	return b
}

// Build inserts the tax rate into the database and returns the model.
func (b *TaxRateBuilder) Build(t *testing.T, db *sql.DB) model.TaxRate {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO tax_rate (id, tax_type, rate, effective_date)
		VALUES (?, ?, ?, ?)`,
		b.ID, b.TaxType, b.Rate, b.EffectiveDate,
	)
	if err != nil {
		t.Fatalf("Failed to insert test tax rate: %v", err)
	}

	return model.TaxRate{
		ID:            b.ID,
		TaxType:       b.TaxType,
		Rate:          mustDecimal(t, b.Rate),
		EffectiveDate: mustDate(t, b.EffectiveDate),
	}
}

// mustDecimal parses a decimal string, failing the test on error.
func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("Failed to parse decimal %q: %v", s, err)
	}
	return d
}

// mustDate parses a YYYY-MM-DD date string, failing the test on error.
func mustDate(t *testing.T, s string) time.Time {
	t.Helper()

	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("Failed to parse date %q: %v", s, err)
	}
	return d
}

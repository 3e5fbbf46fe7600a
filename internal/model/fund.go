package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fund represents a fund from the database.
// Category and AUM drive replacement-fund selection during harvesting.
type Fund struct {
	ID          string
	Name        string
	Isin        string
	Symbol      string
	Currency    string
	Category    string
	Aum         decimal.Decimal
	IsActive    bool
	IsTradeable bool
}

type FundPrice struct {
	ID     string
	FundID string
	Date   time.Time
	Price  decimal.Decimal
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Gain classification values.
const (
	ClassificationShortTerm = "short_term"
	ClassificationLongTerm  = "long_term"
)

// RealizedGain is the immutable record of one lot fragment consumed by a
// sell trade. One sell produces one fragment per lot it draws from. The only
// field ever updated after creation is the wash-sale disallowance, which may
// be set retroactively up to the wash-sale window after the sale date.
type RealizedGain struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"userId"`
	FundID             string          `json:"fundId"`
	LotID              string          `json:"lotId"`
	SellTradeID        string          `json:"sellTradeId"`
	SaleDate           time.Time       `json:"saleDate"`
	Shares             decimal.Decimal `json:"shares"`
	Proceeds           decimal.Decimal `json:"proceeds"`
	CostBasis          decimal.Decimal `json:"costBasis"`
	Gain               decimal.Decimal `json:"gain"`
	HoldingPeriodDays  int             `json:"holdingPeriodDays"`
	Classification     string          `json:"classification"`
	WashSaleDisallowed bool            `json:"washSaleDisallowed"`
	DisallowedAmount   decimal.Decimal `json:"disallowedAmount"`
	CreatedAt          time.Time       `json:"createdAt,omitempty"`
}

// WashSaleAdjustment links a disallowed loss fragment to the replacement lot
// whose basis absorbed the disallowed amount. One adjustment exists per
// disallowed fragment, which makes re-evaluation idempotent.
type WashSaleAdjustment struct {
	ID               string          `json:"id"`
	RealizedGainID   string          `json:"realizedGainId"`
	ReplacementLotID string          `json:"replacementLotId"`
	Amount           decimal.Decimal `json:"amount"`
	CreatedAt        time.Time       `json:"createdAt,omitempty"`
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot status values.
const (
	LotStatusOpen   = "open"
	LotStatusClosed = "closed"
)

// TaxLot represents a discrete block of shares acquired in one purchase,
// tracked separately for cost-basis purposes. A lot is created exactly once,
// at BUY settlement. Its shares are only ever reduced by sale matching, and
// its cost basis per share is only ever increased by a wash-sale adjustment
// deferring a disallowed loss into it. Lots are never deleted; a fully
// consumed lot flips to closed and records the closing sale.
type TaxLot struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	FundID            string          `json:"fundId"`
	BuyTradeID        string          `json:"buyTradeId"`
	BuyTradeSeq       int64           `json:"buyTradeSeq"`
	Shares            decimal.Decimal `json:"shares"`
	CostBasisPerShare decimal.Decimal `json:"costBasisPerShare"`
	AcquisitionDate   time.Time       `json:"acquisitionDate"`
	Status            string          `json:"status"`
	SellTradeID       string          `json:"sellTradeId,omitempty"`
	SaleDate          *time.Time      `json:"saleDate,omitempty"`
	SalePricePerShare decimal.Decimal `json:"salePricePerShare,omitempty"`
	CreatedAt         time.Time       `json:"createdAt,omitempty"`
}

// CostBasis returns the total remaining cost basis of the lot.
func (l TaxLot) CostBasis() decimal.Decimal {
	return l.Shares.Mul(l.CostBasisPerShare)
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade side values.
const (
	TradeSideBuy  = "BUY"
	TradeSideSell = "SELL"
)

// Trade represents a settled buy or sell trade delivered by the trading
// collaborator. Trades are immutable once settled and are the sole external
// input to the lot ledger. Seq is a monotonic sequence assigned at insert,
// used as the FIFO tie-breaker for lots acquired on the same date.
type Trade struct {
	ID             string          `json:"id"`
	Seq            int64           `json:"seq"`
	UserID         string          `json:"userId"`
	FundID         string          `json:"fundId"`
	Side           string          `json:"side"`
	Shares         decimal.Decimal `json:"shares"`
	PricePerShare  decimal.Decimal `json:"pricePerShare"`
	TradeDate      time.Time       `json:"tradeDate"`
	SettlementDate time.Time       `json:"settlementDate"`
	CreatedAt      time.Time       `json:"createdAt,omitempty"`
}

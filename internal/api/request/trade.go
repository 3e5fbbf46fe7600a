package request

// SettleTradeRequest is the trade settlement event delivered by the trading
// collaborator, once per settled trade. Shares and price travel as decimal
// strings so no precision is lost in transport.
type SettleTradeRequest struct {
	TradeID        string `json:"tradeId"`
	UserID         string `json:"userId"`
	FundID         string `json:"fundId"`
	Side           string `json:"side"`
	Shares         string `json:"shares"`
	PricePerShare  string `json:"pricePerShare"`
	TradeDate      string `json:"tradeDate"`
	SettlementDate string `json:"settlementDate"`
}

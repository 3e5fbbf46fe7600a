// Package outbound defines the explicit interfaces through which the engine
// hands work to external collaborators. Side effects flow through these
// return-value style sinks rather than implicit event emitters, so control
// flow stays traceable.
package outbound

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Trade request sides, matching trade sides.
const (
	RequestSideBuy  = "BUY"
	RequestSideSell = "SELL"
)

// TradeRequest is an order forwarded to the trading collaborator. The engine
// never executes trades itself; harvest execution produces these and the
// collaborator settles them back through the settlement endpoint.
type TradeRequest struct {
	UserID      string          `json:"userId"`
	FundID      string          `json:"fundId"`
	Side        string          `json:"side"`
	Shares      decimal.Decimal `json:"shares"`
	LotID       string          `json:"lotId,omitempty"`
	Reason      string          `json:"reason"`
	RequestedAt time.Time       `json:"requestedAt"`
}

// TradeRequestSink receives outbound trade requests.
type TradeRequestSink interface {
	Submit(requests []TradeRequest) error
}

// RecordingSink is an in-process TradeRequestSink that retains submitted
// requests. Used in tests and as the default wiring until a transport to the
// trading collaborator is configured.
type RecordingSink struct {
	mu       sync.Mutex
	requests []TradeRequest
}

// NewRecordingSink creates an empty RecordingSink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// Submit appends the requests to the sink's record.
func (s *RecordingSink) Submit(requests []TradeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, requests...)
	return nil
}

// Requests returns a copy of everything submitted so far.
func (s *RecordingSink) Requests() []TradeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TradeRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

var _ TradeRequestSink = (*RecordingSink)(nil)

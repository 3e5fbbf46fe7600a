package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fundfolio/tax-lot-engine/internal/api/request"
	"github.com/fundfolio/tax-lot-engine/internal/api/response"
	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/model"
	"github.com/fundfolio/tax-lot-engine/internal/service"
	"github.com/fundfolio/tax-lot-engine/internal/validation"
	"github.com/shopspring/decimal"
)

// TradeHandler handles HTTP requests for trade settlement.
// It serves as the HTTP layer adapter, parsing settlement events and
// delegating ledger work to the settlementService.
type TradeHandler struct {
	settlementService *service.SettlementService
}

// NewTradeHandler creates a new TradeHandler with the provided service dependency.
func NewTradeHandler(settlementService *service.SettlementService) *TradeHandler {
	return &TradeHandler{
		settlementService: settlementService,
	}
}

// SettlementResponse reports the outcome of processing one settlement event.
type SettlementResponse struct {
	TradeID       string               `json:"tradeId"`
	Side          string               `json:"side"`
	RealizedGains []model.RealizedGain `json:"realizedGains"`
}

// Settle handles POST requests delivering a settled trade event.
// A BUY opens a new tax lot; a SELL is matched FIFO against open lots and
// returns the realized gain fragments it produced.
//
// Endpoint: POST /api/trade/settlement
// Request Body: SettleTradeRequest
// Response: 201 Created with SettlementResponse
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 409 Conflict if the trade was already settled
// Error: 422 Unprocessable Entity if open shares are insufficient for a sell
// Error: 500 Internal Server Error if settlement fails
func (h *TradeHandler) Settle(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.SettleTradeRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateSettleTrade(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	trade, err := tradeFromRequest(req)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	fragments, err := h.settlementService.ProcessSettlement(r.Context(), trade)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrDuplicateTrade):
			response.RespondError(w, http.StatusConflict, apperrors.ErrDuplicateTrade.Error(), err.Error())
		case errors.Is(err, apperrors.ErrInsufficientShares):
			response.RespondError(w, http.StatusUnprocessableEntity, apperrors.ErrInsufficientShares.Error(), err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToSettleTrade.Error(), err.Error())
		}
		return
	}

	if fragments == nil {
		fragments = []model.RealizedGain{}
	}

	respondJSON(w, http.StatusCreated, SettlementResponse{
		TradeID:       trade.ID,
		Side:          trade.Side,
		RealizedGains: fragments,
	})
}

// tradeFromRequest converts a validated settlement event into the domain trade.
func tradeFromRequest(req request.SettleTradeRequest) (*model.Trade, error) {
	shares, err := decimal.NewFromString(req.Shares)
	if err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(req.PricePerShare)
	if err != nil {
		return nil, err
	}
	tradeDate, err := time.Parse("2006-01-02", req.TradeDate)
	if err != nil {
		return nil, err
	}
	settlementDate, err := time.Parse("2006-01-02", req.SettlementDate)
	if err != nil {
		return nil, err
	}

	return &model.Trade{
		ID:             req.TradeID,
		UserID:         req.UserID,
		FundID:         req.FundID,
		Side:           strings.ToUpper(strings.TrimSpace(req.Side)),
		Shares:         shares,
		PricePerShare:  price,
		TradeDate:      tradeDate,
		SettlementDate: settlementDate,
	}, nil
}

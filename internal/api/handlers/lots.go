package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fundfolio/tax-lot-engine/internal/api/response"
	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/model"
	"github.com/fundfolio/tax-lot-engine/internal/service"
)

// LotHandler handles HTTP requests for tax lot queries.
type LotHandler struct {
	ledgerService *service.LedgerService
}

// NewLotHandler creates a new LotHandler with the provided service dependency.
func NewLotHandler(ledgerService *service.LedgerService) *LotHandler {
	return &LotHandler{
		ledgerService: ledgerService,
	}
}

// UserLots handles GET requests to retrieve a user's tax lots in ledger
// order, optionally filtered to a single fund.
//
// Endpoint: GET /api/lot/user/{uuid}?fundId={uuid}
// Response: 200 OK with array of tax lots
// Error: 400 Bad Request if the user ID is not a valid UUID
// Error: 500 Internal Server Error if retrieval fails
func (h *LotHandler) UserLots(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "uuid")
	fundID := r.URL.Query().Get("fundId")

	lots, err := h.ledgerService.GetTaxLots(userID, fundID)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveLots.Error(), err.Error())
		return
	}

	if lots == nil {
		lots = []model.TaxLot{}
	}
	respondJSON(w, http.StatusOK, lots)
}

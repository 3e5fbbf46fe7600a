package handlers

import (
	"net/http"
	"time"

	"github.com/fundfolio/tax-lot-engine/internal/api/response"
	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/service"
)

// WashSaleHandler handles HTTP requests for wash-sale re-evaluation.
type WashSaleHandler struct {
	washSaleService *service.WashSaleService
}

// NewWashSaleHandler creates a new WashSaleHandler with the provided service dependency.
func NewWashSaleHandler(washSaleService *service.WashSaleService) *WashSaleHandler {
	return &WashSaleHandler{
		washSaleService: washSaleService,
	}
}

// RescanResponse reports the outcome of a wash-sale re-scan.
type RescanResponse struct {
	AsOf       string `json:"asOf"`
	Disallowed int    `json:"disallowed"`
}

// Rescan handles POST requests to re-evaluate loss fragments still inside
// the wash-sale window. The evaluation is idempotent; running it twice on
// an unchanged ledger flags nothing new. The same scan runs on the cron
// schedule, this endpoint exists for on-demand runs.
//
// Endpoint: POST /api/washsale/rescan
// Response: 200 OK with RescanResponse
// Error: 500 Internal Server Error if the re-scan fails
func (h *WashSaleHandler) Rescan(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now().UTC()

	disallowed, err := h.washSaleService.Rescan(r.Context(), asOf)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRescanWashSales.Error(), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, RescanResponse{
		AsOf:       asOf.Format("2006-01-02"),
		Disallowed: disallowed,
	})
}

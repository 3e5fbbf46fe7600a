package handlers

import (
	"errors"
	"net/http"

	"github.com/fundfolio/tax-lot-engine/internal/api/request"
	"github.com/fundfolio/tax-lot-engine/internal/api/response"
	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/outbound"
	"github.com/fundfolio/tax-lot-engine/internal/service"
	"github.com/fundfolio/tax-lot-engine/internal/validation"
	"github.com/shopspring/decimal"
)

// HarvestHandler handles HTTP requests for tax-loss harvesting.
type HarvestHandler struct {
	harvestService *service.HarvestService
}

// NewHarvestHandler creates a new HarvestHandler with the provided service dependency.
func NewHarvestHandler(harvestService *service.HarvestService) *HarvestHandler {
	return &HarvestHandler{
		harvestService: harvestService,
	}
}

// ExecuteResponse reports the outbound trade requests produced by executing
// a harvest recommendation.
type ExecuteResponse struct {
	UserID        string                  `json:"userId"`
	TradeRequests []outbound.TradeRequest `json:"tradeRequests"`
}

// Optimize handles POST requests to compute a harvest recommendation. The
// recommendation is a snapshot: it is not persisted and must be passed back
// verbatim to the execute endpoint.
//
// Endpoint: POST /api/harvest/optimize
// Request Body: OptimizeHarvestRequest
// Response: 200 OK with HarvestRecommendation
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 422 Unprocessable Entity if no tax rate is configured
// Error: 500 Internal Server Error if optimization fails
func (h *HarvestHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.OptimizeHarvestRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateOptimizeHarvest(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	targetLoss, err := decimal.NewFromString(req.TargetLoss)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	rec, err := h.harvestService.Optimize(r.Context(), req.UserID, targetLoss, req.FundID)
	if err != nil {
		if errors.Is(err, apperrors.ErrRateTableMissing) {
			response.RespondError(w, http.StatusUnprocessableEntity, apperrors.ErrRateTableMissing.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToOptimizeHarvest.Error(), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// Execute handles POST requests to execute a previously computed harvest
// recommendation. Selected lots are re-validated against the live ledger;
// any drift since the snapshot aborts the whole execution.
//
// Endpoint: POST /api/harvest/execute
// Request Body: ExecuteHarvestRequest
// Response: 200 OK with ExecuteResponse
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 409 Conflict if the ledger changed since the recommendation
// Error: 500 Internal Server Error if execution fails
func (h *HarvestHandler) Execute(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.ExecuteHarvestRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateExecuteHarvest(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	requests, err := h.harvestService.Execute(r.Context(), req.UserID, &req.Recommendation)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrStaleLedger):
			response.RespondError(w, http.StatusConflict, apperrors.ErrStaleLedger.Error(), err.Error())
		case errors.Is(err, apperrors.ErrLotNotFound):
			response.RespondError(w, http.StatusConflict, apperrors.ErrStaleLedger.Error(), err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToExecuteHarvest.Error(), err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, ExecuteResponse{
		UserID:        req.UserID,
		TradeRequests: requests,
	})
}

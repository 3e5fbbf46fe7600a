package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fundfolio/tax-lot-engine/internal/api/response"
	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/service"
)

// TaxHandler handles HTTP requests for realized gains and tax liability.
type TaxHandler struct {
	taxService *service.TaxService
}

// NewTaxHandler creates a new TaxHandler with the provided service dependency.
func NewTaxHandler(taxService *service.TaxService) *TaxHandler {
	return &TaxHandler{
		taxService: taxService,
	}
}

// periodFromQuery reads start/end query parameters, defaulting to the
// current calendar year when absent.
func periodFromQuery(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)

	if v := r.URL.Query().Get("start"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed
	}
	if v := r.URL.Query().Get("end"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = parsed
	}
	return start, end, nil
}

// UserGains handles GET requests to retrieve a user's realized gain records.
//
// Endpoint: GET /api/gain/user/{uuid}?start=YYYY-MM-DD&end=YYYY-MM-DD
// Response: 200 OK with array of realized gains
// Error: 400 Bad Request if dates are malformed or the range is inverted
// Error: 500 Internal Server Error if retrieval fails
func (h *TaxHandler) UserGains(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "uuid")

	start, end, err := periodFromQuery(r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD", err.Error())
		return
	}

	gains, err := h.taxService.ListGains(userID, start, end)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidDateRange) {
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidDateRange.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveGains.Error(), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, gains)
}

// UserLiability handles GET requests to compute a user's tax liability for
// a period. Short- and long-term results net within their own buckets;
// only positive net buckets are taxed.
//
// Endpoint: GET /api/tax/liability/user/{uuid}?start=YYYY-MM-DD&end=YYYY-MM-DD
// Response: 200 OK with tax liability report
// Error: 400 Bad Request if dates are malformed or the range is inverted
// Error: 422 Unprocessable Entity if no tax rate is configured for the period
// Error: 500 Internal Server Error if calculation fails
func (h *TaxHandler) UserLiability(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "uuid")

	start, end, err := periodFromQuery(r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD", err.Error())
		return
	}

	liability, err := h.taxService.CalculateLiability(userID, start, end)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidDateRange):
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidDateRange.Error(), err.Error())
		case errors.Is(err, apperrors.ErrRateTableMissing):
			response.RespondError(w, http.StatusUnprocessableEntity, apperrors.ErrRateTableMissing.Error(), err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToCalculateTax.Error(), err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, liability)
}

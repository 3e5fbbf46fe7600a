package validation

import (
	"github.com/fundfolio/tax-lot-engine/internal/api/request"
)

// ValidateOptimizeHarvest validates a harvest optimization request.
//
// Required fields:
//   - userId: Must be a valid UUID
//   - targetLoss: Must be a positive decimal string
//   - fundId: Must be a valid UUID if provided
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateOptimizeHarvest(req request.OptimizeHarvestRequest) error {
	errors := make(map[string]string)

	if err := ValidateUUID(req.UserID); err != nil {
		errors["userId"] = err.Error()
	}

	validatePositiveDecimal(errors, "targetLoss", req.TargetLoss)

	if req.FundID != "" {
		if err := ValidateUUID(req.FundID); err != nil {
			errors["fundId"] = err.Error()
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ValidateExecuteHarvest validates a harvest execution request.
//
// Required fields:
//   - userId: Must be a valid UUID and match the recommendation's user
//   - recommendation: Must contain at least one selected lot
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateExecuteHarvest(req request.ExecuteHarvestRequest) error {
	errors := make(map[string]string)

	if err := ValidateUUID(req.UserID); err != nil {
		errors["userId"] = err.Error()
	}

	if len(req.Recommendation.SelectedLots) == 0 {
		errors["recommendation"] = "recommendation has no selected lots"
	}

	if req.Recommendation.UserID != req.UserID {
		errors["recommendation"] = "recommendation belongs to a different user"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

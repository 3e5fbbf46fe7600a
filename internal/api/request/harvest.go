package request

import "github.com/fundfolio/tax-lot-engine/internal/model"

// OptimizeHarvestRequest asks for a harvest recommendation toward a target
// loss amount, optionally restricted to one fund.
type OptimizeHarvestRequest struct {
	UserID     string `json:"userId"`
	TargetLoss string `json:"targetLoss"`
	FundID     string `json:"fundId,omitempty"`
}

// ExecuteHarvestRequest submits a previously computed recommendation for
// execution. The recommendation is echoed back in full so execution can
// re-validate the snapshot it was built from.
type ExecuteHarvestRequest struct {
	UserID         string                      `json:"userId"`
	Recommendation model.HarvestRecommendation `json:"recommendation"`
}

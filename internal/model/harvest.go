package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SelectedLot is one open lot chosen for harvesting, valued at the snapshot
// price. SnapshotShares records the lot's open shares at recommendation time
// so execution can detect a ledger that moved underneath the recommendation.
type SelectedLot struct {
	LotID           string          `json:"lotId"`
	FundID          string          `json:"fundId"`
	AcquisitionDate time.Time       `json:"acquisitionDate"`
	SnapshotShares  decimal.Decimal `json:"snapshotShares"`
	CurrentPrice    decimal.Decimal `json:"currentPrice"`
	UnrealizedLoss  decimal.Decimal `json:"unrealizedLoss"`
	Classification  string          `json:"classification"`
}

// ReplacementSuggestion proposes a fund to repurchase after harvesting a
// fund's lots, chosen to avoid an immediate wash sale on the original fund.
type ReplacementSuggestion struct {
	FundID            string `json:"fundId"`
	ReplacementFundID string `json:"replacementFundId"`
	ReplacementName   string `json:"replacementName"`
}

// HarvestRecommendation is the point-in-time output of the harvesting
// optimizer. It is computed from a snapshot; execution must re-validate
// against the live ledger.
type HarvestRecommendation struct {
	UserID           string                  `json:"userId"`
	TargetLoss       decimal.Decimal         `json:"targetLoss"`
	SelectedLots     []SelectedLot           `json:"selectedLots"`
	TotalLoss        decimal.Decimal         `json:"totalLoss"`
	EstimatedSavings decimal.Decimal         `json:"estimatedSavings"`
	Replacements     []ReplacementSuggestion `json:"replacements"`
	Warnings         []string                `json:"warnings,omitempty"`
	GeneratedAt      time.Time               `json:"generatedAt"`
}

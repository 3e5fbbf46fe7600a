package service

import (
	"time"

	"github.com/fundfolio/tax-lot-engine/internal/model"
)

// GainClassifier labels realized gain fragments short- or long-term from
// their holding period. The boundary day counts as long-term: a lot held
// exactly longTermDays classifies long. The threshold is injected from
// configuration because jurisdictions disagree on the exact boundary.
type GainClassifier struct {
	longTermDays int
}

// NewGainClassifier creates a classifier with the given long-term threshold in days.
func NewGainClassifier(longTermDays int) *GainClassifier {
	return &GainClassifier{longTermDays: longTermDays}
}

// HoldingPeriodDays returns the whole days between acquisition and sale.
// Both inputs are date-granular; partial days never occur.
func (c *GainClassifier) HoldingPeriodDays(acquisitionDate, saleDate time.Time) int {
	return int(saleDate.Sub(acquisitionDate).Hours() / 24)
}

// Classify returns the classification for a holding period.
func (c *GainClassifier) Classify(holdingPeriodDays int) string {
	if holdingPeriodDays >= c.longTermDays {
		return model.ClassificationLongTerm
	}
	return model.ClassificationShortTerm
}

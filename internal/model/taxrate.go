package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tax rate types, matching gain classifications.
const (
	TaxTypeShortTerm = "short_term"
	TaxTypeLongTerm  = "long_term"
)

// TaxRate is an externally supplied rate effective from a given date.
// The calculator picks the latest rate effective on or before the period end.
type TaxRate struct {
	ID            string          `json:"id"`
	TaxType       string          `json:"taxType"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveDate time.Time       `json:"effectiveDate"`
	CreatedAt     time.Time       `json:"createdAt,omitempty"`
}

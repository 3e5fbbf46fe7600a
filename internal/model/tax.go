package model

import "github.com/shopspring/decimal"

// TaxLiability is the aggregate liability for a user over a reporting period.
// Gains are netted within each classification bucket before rates apply; a
// net loss in a bucket produces zero tax for that bucket.
type TaxLiability struct {
	UserID        string          `json:"userId"`
	ShortTermGain decimal.Decimal `json:"shortTermGain"`
	LongTermGain  decimal.Decimal `json:"longTermGain"`
	ShortTermTax  decimal.Decimal `json:"shortTermTax"`
	LongTermTax   decimal.Decimal `json:"longTermTax"`
	TotalTax      decimal.Decimal `json:"totalTax"`
	EffectiveRate decimal.Decimal `json:"effectiveRate"`
	Warnings      []string        `json:"warnings,omitempty"`
}

package service

import (
	"fmt"
	"time"

	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/model"
	"github.com/fundfolio/tax-lot-engine/internal/repository"
	"github.com/shopspring/decimal"
)

// TaxService aggregates classified, non-disallowed realized gains over a
// period and applies the configured rate table. The computation is a pure
// function of the stored records and rates: recalculating an unchanged
// period yields identical results.
type TaxService struct {
	gainRepo   *repository.GainRepository
	rateRepo   *repository.TaxRateRepository
	windowDays int
}

// NewTaxService creates a new TaxService with the provided repository dependencies.
func NewTaxService(
	gainRepo *repository.GainRepository,
	rateRepo *repository.TaxRateRepository,
	windowDays int,
) *TaxService {
	return &TaxService{
		gainRepo:   gainRepo,
		rateRepo:   rateRepo,
		windowDays: windowDays,
	}
}

// CalculateLiability computes the aggregate tax liability for a user over
// [periodStart, periodEnd]. Gains and losses net within each classification
// bucket; only a positive net bucket is taxed. Fails closed with
// apperrors.ErrRateTableMissing when no applicable rate is configured —
// an absent rate must never silently read as zero tax.
func (s *TaxService) CalculateLiability(userID string, periodStart, periodEnd time.Time) (model.TaxLiability, error) {
	if periodEnd.Before(periodStart) {
		return model.TaxLiability{}, apperrors.ErrInvalidDateRange
	}

	gains, err := s.gainRepo.GetGainsByUser(userID, periodStart, periodEnd)
	if err != nil {
		return model.TaxLiability{}, err
	}

	liability := model.TaxLiability{
		UserID:        userID,
		ShortTermGain: decimal.Zero,
		LongTermGain:  decimal.Zero,
	}

	pendingWindow := 0
	now := time.Now().UTC()

	for _, g := range gains {
		if g.WashSaleDisallowed {
			continue
		}

		if g.Classification == model.ClassificationLongTerm {
			liability.LongTermGain = liability.LongTermGain.Add(g.Gain)
		} else {
			liability.ShortTermGain = liability.ShortTermGain.Add(g.Gain)
		}

		if g.Gain.IsNegative() && g.SaleDate.AddDate(0, 0, s.windowDays).After(now) {
			pendingWindow++
		}
	}

	shortRate, err := s.rateRepo.GetRate(model.TaxTypeShortTerm, periodEnd)
	if err != nil {
		return model.TaxLiability{}, err
	}
	longRate, err := s.rateRepo.GetRate(model.TaxTypeLongTerm, periodEnd)
	if err != nil {
		return model.TaxLiability{}, err
	}

	liability.ShortTermTax = taxOnBucket(liability.ShortTermGain, shortRate.Rate)
	liability.LongTermTax = taxOnBucket(liability.LongTermGain, longRate.Rate)
	liability.TotalTax = liability.ShortTermTax.Add(liability.LongTermTax)

	totalGain := liability.ShortTermGain.Add(liability.LongTermGain)
	if totalGain.IsPositive() {
		liability.EffectiveRate = liability.TotalTax.Div(totalGain)
	} else {
		liability.EffectiveRate = decimal.Zero
	}

	if pendingWindow > 0 {
		liability.Warnings = append(liability.Warnings, fmt.Sprintf(
			"%d loss record(s) are still inside the wash-sale window; figures may change until the window elapses", pendingWindow))
	}

	return liability, nil
}

// taxOnBucket taxes a net bucket only when it is positive; a net loss
// produces zero tax, never a refund.
func taxOnBucket(netGain, rate decimal.Decimal) decimal.Decimal {
	if !netGain.IsPositive() {
		return decimal.Zero
	}
	return netGain.Mul(rate)
}

// ListGains returns the user's realized gain records within the period,
// disallowed fragments included, ordered by sale date.
func (s *TaxService) ListGains(userID string, periodStart, periodEnd time.Time) ([]model.RealizedGain, error) {
	if periodEnd.Before(periodStart) {
		return nil, apperrors.ErrInvalidDateRange
	}
	gains, err := s.gainRepo.GetGainsByUser(userID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if gains == nil {
		gains = []model.RealizedGain{}
	}
	return gains, nil
}

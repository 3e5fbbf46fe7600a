package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/model"
	"github.com/fundfolio/tax-lot-engine/internal/outbound"
	"github.com/fundfolio/tax-lot-engine/internal/pricing"
	"github.com/fundfolio/tax-lot-engine/internal/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// HarvestService selects open loss lots to approximate a target harvest
// amount and proposes non-conflicting replacement funds. Recommendations are
// computed from a point-in-time snapshot without holding the ledger lock;
// execution re-validates against the live ledger and fails with
// apperrors.ErrStaleLedger when shares have moved since the snapshot.
type HarvestService struct {
	db           *sql.DB
	lotRepo      *repository.LotRepository
	fundRepo     *repository.FundRepository
	rateRepo     *repository.TaxRateRepository
	prices       pricing.PriceSource
	classifier   *GainClassifier
	sink         outbound.TradeRequestSink
	tolerancePct int
}

// NewHarvestService creates a new HarvestService with the provided dependencies.
func NewHarvestService(
	db *sql.DB,
	lotRepo *repository.LotRepository,
	fundRepo *repository.FundRepository,
	rateRepo *repository.TaxRateRepository,
	prices pricing.PriceSource,
	classifier *GainClassifier,
	sink outbound.TradeRequestSink,
	tolerancePct int,
) *HarvestService {
	return &HarvestService{
		db:           db,
		lotRepo:      lotRepo,
		fundRepo:     fundRepo,
		rateRepo:     rateRepo,
		prices:       prices,
		classifier:   classifier,
		sink:         sink,
		tolerancePct: tolerancePct,
	}
}

// Optimize computes a harvest recommendation toward targetLoss for a user,
// optionally restricted to one fund. Candidates are open lots whose cost
// basis exceeds their current value. Selection is greedy by unrealized loss
// descending (ties: acquisition date ascending, then lot ID) and stops
// before any lot that would push the cumulative loss past
// targetLoss * (1 + tolerance); an under-shoot is accepted instead of an
// unbounded overshoot.
func (s *HarvestService) Optimize(ctx context.Context, userID string, targetLoss decimal.Decimal, fundID string) (*model.HarvestRecommendation, error) {
	lots, err := s.lotRepo.GetOpenLotsByUser(userID, fundID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &model.HarvestRecommendation{
		UserID:           userID,
		TargetLoss:       targetLoss,
		SelectedLots:     []model.SelectedLot{},
		TotalLoss:        decimal.Zero,
		EstimatedSavings: decimal.Zero,
		Replacements:     []model.ReplacementSuggestion{},
		GeneratedAt:      now,
	}

	prices, warnings, err := s.lookupPrices(ctx, lots, now)
	if err != nil {
		return nil, err
	}
	rec.Warnings = append(rec.Warnings, warnings...)

	candidates := s.buildCandidates(lots, prices, now)

	overshootCap := targetLoss.Mul(decimal.NewFromInt(int64(100 + s.tolerancePct))).Div(decimal.NewFromInt(100))

	for _, cand := range candidates {
		if rec.TotalLoss.GreaterThanOrEqual(targetLoss) {
			break
		}
		// Stop before the lot that would cross the overshoot cap.
		if rec.TotalLoss.Add(cand.UnrealizedLoss).GreaterThan(overshootCap) {
			break
		}

		rec.SelectedLots = append(rec.SelectedLots, cand)
		rec.TotalLoss = rec.TotalLoss.Add(cand.UnrealizedLoss)
	}

	savings, err := s.estimateSavings(rec.SelectedLots, now)
	if err != nil {
		return nil, err
	}
	rec.EstimatedSavings = savings

	replacements, warnings := s.proposeReplacements(rec.SelectedLots)
	rec.Replacements = replacements
	rec.Warnings = append(rec.Warnings, warnings...)

	return rec, nil
}

// lookupPrices resolves current prices for every fund appearing in the lots.
// Lookups run concurrently and complete before any further work; a fund
// whose price cannot be resolved is excluded with a warning rather than
// failing the whole recommendation.
func (s *HarvestService) lookupPrices(ctx context.Context, lots []model.TaxLot, asOf time.Time) (map[string]decimal.Decimal, []string, error) {
	fundIDs := make([]string, 0)
	seen := make(map[string]bool)
	for _, lot := range lots {
		if !seen[lot.FundID] {
			seen[lot.FundID] = true
			fundIDs = append(fundIDs, lot.FundID)
		}
	}

	type priceResult struct {
		fundID string
		price  decimal.Decimal
		err    error
	}

	results := make([]priceResult, len(fundIDs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i, fundID := range fundIDs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			price, err := s.prices.GetPrice(fundID, asOf)
			results[i] = priceResult{fundID: fundID, price: price, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	prices := make(map[string]decimal.Decimal, len(fundIDs))
	var warnings []string
	for _, r := range results {
		if r.err != nil {
			warnings = append(warnings, fmt.Sprintf("fund %s excluded: no current price available", r.fundID))
			continue
		}
		prices[r.fundID] = r.price
	}

	return prices, warnings, nil
}

// buildCandidates values each open lot at the current price and keeps those
// with a positive unrealized loss, in deterministic selection order.
func (s *HarvestService) buildCandidates(lots []model.TaxLot, prices map[string]decimal.Decimal, asOf time.Time) []model.SelectedLot {
	candidates := []model.SelectedLot{}

	for _, lot := range lots {
		price, ok := prices[lot.FundID]
		if !ok {
			continue
		}

		currentValue := lot.Shares.Mul(price)
		unrealizedLoss := lot.CostBasis().Sub(currentValue)
		if !unrealizedLoss.IsPositive() {
			continue
		}

		holdingDays := s.classifier.HoldingPeriodDays(lot.AcquisitionDate, asOf)
		candidates = append(candidates, model.SelectedLot{
			LotID:           lot.ID,
			FundID:          lot.FundID,
			AcquisitionDate: lot.AcquisitionDate,
			SnapshotShares:  lot.Shares,
			CurrentPrice:    price,
			UnrealizedLoss:  unrealizedLoss,
			Classification:  s.classifier.Classify(holdingDays),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].UnrealizedLoss.Equal(candidates[j].UnrealizedLoss) {
			return candidates[i].UnrealizedLoss.GreaterThan(candidates[j].UnrealizedLoss)
		}
		if !candidates[i].AcquisitionDate.Equal(candidates[j].AcquisitionDate) {
			return candidates[i].AcquisitionDate.Before(candidates[j].AcquisitionDate)
		}
		return candidates[i].LotID < candidates[j].LotID
	})

	return candidates
}

// estimateSavings sums each selected lot's loss weighted by the rate of its
// own classification. A flat split between short and long rates would
// misestimate whenever the mix deviates, so each lot carries its own rate.
// Fails closed when no rate is configured, like the liability calculation.
func (s *HarvestService) estimateSavings(selected []model.SelectedLot, asOf time.Time) (decimal.Decimal, error) {
	savings := decimal.Zero
	rates := make(map[string]decimal.Decimal)

	for _, lot := range selected {
		rate, ok := rates[lot.Classification]
		if !ok {
			r, err := s.rateRepo.GetRate(lot.Classification, asOf)
			if err != nil {
				return decimal.Decimal{}, err
			}
			rate = r.Rate
			rates[lot.Classification] = rate
		}

		savings = savings.Add(lot.UnrealizedLoss.Mul(rate))
	}

	return savings, nil
}

// proposeReplacements suggests, for each harvested fund, the highest-AUM
// active tradeable fund in the same category — never the fund itself, which
// would immediately wash the harvested loss.
func (s *HarvestService) proposeReplacements(selected []model.SelectedLot) ([]model.ReplacementSuggestion, []string) {
	suggestions := []model.ReplacementSuggestion{}
	var warnings []string
	seen := make(map[string]bool)

	for _, lot := range selected {
		if seen[lot.FundID] {
			continue
		}
		seen[lot.FundID] = true

		replacement, err := s.fundRepo.GetReplacementFund(lot.FundID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNoReplacementFund) {
				warnings = append(warnings, fmt.Sprintf("no replacement fund found for fund %s", lot.FundID))
				continue
			}
			warnings = append(warnings, fmt.Sprintf("replacement lookup failed for fund %s", lot.FundID))
			continue
		}

		suggestions = append(suggestions, model.ReplacementSuggestion{
			FundID:            lot.FundID,
			ReplacementFundID: replacement.ID,
			ReplacementName:   replacement.Name,
		})
	}

	return suggestions, warnings
}

// Execute re-validates a recommendation against the live ledger and, when
// still valid, builds the outbound sell/buy trade requests and forwards them
// to the trading collaborator. Nothing is executed here; the resulting
// settlements arrive back through the settlement endpoint.
func (s *HarvestService) Execute(ctx context.Context, userID string, rec *model.HarvestRecommendation) ([]outbound.TradeRequest, error) {
	if rec.UserID != userID {
		return nil, fmt.Errorf("recommendation belongs to user %s, not %s", rec.UserID, userID)
	}

	now := time.Now().UTC()
	requests := make([]outbound.TradeRequest, 0, len(rec.SelectedLots))
	sellValueByFund := make(map[string]decimal.Decimal)

	for _, selected := range rec.SelectedLots {
		lot, err := s.lotRepo.GetLot(s.db, selected.LotID)
		if err != nil {
			return nil, err
		}

		// The recommendation was computed from a snapshot; any drift in the
		// lot's open shares means the ledger moved underneath it and the
		// caller must recompute rather than trade on stale data.
		if lot.Status != model.LotStatusOpen || !lot.Shares.Equal(selected.SnapshotShares) {
			return nil, fmt.Errorf("%w: lot %s has %s open shares, recommendation assumed %s",
				apperrors.ErrStaleLedger, lot.ID, lot.Shares.String(), selected.SnapshotShares.String())
		}

		requests = append(requests, outbound.TradeRequest{
			UserID:      userID,
			FundID:      selected.FundID,
			Side:        outbound.RequestSideSell,
			Shares:      selected.SnapshotShares,
			LotID:       selected.LotID,
			Reason:      "tax-loss harvest",
			RequestedAt: now,
		})

		value := selected.SnapshotShares.Mul(selected.CurrentPrice)
		sellValueByFund[selected.FundID] = sellValueByFund[selected.FundID].Add(value)
	}

	for _, replacement := range rec.Replacements {
		sellValue, ok := sellValueByFund[replacement.FundID]
		if !ok || !sellValue.IsPositive() {
			continue
		}

		price, err := s.prices.GetPrice(replacement.ReplacementFundID, now)
		if err != nil || !price.IsPositive() {
			continue
		}

		requests = append(requests, outbound.TradeRequest{
			UserID:      userID,
			FundID:      replacement.ReplacementFundID,
			Side:        outbound.RequestSideBuy,
			Shares:      sellValue.Div(price).Round(4),
			Reason:      "tax-loss harvest replacement",
			RequestedAt: now,
		})
	}

	if err := s.sink.Submit(requests); err != nil {
		return nil, fmt.Errorf("failed to forward trade requests: %w", err)
	}

	return requests, nil
}

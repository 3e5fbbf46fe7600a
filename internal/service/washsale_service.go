package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/model"
	"github.com/fundfolio/tax-lot-engine/internal/repository"
	"github.com/google/uuid"
)

// WashSaleService detects disallowed loss deductions: a loss fragment whose
// fund was repurchased within the configured window on either side of the
// sale date. Detection both flags the fragment and defers the loss into the
// replacement lot's basis, so the deduction is recovered on a future sale of
// that lot. Because the window extends past the sale date, a fragment is not
// final for reporting until the window has fully elapsed; evaluation is
// idempotent and re-runs at every settlement and on a schedule.
type WashSaleService struct {
	db         *sql.DB
	ledger     *LedgerService
	tradeRepo  *repository.TradeRepository
	lotRepo    *repository.LotRepository
	gainRepo   *repository.GainRepository
	windowDays int
}

// NewWashSaleService creates a new WashSaleService with the provided dependencies.
func NewWashSaleService(
	db *sql.DB,
	ledger *LedgerService,
	tradeRepo *repository.TradeRepository,
	lotRepo *repository.LotRepository,
	gainRepo *repository.GainRepository,
	windowDays int,
) *WashSaleService {
	return &WashSaleService{
		db:         db,
		ledger:     ledger,
		tradeRepo:  tradeRepo,
		lotRepo:    lotRepo,
		gainRepo:   gainRepo,
		windowDays: windowDays,
	}
}

// EvaluateFund re-evaluates all open loss fragments for a (user, fund) pair
// against current trade history. Runs inside the caller's transaction and
// ledger lock. Returns the number of fragments newly disallowed. Fragments
// already disallowed are final and never revisited, which makes repeated
// evaluation idempotent.
func (s *WashSaleService) EvaluateFund(q repository.DBTX, userID, fundID string) (int, error) {
	fragments, err := s.gainRepo.GetOpenLossFragments(q, userID, fundID)
	if err != nil {
		return 0, err
	}

	disallowed := 0
	for i := range fragments {
		applied, err := s.evaluateFragment(q, &fragments[i])
		if err != nil {
			return disallowed, err
		}
		if applied {
			disallowed++
		}
	}

	return disallowed, nil
}

// evaluateFragment checks one loss fragment for a qualifying repurchase and
// applies the full wash-sale correction when one exists.
func (s *WashSaleService) evaluateFragment(q repository.DBTX, fragment *model.RealizedGain) (bool, error) {
	from := fragment.SaleDate.AddDate(0, 0, -s.windowDays)
	to := fragment.SaleDate.AddDate(0, 0, s.windowDays)

	buys, err := s.tradeRepo.GetBuyTradesInWindow(q, fragment.UserID, fragment.FundID, from, to)
	if err != nil {
		return false, err
	}

	for _, buy := range buys {
		// A buy that is part of the same transaction as the sale never
		// disallows it.
		if buy.ID == fragment.SellTradeID {
			continue
		}

		replacement, err := s.lotRepo.GetLotByBuyTrade(q, buy.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrLotNotFound) {
				continue
			}
			return false, err
		}

		// The deferred loss spreads over the replacement lot's shares; a lot
		// already fully consumed cannot absorb it, so fall through to the
		// next qualifying buy in chronological order.
		if !replacement.Shares.IsPositive() {
			continue
		}

		return true, s.applyAdjustment(q, fragment, &replacement)
	}

	return false, nil
}

// applyAdjustment marks the fragment disallowed and raises the replacement
// lot's basis by the per-share slice of the deferred loss. The replacement
// lot's acquisition date is untouched: the holding period is not reset.
func (s *WashSaleService) applyAdjustment(q repository.DBTX, fragment *model.RealizedGain, replacement *model.TaxLot) error {
	exists, err := s.gainRepo.HasAdjustment(q, fragment.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	disallowed := fragment.Gain.Abs()

	if err := s.gainRepo.MarkDisallowed(q, fragment.ID, disallowed); err != nil {
		return err
	}

	newBasis := replacement.CostBasisPerShare.Add(disallowed.Div(replacement.Shares))
	if err := s.lotRepo.SetLotBasis(q, replacement.ID, newBasis); err != nil {
		return err
	}

	adjustment := &model.WashSaleAdjustment{
		ID:               uuid.New().String(),
		RealizedGainID:   fragment.ID,
		ReplacementLotID: replacement.ID,
		Amount:           disallowed,
	}

	return s.gainRepo.InsertAdjustment(q, adjustment)
}

// Rescan re-evaluates every non-final loss fragment across all users, one
// (user, fund) ledger at a time under that ledger's lock. Safe to run any
// number of times; the scheduler drives it daily and the API exposes it for
// manual runs. Returns the number of fragments newly disallowed.
func (s *WashSaleService) Rescan(ctx context.Context, asOf time.Time) (int, error) {
	pending, err := s.gainRepo.GetPendingLossFragments(asOf, s.windowDays)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool)
	total := 0

	for _, fragment := range pending {
		key := fragment.UserID + "|" + fragment.FundID
		if seen[key] {
			continue
		}
		seen[key] = true

		n, err := s.rescanLedger(ctx, fragment.UserID, fragment.FundID)
		if err != nil {
			return total, fmt.Errorf("failed to re-scan user %s fund %s: %w", fragment.UserID, fragment.FundID, err)
		}
		total += n
	}

	return total, nil
}

func (s *WashSaleService) rescanLedger(ctx context.Context, userID, fundID string) (int, error) {
	unlock := s.ledger.Lock(userID, fundID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin rescan transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	n, err := s.EvaluateFund(tx, userID, fundID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rescan transaction: %w", err)
	}

	return n, nil
}

package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/model"
	"github.com/fundfolio/tax-lot-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementService consumes settled trade events, the sole external input
// to the ledger. A BUY opens a lot; a SELL is matched against open lots
// under FIFO and emits one realized gain fragment per lot drawn from.
// Either way the whole settlement runs in one transaction under the
// (user, fund) ledger lock, followed by a wash-sale evaluation and a
// reconciliation check, so a failed settlement leaves no partial state.
type SettlementService struct {
	db         *sql.DB
	ledger     *LedgerService
	tradeRepo  *repository.TradeRepository
	gainRepo   *repository.GainRepository
	classifier *GainClassifier
	washSale   *WashSaleService
}

// NewSettlementService creates a new SettlementService with the provided dependencies.
func NewSettlementService(
	db *sql.DB,
	ledger *LedgerService,
	tradeRepo *repository.TradeRepository,
	gainRepo *repository.GainRepository,
	classifier *GainClassifier,
	washSale *WashSaleService,
) *SettlementService {
	return &SettlementService{
		db:         db,
		ledger:     ledger,
		tradeRepo:  tradeRepo,
		gainRepo:   gainRepo,
		classifier: classifier,
		washSale:   washSale,
	}
}

// ProcessSettlement handles one settled trade event. For a SELL it returns
// the realized gain fragments emitted; for a BUY it returns nil fragments.
// Duplicate trade IDs fail with apperrors.ErrDuplicateTrade, keeping
// settlement processing effectively exactly-once.
func (s *SettlementService) ProcessSettlement(ctx context.Context, trade *model.Trade) ([]model.RealizedGain, error) {
	trade.Side = strings.ToUpper(trade.Side)

	unlock := s.ledger.Lock(trade.UserID, trade.FundID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin settlement transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := s.tradeRepo.InsertTrade(tx, trade); err != nil {
		return nil, err
	}

	var fragments []model.RealizedGain

	switch trade.Side {
	case model.TradeSideBuy:
		if _, err := s.ledger.OpenLot(tx, trade); err != nil {
			return nil, err
		}
	case model.TradeSideSell:
		fragments, err = s.matchSale(tx, trade)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown trade side: %s", trade.Side)
	}

	// A BUY can retroactively disallow a loss realized up to the window
	// length earlier; a SELL may itself fall inside the window of a prior
	// BUY. Either way the fund's open loss fragments are re-evaluated here,
	// inside the settlement transaction.
	if _, err := s.washSale.EvaluateFund(tx, trade.UserID, trade.FundID); err != nil {
		return nil, err
	}

	if err := s.ledger.Reconcile(tx, trade.UserID, trade.FundID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement transaction: %w", err)
	}

	return fragments, nil
}

// matchSale performs FIFO consumption for a settled SELL trade and emits one
// realized gain fragment per lot touched.
func (s *SettlementService) matchSale(tx repository.DBTX, trade *model.Trade) ([]model.RealizedGain, error) {
	plan, err := s.ledger.PlanConsumption(tx, trade.UserID, trade.FundID, trade.Shares)
	if err != nil {
		return nil, err
	}

	fragments := make([]model.RealizedGain, 0, len(plan))
	consumed := decimal.Zero

	for _, item := range plan {
		proceeds := item.Shares.Mul(trade.PricePerShare)
		cost := item.Shares.Mul(item.Lot.CostBasisPerShare)
		holdingDays := s.classifier.HoldingPeriodDays(item.Lot.AcquisitionDate, trade.TradeDate)

		fragment := model.RealizedGain{
			ID:                uuid.New().String(),
			UserID:            trade.UserID,
			FundID:            trade.FundID,
			LotID:             item.Lot.ID,
			SellTradeID:       trade.ID,
			SaleDate:          trade.TradeDate,
			Shares:            item.Shares,
			Proceeds:          proceeds,
			CostBasis:         cost,
			Gain:              proceeds.Sub(cost),
			HoldingPeriodDays: holdingDays,
			Classification:    s.classifier.Classify(holdingDays),
			DisallowedAmount:  decimal.Zero,
		}

		fragments = append(fragments, fragment)
		consumed = consumed.Add(item.Shares)
	}

	// Post-condition: the fragments of one sell must account for exactly the
	// trade's share count.
	if !consumed.Equal(trade.Shares) {
		return nil, fmt.Errorf("%w: fragments cover %s of %s shares for trade %s",
			apperrors.ErrFragmentMismatch, consumed.String(), trade.Shares.String(), trade.ID)
	}

	for i := range fragments {
		if err := s.gainRepo.InsertRealizedGain(tx, &fragments[i]); err != nil {
			return nil, err
		}
	}

	if err := s.ledger.ApplyConsumption(tx, plan, trade); err != nil {
		return nil, err
	}

	return fragments, nil
}

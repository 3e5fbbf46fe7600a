package service

import (
	"fmt"
	"sync"

	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/model"
	"github.com/fundfolio/tax-lot-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerService owns the per-(user, fund) ordered set of tax lots. It is the
// only component that mutates lot state, and all mutation of a single
// (user, fund) ledger runs under that ledger's lock: two concurrent sell
// settlements could otherwise read the same open-lot snapshot and
// double-consume shares.
type LedgerService struct {
	lotRepo   *repository.LotRepository
	tradeRepo *repository.TradeRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLedgerService creates a new LedgerService with the provided repository dependencies.
func NewLedgerService(
	lotRepo *repository.LotRepository,
	tradeRepo *repository.TradeRepository,
) *LedgerService {
	return &LedgerService{
		lotRepo:   lotRepo,
		tradeRepo: tradeRepo,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutation lock for one (user, fund) ledger and returns
// the unlock function. Callers must complete any external I/O before
// acquiring the lock; nothing blocking belongs inside the critical section
// except the settlement transaction itself.
func (s *LedgerService) Lock(userID, fundID string) func() {
	key := userID + "|" + fundID

	s.mu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// ConsumptionItem is one (lot, shares) pair of a consumption plan.
type ConsumptionItem struct {
	Lot    model.TaxLot
	Shares decimal.Decimal
}

// ConsumptionPlan is the ordered list of lot draws covering a sell.
type ConsumptionPlan []ConsumptionItem

// OpenLot appends a new open lot for a settled BUY trade. The lot inherits
// the trade's price as its initial cost basis per share and the trade's
// sequence number as its FIFO tie-breaker.
func (s *LedgerService) OpenLot(q repository.DBTX, trade *model.Trade) (*model.TaxLot, error) {
	lot := &model.TaxLot{
		ID:                uuid.New().String(),
		UserID:            trade.UserID,
		FundID:            trade.FundID,
		BuyTradeID:        trade.ID,
		BuyTradeSeq:       trade.Seq,
		Shares:            trade.Shares,
		CostBasisPerShare: trade.PricePerShare,
		AcquisitionDate:   trade.TradeDate,
		Status:            model.LotStatusOpen,
	}

	if err := s.lotRepo.InsertLot(q, lot); err != nil {
		return nil, err
	}

	return lot, nil
}

// PlanConsumption returns the ordered lot draws covering the requested
// shares, oldest acquisition first. Upstream trade validation should prevent
// overselling, but the ledger re-checks defensively and returns
// apperrors.ErrInsufficientShares when open shares fall short.
func (s *LedgerService) PlanConsumption(q repository.DBTX, userID, fundID string, shares decimal.Decimal) (ConsumptionPlan, error) {
	lots, err := s.lotRepo.GetOpenLotsFIFO(q, userID, fundID)
	if err != nil {
		return nil, err
	}

	plan := ConsumptionPlan{}
	remaining := shares

	for _, lot := range lots {
		if remaining.IsZero() {
			break
		}

		take := decimal.Min(lot.Shares, remaining)
		plan = append(plan, ConsumptionItem{Lot: lot, Shares: take})
		remaining = remaining.Sub(take)
	}

	if remaining.IsPositive() {
		return nil, fmt.Errorf("%w: requested %s, short by %s for user %s fund %s",
			apperrors.ErrInsufficientShares, shares.String(), remaining.String(), userID, fundID)
	}

	return plan, nil
}

// ApplyConsumption commits a consumption plan: each fully drawn lot closes
// with the selling trade recorded, each partially drawn lot keeps its
// identity with reduced shares. Runs inside the caller's settlement
// transaction so the ledger is never left partially consumed.
func (s *LedgerService) ApplyConsumption(q repository.DBTX, plan ConsumptionPlan, sellTrade *model.Trade) error {
	for _, item := range plan {
		remaining := item.Lot.Shares.Sub(item.Shares)

		if remaining.IsZero() {
			if err := s.lotRepo.CloseLot(q, item.Lot.ID, sellTrade.ID, sellTrade.TradeDate, sellTrade.PricePerShare); err != nil {
				return err
			}
			continue
		}

		if err := s.lotRepo.ReduceLotShares(q, item.Lot.ID, remaining); err != nil {
			return err
		}
	}

	return nil
}

// Reconcile verifies the core ledger invariant for a (user, fund) pair: the
// sum of open lot shares equals the net shares implied by all settled
// trades. Returns apperrors.ErrLedgerReconciliation on drift.
func (s *LedgerService) Reconcile(q repository.DBTX, userID, fundID string) error {
	openShares, err := s.lotRepo.SumOpenShares(q, userID, fundID)
	if err != nil {
		return err
	}

	netShares, err := s.tradeRepo.NetSettledShares(q, userID, fundID)
	if err != nil {
		return err
	}

	if !openShares.Equal(netShares) {
		return fmt.Errorf("%w: open lots %s, net settled %s for user %s fund %s",
			apperrors.ErrLedgerReconciliation, openShares.String(), netShares.String(), userID, fundID)
	}

	return nil
}

// GetTaxLots returns the ordered open and closed lots for a user, optionally
// filtered to one fund.
func (s *LedgerService) GetTaxLots(userID, fundID string) ([]model.TaxLot, error) {
	return s.lotRepo.GetLotsByUser(userID, fundID)
}

package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/model"
	"github.com/fundfolio/tax-lot-engine/internal/outbound"
	"github.com/fundfolio/tax-lot-engine/internal/testutil"
)


// daysAgo returns a YYYY-MM-DD date n days before now. Harvest candidates
// are classified against the current clock, so acquisition dates in these
// tests stay relative to it.
func daysAgo(n int) string {
	return time.Now().UTC().AddDate(0, 0, -n).Format("2006-01-02")
}

func TestOptimizeStopsBeforeOvershootCap(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, prices, _ := testutil.NewTestHarvestService(t, db)

	userID := testutil.MakeID()
	fund := testutil.NewFund().Build(t, db)
	testutil.NewTaxRate(model.TaxTypeShortTerm, "0.35").Build(t, db)
	testutil.NewTaxRate(model.TaxTypeLongTerm, "0.15").Build(t, db)

	// Current price 10; lots bought above it carry unrealized losses of
	// 700, 500 and 200 respectively.
	prices.SetPrice(fund.ID, decimal.NewFromInt(10))

	b1 := testutil.NewTrade(userID, fund.ID).WithSeq(1).OnDate(daysAgo(40)).WithShares("100").WithPrice("17").Build(t, db)
	b2 := testutil.NewTrade(userID, fund.ID).WithSeq(2).OnDate(daysAgo(30)).WithShares("100").WithPrice("15").Build(t, db)
	b3 := testutil.NewTrade(userID, fund.ID).WithSeq(3).OnDate(daysAgo(20)).WithShares("100").WithPrice("12").Build(t, db)
	lot700 := testutil.NewLot(userID, fund.ID, b1).Build(t, db)
	testutil.NewLot(userID, fund.ID, b2).Build(t, db)
	testutil.NewLot(userID, fund.ID, b3).Build(t, db)

	// Target 1000 with 10% tolerance caps cumulative loss at 1100. The 700
	// lot fits; adding 500 would reach 1200, so the scan stops there —
	// an under-shoot is accepted over an overshoot.
	rec, err := svc.Optimize(context.Background(), userID, decimal.NewFromInt(1000), "")
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}

	if len(rec.SelectedLots) != 1 {
		t.Fatalf("Expected 1 selected lot, got %d", len(rec.SelectedLots))
	}
	if rec.SelectedLots[0].LotID != lot700.ID {
		t.Errorf("Expected the 700 lot selected, got %s", rec.SelectedLots[0].LotID)
	}
	testutil.AssertDecimalEqual(t, "700", rec.TotalLoss)

	// All three lots are short-term; savings = 700 * 0.35.
	testutil.AssertDecimalEqual(t, "245", rec.EstimatedSavings)
}

func TestOptimizeSelectsLargestLossesFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, prices, _ := testutil.NewTestHarvestService(t, db)

	userID := testutil.MakeID()
	fund := testutil.NewFund().Build(t, db)
	testutil.NewTaxRate(model.TaxTypeShortTerm, "0.35").Build(t, db)
	testutil.NewTaxRate(model.TaxTypeLongTerm, "0.15").Build(t, db)

	prices.SetPrice(fund.ID, decimal.NewFromInt(10))

	b1 := testutil.NewTrade(userID, fund.ID).WithSeq(1).OnDate(daysAgo(40)).WithShares("100").WithPrice("12").Build(t, db)
	b2 := testutil.NewTrade(userID, fund.ID).WithSeq(2).OnDate(daysAgo(30)).WithShares("100").WithPrice("16").Build(t, db)
	// A lot trading above basis is never a candidate.
	b3 := testutil.NewTrade(userID, fund.ID).WithSeq(3).OnDate(daysAgo(20)).WithShares("100").WithPrice("8").Build(t, db)
	lot200 := testutil.NewLot(userID, fund.ID, b1).Build(t, db)
	lot600 := testutil.NewLot(userID, fund.ID, b2).Build(t, db)
	testutil.NewLot(userID, fund.ID, b3).Build(t, db)

	rec, err := svc.Optimize(context.Background(), userID, decimal.NewFromInt(800), "")
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}

	if len(rec.SelectedLots) != 2 {
		t.Fatalf("Expected 2 selected lots, got %d", len(rec.SelectedLots))
	}
	if rec.SelectedLots[0].LotID != lot600.ID || rec.SelectedLots[1].LotID != lot200.ID {
		t.Error("Expected selection ordered by loss descending")
	}
	testutil.AssertDecimalEqual(t, "800", rec.TotalLoss)
}

func TestOptimizeProposesReplacementFund(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, prices, _ := testutil.NewTestHarvestService(t, db)

	userID := testutil.MakeID()
	fund := testutil.NewFund().WithCategory("large-cap-equity").WithAum("1000000").Build(t, db)
	biggest := testutil.NewFund().WithCategory("large-cap-equity").WithAum("9000000").Build(t, db)
	testutil.NewFund().WithCategory("large-cap-equity").WithAum("5000000").Build(t, db)
	// Higher AUM but wrong category, inactive, or not tradeable: never suggested.
	testutil.NewFund().WithCategory("bonds").WithAum("99000000").Build(t, db)
	testutil.NewFund().WithCategory("large-cap-equity").WithAum("99000000").Inactive().Build(t, db)
	testutil.NewFund().WithCategory("large-cap-equity").WithAum("99000000").NotTradeable().Build(t, db)

	testutil.NewTaxRate(model.TaxTypeShortTerm, "0.35").Build(t, db)
	testutil.NewTaxRate(model.TaxTypeLongTerm, "0.15").Build(t, db)
	prices.SetPrice(fund.ID, decimal.NewFromInt(10))

	buy := testutil.NewTrade(userID, fund.ID).WithSeq(1).OnDate(daysAgo(40)).WithShares("100").WithPrice("15").Build(t, db)
	testutil.NewLot(userID, fund.ID, buy).Build(t, db)

	rec, err := svc.Optimize(context.Background(), userID, decimal.NewFromInt(500), "")
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}

	if len(rec.Replacements) != 1 {
		t.Fatalf("Expected 1 replacement suggestion, got %d", len(rec.Replacements))
	}
	if rec.Replacements[0].ReplacementFundID != biggest.ID {
		t.Errorf("Expected highest-AUM same-category fund %s, got %s", biggest.ID, rec.Replacements[0].ReplacementFundID)
	}
}

func TestOptimizeWarnsWhenNoReplacementExists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, prices, _ := testutil.NewTestHarvestService(t, db)

	userID := testutil.MakeID()
	fund := testutil.NewFund().WithCategory("frontier-markets").Build(t, db)
	testutil.NewTaxRate(model.TaxTypeShortTerm, "0.35").Build(t, db)
	prices.SetPrice(fund.ID, decimal.NewFromInt(10))

	buy := testutil.NewTrade(userID, fund.ID).WithSeq(1).OnDate(daysAgo(40)).WithShares("100").WithPrice("15").Build(t, db)
	testutil.NewLot(userID, fund.ID, buy).Build(t, db)

	rec, err := svc.Optimize(context.Background(), userID, decimal.NewFromInt(500), "")
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}

	// The category has no other fund: the lot is still selected, with a
	// warning instead of a suggestion.
	if len(rec.SelectedLots) != 1 {
		t.Fatalf("Expected 1 selected lot, got %d", len(rec.SelectedLots))
	}
	if len(rec.Replacements) != 0 {
		t.Errorf("Expected no replacement suggestions, got %d", len(rec.Replacements))
	}
	if len(rec.Warnings) == 0 {
		t.Error("Expected a warning about the missing replacement fund")
	}
}

func TestOptimizeExcludesFundWithoutPrice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, prices, _ := testutil.NewTestHarvestService(t, db)

	userID := testutil.MakeID()
	priced := testutil.NewFund().Build(t, db)
	unpriced := testutil.NewFund().Build(t, db)
	testutil.NewTaxRate(model.TaxTypeShortTerm, "0.35").Build(t, db)
	prices.SetPrice(priced.ID, decimal.NewFromInt(10))

	b1 := testutil.NewTrade(userID, priced.ID).WithSeq(1).OnDate(daysAgo(40)).WithShares("100").WithPrice("15").Build(t, db)
	b2 := testutil.NewTrade(userID, unpriced.ID).WithSeq(2).OnDate(daysAgo(40)).WithShares("100").WithPrice("15").Build(t, db)
	testutil.NewLot(userID, priced.ID, b1).Build(t, db)
	testutil.NewLot(userID, unpriced.ID, b2).Build(t, db)

	rec, err := svc.Optimize(context.Background(), userID, decimal.NewFromInt(2000), "")
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}

	// The unpriced fund degrades to a warning, not a failure.
	if len(rec.SelectedLots) != 1 {
		t.Fatalf("Expected 1 selected lot, got %d", len(rec.SelectedLots))
	}
	if rec.SelectedLots[0].FundID != priced.ID {
		t.Errorf("Expected only the priced fund selected, got %s", rec.SelectedLots[0].FundID)
	}
	if len(rec.Warnings) == 0 {
		t.Error("Expected a warning about the unpriced fund")
	}
}

func TestExecuteBuildsOutboundRequests(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, prices, sink := testutil.NewTestHarvestService(t, db)

	userID := testutil.MakeID()
	fund := testutil.NewFund().WithCategory("large-cap-equity").WithAum("1000000").Build(t, db)
	replacement := testutil.NewFund().WithCategory("large-cap-equity").WithAum("9000000").Build(t, db)
	testutil.NewTaxRate(model.TaxTypeShortTerm, "0.35").Build(t, db)
	prices.SetPrice(fund.ID, decimal.NewFromInt(10))
	prices.SetPrice(replacement.ID, decimal.NewFromInt(25))

	buy := testutil.NewTrade(userID, fund.ID).WithSeq(1).OnDate(daysAgo(40)).WithShares("100").WithPrice("15").Build(t, db)
	testutil.NewLot(userID, fund.ID, buy).Build(t, db)

	ctx := context.Background()
	rec, err := svc.Optimize(ctx, userID, decimal.NewFromInt(500), "")
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}

	requests, err := svc.Execute(ctx, userID, rec)
	if err != nil {
		t.Fatalf("Failed to execute: %v", err)
	}

	if len(requests) != 2 {
		t.Fatalf("Expected a sell and a buy request, got %d", len(requests))
	}

	sell := requests[0]
	if sell.Side != outbound.RequestSideSell || sell.FundID != fund.ID {
		t.Errorf("Expected sell of harvested fund, got %+v", sell)
	}
	testutil.AssertDecimalEqual(t, "100", sell.Shares)

	// Sale proceeds (100 * 10) reinvested at the replacement price of 25.
	repurchase := requests[1]
	if repurchase.Side != outbound.RequestSideBuy || repurchase.FundID != replacement.ID {
		t.Errorf("Expected buy of replacement fund, got %+v", repurchase)
	}
	testutil.AssertDecimalEqual(t, "40", repurchase.Shares)

	// The requests were forwarded to the trading collaborator.
	if len(sink.Requests()) != 2 {
		t.Errorf("Expected 2 requests in sink, got %d", len(sink.Requests()))
	}
}

func TestExecuteFailsOnStaleLedger(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, prices, sink := testutil.NewTestHarvestService(t, db)

	userID := testutil.MakeID()
	fund := testutil.NewFund().Build(t, db)
	testutil.NewTaxRate(model.TaxTypeShortTerm, "0.35").Build(t, db)
	prices.SetPrice(fund.ID, decimal.NewFromInt(10))

	buy := testutil.NewTrade(userID, fund.ID).WithSeq(1).OnDate(daysAgo(40)).WithShares("100").WithPrice("15").Build(t, db)
	lot := testutil.NewLot(userID, fund.ID, buy).Build(t, db)

	ctx := context.Background()
	rec, err := svc.Optimize(ctx, userID, decimal.NewFromInt(500), "")
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}

	// The ledger moves between recommendation and execution.
	if _, err := db.Exec("UPDATE tax_lot SET shares = '60' WHERE id = ?", lot.ID); err != nil {
		t.Fatalf("Failed to drift lot: %v", err)
	}

	_, err = svc.Execute(ctx, userID, rec)
	if !errors.Is(err, apperrors.ErrStaleLedger) {
		t.Errorf("Expected ErrStaleLedger, got %v", err)
	}

	// Nothing was forwarded.
	if len(sink.Requests()) != 0 {
		t.Errorf("Expected no requests in sink, got %d", len(sink.Requests()))
	}
}

func TestExecuteRejectsForeignRecommendation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _, _ := testutil.NewTestHarvestService(t, db)

	rec := &model.HarvestRecommendation{UserID: testutil.MakeID()}
	_, err := svc.Execute(context.Background(), testutil.MakeID(), rec)
	if err == nil {
		t.Error("Expected error for mismatched user")
	}
}

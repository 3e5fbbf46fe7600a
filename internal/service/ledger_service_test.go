package service_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/testutil"
)

func TestPlanConsumptionFIFO(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestLedgerService(t, db)

	userID := testutil.MakeID()
	fund := testutil.NewFund().Build(t, db)

	// Three lots acquired out of insertion order; the plan must follow
	// acquisition date, not insertion order.
	t2 := testutil.NewTrade(userID, fund.ID).WithSeq(1).OnDate("2024-02-01").WithShares("50").Build(t, db)
	t1 := testutil.NewTrade(userID, fund.ID).WithSeq(2).OnDate("2024-01-01").WithShares("30").Build(t, db)
	t3 := testutil.NewTrade(userID, fund.ID).WithSeq(3).OnDate("2024-03-01").WithShares("40").Build(t, db)

	lot2 := testutil.NewLot(userID, fund.ID, t2).Build(t, db)
	lot1 := testutil.NewLot(userID, fund.ID, t1).Build(t, db)
	lot3 := testutil.NewLot(userID, fund.ID, t3).Build(t, db)

	plan, err := svc.PlanConsumption(db, userID, fund.ID, decimal.NewFromInt(90))
	if err != nil {
		t.Fatalf("Failed to plan consumption: %v", err)
	}

	if len(plan) != 3 {
		t.Fatalf("Expected 3 plan items, got %d", len(plan))
	}

	// Oldest acquisition drains first; the newest lot is only partially drawn.
	if plan[0].Lot.ID != lot1.ID || !plan[0].Shares.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Expected first draw of 30 from lot %s, got %s from lot %s", lot1.ID, plan[0].Shares, plan[0].Lot.ID)
	}
	if plan[1].Lot.ID != lot2.ID || !plan[1].Shares.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected second draw of 50 from lot %s, got %s from lot %s", lot2.ID, plan[1].Shares, plan[1].Lot.ID)
	}
	if plan[2].Lot.ID != lot3.ID || !plan[2].Shares.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected third draw of 10 from lot %s, got %s from lot %s", lot3.ID, plan[2].Shares, plan[2].Lot.ID)
	}
}

func TestPlanConsumptionSameDayTieBreak(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestLedgerService(t, db)

	userID := testutil.MakeID()
	fund := testutil.NewFund().Build(t, db)

	// Two acquisitions on the same date: the lower trade sequence wins.
	later := testutil.NewTrade(userID, fund.ID).WithSeq(7).OnDate("2024-01-15").WithShares("20").Build(t, db)
	earlier := testutil.NewTrade(userID, fund.ID).WithSeq(4).OnDate("2024-01-15").WithShares("20").Build(t, db)

	testutil.NewLot(userID, fund.ID, later).Build(t, db)
	earlierLot := testutil.NewLot(userID, fund.ID, earlier).Build(t, db)

	plan, err := svc.PlanConsumption(db, userID, fund.ID, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("Failed to plan consumption: %v", err)
	}

	if len(plan) != 1 {
		t.Fatalf("Expected 1 plan item, got %d", len(plan))
	}
	if plan[0].Lot.ID != earlierLot.ID {
		t.Errorf("Expected draw from earlier-sequence lot %s, got %s", earlierLot.ID, plan[0].Lot.ID)
	}
}

func TestPlanConsumptionInsufficientShares(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestLedgerService(t, db)

	userID := testutil.MakeID()
	fund := testutil.NewFund().Build(t, db)

	trade := testutil.NewTrade(userID, fund.ID).WithShares("50").Build(t, db)
	testutil.NewLot(userID, fund.ID, trade).Build(t, db)

	_, err := svc.PlanConsumption(db, userID, fund.ID, decimal.NewFromInt(60))
	if !errors.Is(err, apperrors.ErrInsufficientShares) {
		t.Errorf("Expected ErrInsufficientShares, got %v", err)
	}

	// A failed plan must leave the ledger untouched.
	var shares string
	if err := db.QueryRow("SELECT shares FROM tax_lot").Scan(&shares); err != nil {
		t.Fatalf("Failed to read lot: %v", err)
	}
	if shares != "50" {
		t.Errorf("Expected lot shares unchanged at 50, got %s", shares)
	}
}

func TestApplyConsumptionClosesAndReduces(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestLedgerService(t, db)

	userID := testutil.MakeID()
	fund := testutil.NewFund().Build(t, db)

	buy1 := testutil.NewTrade(userID, fund.ID).WithSeq(1).OnDate("2024-01-01").WithShares("30").Build(t, db)
	buy2 := testutil.NewTrade(userID, fund.ID).WithSeq(2).OnDate("2024-02-01").WithShares("50").Build(t, db)
	lot1 := testutil.NewLot(userID, fund.ID, buy1).Build(t, db)
	lot2 := testutil.NewLot(userID, fund.ID, buy2).Build(t, db)

	sell := testutil.NewTrade(userID, fund.ID).Sell().WithSeq(3).OnDate("2024-03-01").WithShares("40").WithPrice("12").Build(t, db)

	plan, err := svc.PlanConsumption(db, userID, fund.ID, decimal.NewFromInt(40))
	if err != nil {
		t.Fatalf("Failed to plan consumption: %v", err)
	}
	if err := svc.ApplyConsumption(db, plan, &sell); err != nil {
		t.Fatalf("Failed to apply consumption: %v", err)
	}

	// Fully drawn lot closes with the sale recorded; no row is deleted.
	var status, shares string
	if err := db.QueryRow("SELECT status, shares FROM tax_lot WHERE id = ?", lot1.ID).Scan(&status, &shares); err != nil {
		t.Fatalf("Failed to read lot: %v", err)
	}
	if status != "closed" || shares != "0" {
		t.Errorf("Expected lot1 closed with 0 shares, got %s with %s", status, shares)
	}

	// Partially drawn lot keeps its identity with reduced shares.
	if err := db.QueryRow("SELECT status, shares FROM tax_lot WHERE id = ?", lot2.ID).Scan(&status, &shares); err != nil {
		t.Fatalf("Failed to read lot: %v", err)
	}
	if status != "open" || shares != "40" {
		t.Errorf("Expected lot2 open with 40 shares, got %s with %s", status, shares)
	}

	testutil.AssertRowCount(t, db, "tax_lot", 2)
}

func TestReconcileDetectsDrift(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestLedgerService(t, db)

	userID := testutil.MakeID()
	fund := testutil.NewFund().Build(t, db)

	buy := testutil.NewTrade(userID, fund.ID).WithShares("100").Build(t, db)
	lot := testutil.NewLot(userID, fund.ID, buy).Build(t, db)

	if err := svc.Reconcile(db, userID, fund.ID); err != nil {
		t.Fatalf("Expected clean reconcile, got %v", err)
	}

	// Corrupt the ledger behind the service's back.
	if _, err := db.Exec("UPDATE tax_lot SET shares = '90' WHERE id = ?", lot.ID); err != nil {
		t.Fatalf("Failed to corrupt lot: %v", err)
	}

	err := svc.Reconcile(db, userID, fund.ID)
	if !errors.Is(err, apperrors.ErrLedgerReconciliation) {
		t.Errorf("Expected ErrLedgerReconciliation, got %v", err)
	}
}

func TestLockSerializesPerLedger(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestLedgerService(t, db)

	unlock := svc.Lock("user-a", "fund-a")

	// A different (user, fund) pair must not block.
	done := make(chan struct{})
	go func() {
		otherUnlock := svc.Lock("user-a", "fund-b")
		otherUnlock()
		close(done)
	}()
	<-done

	unlock()

	// Reacquiring the released lock must succeed.
	unlock = svc.Lock("user-a", "fund-a")
	unlock()
}

package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fundfolio/tax-lot-engine/internal/api/handlers"
	"github.com/fundfolio/tax-lot-engine/internal/api/request"
	"github.com/fundfolio/tax-lot-engine/internal/model"
	"github.com/fundfolio/tax-lot-engine/internal/testutil"
)

func postHarvest(t *testing.T, handle http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handle(rec, req)
	return rec
}

func dateAgo(n int) string {
	return time.Now().UTC().AddDate(0, 0, -n).Format("2006-01-02")
}

func TestOptimizeHarvest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, prices, _ := testutil.NewTestHarvestService(t, db)
	handler := handlers.NewHarvestHandler(svc)

	userID := testutil.MakeID()
	fund := testutil.NewFund().Build(t, db)

	buy := testutil.NewTrade(userID, fund.ID).WithSeq(1).OnDate(dateAgo(40)).WithShares("100").WithPrice("20").Build(t, db)
	testutil.NewLot(userID, fund.ID, buy).Build(t, db)
	prices.SetPrice(fund.ID, decimal.NewFromInt(13))

	testutil.NewTaxRate(model.TaxTypeShortTerm, "0.35").Build(t, db)
	testutil.NewTaxRate(model.TaxTypeLongTerm, "0.15").Build(t, db)

	rec := postHarvest(t, handler.Optimize, "/api/harvest/optimize", request.OptimizeHarvestRequest{
		UserID:     userID,
		TargetLoss: "1000",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp model.HarvestRecommendation
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.SelectedLots) != 1 {
		t.Fatalf("Expected 1 selected lot, got %d", len(resp.SelectedLots))
	}
	testutil.AssertDecimalEqual(t, "700", resp.TotalLoss)
	testutil.AssertDecimalEqual(t, "245", resp.EstimatedSavings)
}

func TestOptimizeHarvestValidationFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _, _ := testutil.NewTestHarvestService(t, db)
	handler := handlers.NewHarvestHandler(svc)

	rec := postHarvest(t, handler.Optimize, "/api/harvest/optimize", request.OptimizeHarvestRequest{
		UserID:     "not-a-uuid",
		TargetLoss: "1000",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestOptimizeHarvestNoRatesUnprocessable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, prices, _ := testutil.NewTestHarvestService(t, db)
	handler := handlers.NewHarvestHandler(svc)

	userID := testutil.MakeID()
	fund := testutil.NewFund().Build(t, db)
	buy := testutil.NewTrade(userID, fund.ID).WithSeq(1).OnDate(dateAgo(40)).WithShares("100").WithPrice("20").Build(t, db)
	testutil.NewLot(userID, fund.ID, buy).Build(t, db)
	prices.SetPrice(fund.ID, decimal.NewFromInt(13))

	rec := postHarvest(t, handler.Optimize, "/api/harvest/optimize", request.OptimizeHarvestRequest{
		UserID:     userID,
		TargetLoss: "1000",
	})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestExecuteHarvest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, prices, sink := testutil.NewTestHarvestService(t, db)
	handler := handlers.NewHarvestHandler(svc)

	userID := testutil.MakeID()
	fund := testutil.NewFund().WithCategory("large-cap-equity").WithAum("1000000").Build(t, db)
	replacement := testutil.NewFund().WithCategory("large-cap-equity").WithAum("5000000").Build(t, db)

	buy := testutil.NewTrade(userID, fund.ID).WithSeq(1).OnDate(dateAgo(40)).WithShares("100").WithPrice("20").Build(t, db)
	testutil.NewLot(userID, fund.ID, buy).Build(t, db)
	prices.SetPrice(fund.ID, decimal.NewFromInt(13))
	prices.SetPrice(replacement.ID, decimal.NewFromInt(25))

	testutil.NewTaxRate(model.TaxTypeShortTerm, "0.35").Build(t, db)
	testutil.NewTaxRate(model.TaxTypeLongTerm, "0.15").Build(t, db)

	recommendation, err := svc.Optimize(context.Background(), userID, decimal.NewFromInt(1000), "")
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}

	rec := postHarvest(t, handler.Execute, "/api/harvest/execute", request.ExecuteHarvestRequest{
		UserID:         userID,
		Recommendation: *recommendation,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp handlers.ExecuteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.TradeRequests) != len(sink.Requests()) {
		t.Errorf("Expected response to mirror the sink, got %d vs %d", len(resp.TradeRequests), len(sink.Requests()))
	}
	if len(resp.TradeRequests) != 2 {
		t.Fatalf("Expected a sell and a repurchase, got %d requests", len(resp.TradeRequests))
	}
}

func TestExecuteHarvestStaleLedgerConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, prices, sink := testutil.NewTestHarvestService(t, db)
	handler := handlers.NewHarvestHandler(svc)

	userID := testutil.MakeID()
	fund := testutil.NewFund().Build(t, db)

	buy := testutil.NewTrade(userID, fund.ID).WithSeq(1).OnDate(dateAgo(40)).WithShares("100").WithPrice("20").Build(t, db)
	lot := testutil.NewLot(userID, fund.ID, buy).Build(t, db)
	prices.SetPrice(fund.ID, decimal.NewFromInt(13))

	testutil.NewTaxRate(model.TaxTypeShortTerm, "0.35").Build(t, db)
	testutil.NewTaxRate(model.TaxTypeLongTerm, "0.15").Build(t, db)

	recommendation, err := svc.Optimize(context.Background(), userID, decimal.NewFromInt(1000), "")
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}

	// The ledger moves between recommendation and execution.
	if _, err := db.Exec("UPDATE tax_lot SET shares = '60' WHERE id = ?", lot.ID); err != nil {
		t.Fatalf("Failed to drift lot: %v", err)
	}

	rec := postHarvest(t, handler.Execute, "/api/harvest/execute", request.ExecuteHarvestRequest{
		UserID:         userID,
		Recommendation: *recommendation,
	})

	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(sink.Requests()) != 0 {
		t.Errorf("Expected no trade requests after aborted execution, got %d", len(sink.Requests()))
	}
}

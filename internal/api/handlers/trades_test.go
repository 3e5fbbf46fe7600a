package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fundfolio/tax-lot-engine/internal/api/handlers"
	"github.com/fundfolio/tax-lot-engine/internal/api/request"
	"github.com/fundfolio/tax-lot-engine/internal/testutil"
)

func postSettlement(t *testing.T, handler *handlers.TradeHandler, body request.SettleTradeRequest) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/trade/settlement", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.Settle(rec, req)
	return rec
}

func TestSettleBuy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := handlers.NewTradeHandler(testutil.NewTestSettlementService(t, db))

	userID := testutil.MakeID()
	fund := testutil.NewFund().Build(t, db)

	rec := postSettlement(t, handler, request.SettleTradeRequest{
		TradeID:        testutil.MakeID(),
		UserID:         userID,
		FundID:         fund.ID,
		Side:           "BUY",
		Shares:         "100",
		PricePerShare:  "10",
		TradeDate:      "2024-01-15",
		SettlementDate: "2024-01-17",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp handlers.SettlementResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Side != "BUY" || len(resp.RealizedGains) != 0 {
		t.Errorf("Unexpected settlement response: %+v", resp)
	}

	testutil.AssertRowCount(t, db, "tax_lot", 1)
}

func TestSettleSellReturnsFragments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := handlers.NewTradeHandler(testutil.NewTestSettlementService(t, db))

	userID := testutil.MakeID()
	fund := testutil.NewFund().Build(t, db)

	buy := request.SettleTradeRequest{
		TradeID:        testutil.MakeID(),
		UserID:         userID,
		FundID:         fund.ID,
		Side:           "BUY",
		Shares:         "100",
		PricePerShare:  "10",
		TradeDate:      "2024-01-15",
		SettlementDate: "2024-01-15",
	}
	if rec := postSettlement(t, handler, buy); rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 for buy, got %d", rec.Code)
	}

	sell := buy
	sell.TradeID = testutil.MakeID()
	sell.Side = "SELL"
	sell.PricePerShare = "12"
	sell.TradeDate = "2024-03-15"
	sell.SettlementDate = "2024-03-15"

	rec := postSettlement(t, handler, sell)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 for sell, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp handlers.SettlementResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.RealizedGains) != 1 {
		t.Fatalf("Expected 1 realized gain, got %d", len(resp.RealizedGains))
	}
	testutil.AssertDecimalEqual(t, "200", resp.RealizedGains[0].Gain)
}

func TestSettleValidationFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := handlers.NewTradeHandler(testutil.NewTestSettlementService(t, db))

	rec := postSettlement(t, handler, request.SettleTradeRequest{
		TradeID: "not-a-uuid",
		Side:    "HOLD",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
	testutil.AssertRowCount(t, db, "trade", 0)
}

func TestSettleDuplicateConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := handlers.NewTradeHandler(testutil.NewTestSettlementService(t, db))

	userID := testutil.MakeID()
	fund := testutil.NewFund().Build(t, db)

	body := request.SettleTradeRequest{
		TradeID:        testutil.MakeID(),
		UserID:         userID,
		FundID:         fund.ID,
		Side:           "BUY",
		Shares:         "100",
		PricePerShare:  "10",
		TradeDate:      "2024-01-15",
		SettlementDate: "2024-01-15",
	}

	if rec := postSettlement(t, handler, body); rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rec.Code)
	}
	if rec := postSettlement(t, handler, body); rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409 on redelivery, got %d", rec.Code)
	}

	testutil.AssertRowCount(t, db, "trade", 1)
}

func TestSettleOversellUnprocessable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := handlers.NewTradeHandler(testutil.NewTestSettlementService(t, db))

	userID := testutil.MakeID()
	fund := testutil.NewFund().Build(t, db)

	rec := postSettlement(t, handler, request.SettleTradeRequest{
		TradeID:        testutil.MakeID(),
		UserID:         userID,
		FundID:         fund.ID,
		Side:           "SELL",
		Shares:         "100",
		PricePerShare:  "10",
		TradeDate:      "2024-01-15",
		SettlementDate: "2024-01-15",
	})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", rec.Code)
	}
}

package validation_test

import (
	"testing"

	"github.com/fundfolio/tax-lot-engine/internal/api/request"
	"github.com/fundfolio/tax-lot-engine/internal/model"
	"github.com/fundfolio/tax-lot-engine/internal/testutil"
	"github.com/fundfolio/tax-lot-engine/internal/validation"
)

func TestValidateOptimizeHarvest(t *testing.T) {
	valid := request.OptimizeHarvestRequest{
		UserID:     testutil.MakeID(),
		TargetLoss: "1000",
	}

	tests := []struct {
		name    string
		mutate  func(*request.OptimizeHarvestRequest)
		wantErr bool
	}{
		{"Valid", func(r *request.OptimizeHarvestRequest) {}, false},
		{"Optional fund ID", func(r *request.OptimizeHarvestRequest) { r.FundID = testutil.MakeID() }, false},
		{"Malformed user ID", func(r *request.OptimizeHarvestRequest) { r.UserID = "nope" }, true},
		{"Malformed fund ID", func(r *request.OptimizeHarvestRequest) { r.FundID = "nope" }, true},
		{"Zero target", func(r *request.OptimizeHarvestRequest) { r.TargetLoss = "0" }, true},
		{"Negative target", func(r *request.OptimizeHarvestRequest) { r.TargetLoss = "-100" }, true},
		{"Missing target", func(r *request.OptimizeHarvestRequest) { r.TargetLoss = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			err := validation.ValidateOptimizeHarvest(req)
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestValidateExecuteHarvest(t *testing.T) {
	userID := testutil.MakeID()

	valid := request.ExecuteHarvestRequest{
		UserID: userID,
		Recommendation: model.HarvestRecommendation{
			UserID:       userID,
			SelectedLots: []model.SelectedLot{{LotID: testutil.MakeID()}},
		},
	}

	t.Run("Valid", func(t *testing.T) {
		if err := validation.ValidateExecuteHarvest(valid); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})

	t.Run("Empty recommendation", func(t *testing.T) {
		req := valid
		req.Recommendation.SelectedLots = nil
		if err := validation.ValidateExecuteHarvest(req); err == nil {
			t.Error("Expected validation error, got none")
		}
	})

	t.Run("Foreign recommendation", func(t *testing.T) {
		req := valid
		req.Recommendation.UserID = testutil.MakeID()
		if err := validation.ValidateExecuteHarvest(req); err == nil {
			t.Error("Expected validation error, got none")
		}
	})
}

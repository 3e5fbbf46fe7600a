package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/model"
	"github.com/shopspring/decimal"
)

// GainRepository provides data access methods for the realized_gain and
// wash_sale_adjustment tables. Realized gain rows are immutable except for
// the wash-sale disallowance columns.
type GainRepository struct {
	db *sql.DB
}

// NewGainRepository creates a new GainRepository with the provided database connection.
func NewGainRepository(db *sql.DB) *GainRepository {
	return &GainRepository{db: db}
}

// InsertRealizedGain persists one realized gain fragment.
func (s *GainRepository) InsertRealizedGain(q DBTX, g *model.RealizedGain) error {
	query := `
		INSERT INTO realized_gain (id, user_id, fund_id, lot_id, sell_trade_id, sale_date, shares,
		proceeds, cost_basis, gain, holding_period_days, classification, wash_sale_disallowed, disallowed_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.Exec(query,
		g.ID,
		g.UserID,
		g.FundID,
		g.LotID,
		g.SellTradeID,
		g.SaleDate.Format("2006-01-02"),
		g.Shares.String(),
		g.Proceeds.String(),
		g.CostBasis.String(),
		g.Gain.String(),
		g.HoldingPeriodDays,
		g.Classification,
		g.WashSaleDisallowed,
		g.DisallowedAmount.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert realized gain: %w", err)
	}

	return nil
}

// GetGainsByUser retrieves realized gain records for a user within the given
// date range (inclusive), ordered by sale date.
func (s *GainRepository) GetGainsByUser(userID string, startDate, endDate time.Time) ([]model.RealizedGain, error) {
	query := gainSelectColumns + `
		FROM realized_gain
		WHERE user_id = ?
		AND sale_date >= ?
		AND sale_date <= ?
		ORDER BY sale_date ASC, created_at ASC
	`

	rows, err := s.db.Query(query, userID, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query realized_gain table: %w", err)
	}
	defer rows.Close()

	return scanGains(rows)
}

// GetOpenLossFragments retrieves loss fragments for a (user, fund) pair that
// have not been disallowed yet. Wash-sale evaluation runs over these; a
// fragment already disallowed is final and never revisited.
func (s *GainRepository) GetOpenLossFragments(q DBTX, userID, fundID string) ([]model.RealizedGain, error) {
	query := gainSelectColumns + `
		FROM realized_gain
		WHERE user_id = ?
		AND fund_id = ?
		AND wash_sale_disallowed = FALSE
		AND CAST(gain AS REAL) < 0
		ORDER BY sale_date ASC, created_at ASC
	`

	rows, err := q.Query(query, userID, fundID)
	if err != nil {
		return nil, fmt.Errorf("failed to query realized_gain table: %w", err)
	}
	defer rows.Close()

	return scanGains(rows)
}

// GetPendingLossFragments retrieves all non-disallowed loss fragments whose
// wash-sale window has not fully elapsed as of the given date. These records
// are not final for reporting and the scheduled re-scan revisits them.
func (s *GainRepository) GetPendingLossFragments(asOf time.Time, windowDays int) ([]model.RealizedGain, error) {
	cutoff := asOf.AddDate(0, 0, -windowDays)

	query := gainSelectColumns + `
		FROM realized_gain
		WHERE wash_sale_disallowed = FALSE
		AND CAST(gain AS REAL) < 0
		AND sale_date >= ?
		ORDER BY sale_date ASC, created_at ASC
	`

	rows, err := s.db.Query(query, cutoff.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query realized_gain table: %w", err)
	}
	defer rows.Close()

	return scanGains(rows)
}

// MarkDisallowed sets the wash-sale disallowance on a loss fragment. This is
// the only in-place mutation a realized gain record ever receives.
func (s *GainRepository) MarkDisallowed(q DBTX, gainID string, amount decimal.Decimal) error {
	query := `
		UPDATE realized_gain
		SET wash_sale_disallowed = TRUE, disallowed_amount = ?
		WHERE id = ?
	`

	res, err := q.Exec(query, amount.String(), gainID)
	if err != nil {
		return fmt.Errorf("failed to mark realized gain disallowed: %w", err)
	}

	return requireOneRow(res, apperrors.ErrRealizedGainNotFound)
}

// InsertAdjustment records the link between a disallowed fragment and the
// replacement lot that absorbed the loss.
func (s *GainRepository) InsertAdjustment(q DBTX, adj *model.WashSaleAdjustment) error {
	query := `
		INSERT INTO wash_sale_adjustment (id, realized_gain_id, replacement_lot_id, amount)
		VALUES (?, ?, ?, ?)
	`

	_, err := q.Exec(query, adj.ID, adj.RealizedGainID, adj.ReplacementLotID, adj.Amount.String())
	if err != nil {
		return fmt.Errorf("failed to insert wash sale adjustment: %w", err)
	}

	return nil
}

// HasAdjustment reports whether a fragment already has a wash-sale
// adjustment. The unique constraint plus this check keep re-evaluation
// idempotent.
func (s *GainRepository) HasAdjustment(q DBTX, gainID string) (bool, error) {
	var exists bool
	err := q.QueryRow(`SELECT EXISTS(SELECT 1 FROM wash_sale_adjustment WHERE realized_gain_id = ?)`, gainID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check wash sale adjustment: %w", err)
	}
	return exists, nil
}

// GetAdjustmentByGain retrieves the adjustment recorded for a fragment.
func (s *GainRepository) GetAdjustmentByGain(q DBTX, gainID string) (model.WashSaleAdjustment, error) {
	query := `
		SELECT id, realized_gain_id, replacement_lot_id, amount, created_at
		FROM wash_sale_adjustment
		WHERE realized_gain_id = ?
	`

	var adj model.WashSaleAdjustment
	var amountStr, createdAtStr string
	err := q.QueryRow(query, gainID).Scan(
		&adj.ID,
		&adj.RealizedGainID,
		&adj.ReplacementLotID,
		&amountStr,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return model.WashSaleAdjustment{}, apperrors.ErrRealizedGainNotFound
	}
	if err != nil {
		return model.WashSaleAdjustment{}, fmt.Errorf("failed to scan wash_sale_adjustment table results: %w", err)
	}

	adj.Amount, err = ParseDecimal(amountStr)
	if err != nil {
		return model.WashSaleAdjustment{}, err
	}

	adj.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.WashSaleAdjustment{}, fmt.Errorf("failed to parse date: %w", err)
	}

	return adj, nil
}

const gainSelectColumns = `
		SELECT id, user_id, fund_id, lot_id, sell_trade_id, sale_date, shares, proceeds,
		cost_basis, gain, holding_period_days, classification, wash_sale_disallowed, disallowed_amount, created_at
`

func scanGains(rows *sql.Rows) ([]model.RealizedGain, error) {
	gains := []model.RealizedGain{}

	for rows.Next() {
		var saleDateStr, createdAtStr string
		var sharesStr, proceedsStr, costBasisStr, gainStr, disallowedStr string
		var g model.RealizedGain

		err := rows.Scan(
			&g.ID,
			&g.UserID,
			&g.FundID,
			&g.LotID,
			&g.SellTradeID,
			&saleDateStr,
			&sharesStr,
			&proceedsStr,
			&costBasisStr,
			&gainStr,
			&g.HoldingPeriodDays,
			&g.Classification,
			&g.WashSaleDisallowed,
			&disallowedStr,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan realized_gain table results: %w", err)
		}

		g.SaleDate, err = ParseTime(saleDateStr)
		if err != nil || g.SaleDate.IsZero() {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		g.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		for _, field := range []struct {
			dst *decimal.Decimal
			src string
		}{
			{&g.Shares, sharesStr},
			{&g.Proceeds, proceedsStr},
			{&g.CostBasis, costBasisStr},
			{&g.Gain, gainStr},
			{&g.DisallowedAmount, disallowedStr},
		} {
			*field.dst, err = ParseDecimal(field.src)
			if err != nil {
				return nil, err
			}
		}

		gains = append(gains, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating realized_gain table: %w", err)
	}

	return gains, nil
}

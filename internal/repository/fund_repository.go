package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/model"
)

// FundRepository provides data access methods for the fund and fund_price
// tables. The engine only needs the catalog subset that drives harvesting:
// category, AUM and tradeability for replacement selection, and daily prices
// for valuing open lots.
type FundRepository struct {
	db *sql.DB
}

// NewFundRepository creates a new FundRepository with the provided database connection.
func NewFundRepository(db *sql.DB) *FundRepository {
	return &FundRepository{db: db}
}

// GetFund retrieves a single fund by its ID.
func (s *FundRepository) GetFund(fundID string) (model.Fund, error) {
	query := `
		SELECT id, name, isin, symbol, currency, category, aum, is_active, is_tradeable
		FROM fund
		WHERE id = ?
	`

	var f model.Fund
	var aumStr string
	err := s.db.QueryRow(query, fundID).Scan(
		&f.ID,
		&f.Name,
		&f.Isin,
		&f.Symbol,
		&f.Currency,
		&f.Category,
		&aumStr,
		&f.IsActive,
		&f.IsTradeable,
	)
	if err == sql.ErrNoRows {
		return model.Fund{}, apperrors.ErrFundNotFound
	}
	if err != nil {
		return model.Fund{}, fmt.Errorf("failed to scan fund table results: %w", err)
	}

	f.Aum, err = ParseDecimal(aumStr)
	if err != nil {
		return model.Fund{}, err
	}

	return f, nil
}

// GetReplacementFund finds the highest-AUM active, tradeable fund in the same
// category as the given fund, excluding the fund itself. Returns
// apperrors.ErrNoReplacementFund when the category has no other candidate.
func (s *FundRepository) GetReplacementFund(fundID string) (model.Fund, error) {
	query := `
		SELECT r.id, r.name, r.isin, r.symbol, r.currency, r.category, r.aum, r.is_active, r.is_tradeable
		FROM fund r
		JOIN fund orig ON orig.id = ?
		WHERE r.category = orig.category
		AND r.id != orig.id
		AND r.is_active = TRUE
		AND r.is_tradeable = TRUE
		ORDER BY CAST(r.aum AS REAL) DESC, r.id ASC
		LIMIT 1
	`

	var f model.Fund
	var aumStr string
	err := s.db.QueryRow(query, fundID).Scan(
		&f.ID,
		&f.Name,
		&f.Isin,
		&f.Symbol,
		&f.Currency,
		&f.Category,
		&aumStr,
		&f.IsActive,
		&f.IsTradeable,
	)
	if err == sql.ErrNoRows {
		return model.Fund{}, apperrors.ErrNoReplacementFund
	}
	if err != nil {
		return model.Fund{}, fmt.Errorf("failed to scan fund table results: %w", err)
	}

	f.Aum, err = ParseDecimal(aumStr)
	if err != nil {
		return model.Fund{}, err
	}

	return f, nil
}

// GetPrice retrieves the most recent price for a fund on or before the given date.
func (s *FundRepository) GetPrice(fundID string, date time.Time) (model.FundPrice, error) {
	query := `
		SELECT id, fund_id, date, price
		FROM fund_price
		WHERE fund_id = ?
		AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`

	var p model.FundPrice
	var dateStr, priceStr string
	err := s.db.QueryRow(query, fundID, date.Format("2006-01-02")).Scan(
		&p.ID,
		&p.FundID,
		&dateStr,
		&priceStr,
	)
	if err == sql.ErrNoRows {
		return model.FundPrice{}, apperrors.ErrFundPriceNotFound
	}
	if err != nil {
		return model.FundPrice{}, fmt.Errorf("failed to scan fund_price table results: %w", err)
	}

	p.Date, err = ParseTime(dateStr)
	if err != nil || p.Date.IsZero() {
		return model.FundPrice{}, fmt.Errorf("failed to parse date: %w", err)
	}

	p.Price, err = ParseDecimal(priceStr)
	if err != nil {
		return model.FundPrice{}, err
	}

	return p, nil
}

// ListSyncableFunds returns active, tradeable funds that carry a ticker
// symbol, the population the market-data sync refreshes prices for.
func (s *FundRepository) ListSyncableFunds() ([]model.Fund, error) {
	query := `
		SELECT id, name, isin, symbol, currency, category, aum, is_active, is_tradeable
		FROM fund
		WHERE is_active = TRUE
		AND is_tradeable = TRUE
		AND symbol != ''
		ORDER BY id ASC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund table: %w", err)
	}
	defer rows.Close()

	var funds []model.Fund
	for rows.Next() {
		var f model.Fund
		var aumStr string
		if err := rows.Scan(
			&f.ID,
			&f.Name,
			&f.Isin,
			&f.Symbol,
			&f.Currency,
			&f.Category,
			&aumStr,
			&f.IsActive,
			&f.IsTradeable,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fund table results: %w", err)
		}
		f.Aum, err = ParseDecimal(aumStr)
		if err != nil {
			return nil, err
		}
		funds = append(funds, f)
	}

	return funds, rows.Err()
}

// UpsertPrice inserts or replaces the price for a fund on a date.
func (s *FundRepository) UpsertPrice(p *model.FundPrice) error {
	query := `
		INSERT INTO fund_price (id, fund_id, date, price)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (fund_id, date) DO UPDATE SET price = excluded.price
	`

	_, err := s.db.Exec(query,
		p.ID,
		p.FundID,
		p.Date.Format("2006-01-02"),
		p.Price.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fund price: %w", err)
	}

	return nil
}

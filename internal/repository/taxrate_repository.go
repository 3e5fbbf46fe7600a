package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/model"
)

// TaxRateRepository provides data access methods for the tax_rate table.
type TaxRateRepository struct {
	db *sql.DB
}

// NewTaxRateRepository creates a new TaxRateRepository with the provided database connection.
func NewTaxRateRepository(db *sql.DB) *TaxRateRepository {
	return &TaxRateRepository{db: db}
}

// GetRate retrieves the rate for a tax type applicable on the given date:
// the latest rate whose effective date is on or before asOf. Returns
// apperrors.ErrRateTableMissing when none is configured; callers must not
// substitute a zero rate.
func (s *TaxRateRepository) GetRate(taxType string, asOf time.Time) (model.TaxRate, error) {
	query := `
		SELECT id, tax_type, rate, effective_date, created_at
		FROM tax_rate
		WHERE tax_type = ?
		AND effective_date <= ?
		ORDER BY effective_date DESC
		LIMIT 1
	`

	var r model.TaxRate
	var rateStr, effectiveDateStr, createdAtStr string
	err := s.db.QueryRow(query, taxType, asOf.Format("2006-01-02")).Scan(
		&r.ID,
		&r.TaxType,
		&rateStr,
		&effectiveDateStr,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return model.TaxRate{}, fmt.Errorf("%w: %s as of %s", apperrors.ErrRateTableMissing, taxType, asOf.Format("2006-01-02"))
	}
	if err != nil {
		return model.TaxRate{}, fmt.Errorf("failed to scan tax_rate table results: %w", err)
	}

	r.Rate, err = ParseDecimal(rateStr)
	if err != nil {
		return model.TaxRate{}, err
	}

	r.EffectiveDate, err = ParseTime(effectiveDateStr)
	if err != nil || r.EffectiveDate.IsZero() {
		return model.TaxRate{}, fmt.Errorf("failed to parse date: %w", err)
	}

	r.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.TaxRate{}, fmt.Errorf("failed to parse date: %w", err)
	}

	return r, nil
}

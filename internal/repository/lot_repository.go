package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/model"
	"github.com/shopspring/decimal"
)

// LotRepository provides data access methods for the tax_lot table.
// Lots are append-only from the outside: rows are inserted at BUY settlement
// and only the shares, status, closing-sale and cost-basis columns are ever
// updated in place. Nothing deletes a lot.
type LotRepository struct {
	db *sql.DB
}

// NewLotRepository creates a new LotRepository with the provided database connection.
func NewLotRepository(db *sql.DB) *LotRepository {
	return &LotRepository{db: db}
}

// InsertLot persists a newly opened tax lot.
func (s *LotRepository) InsertLot(q DBTX, lot *model.TaxLot) error {
	query := `
		INSERT INTO tax_lot (id, user_id, fund_id, buy_trade_id, buy_trade_seq, shares, cost_basis_per_share, acquisition_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.Exec(query,
		lot.ID,
		lot.UserID,
		lot.FundID,
		lot.BuyTradeID,
		lot.BuyTradeSeq,
		lot.Shares.String(),
		lot.CostBasisPerShare.String(),
		lot.AcquisitionDate.Format("2006-01-02"),
		lot.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert tax lot: %w", err)
	}

	return nil
}

// GetOpenLotsFIFO retrieves all open lots for a (user, fund) pair in FIFO
// consumption order: oldest acquisition date first, ties broken by the
// originating trade's sequence number, then lot ID for determinism.
func (s *LotRepository) GetOpenLotsFIFO(q DBTX, userID, fundID string) ([]model.TaxLot, error) {
	query := lotSelectColumns + `
		FROM tax_lot
		WHERE user_id = ?
		AND fund_id = ?
		AND status = 'open'
		ORDER BY acquisition_date ASC, buy_trade_seq ASC, id ASC
	`

	rows, err := q.Query(query, userID, fundID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax_lot table: %w", err)
	}
	defer rows.Close()

	return scanLots(rows)
}

// GetOpenLotsByUser retrieves all open lots for a user across funds, or for a
// single fund when fundID is non-empty. Same deterministic ordering as
// GetOpenLotsFIFO.
func (s *LotRepository) GetOpenLotsByUser(userID, fundID string) ([]model.TaxLot, error) {
	query := lotSelectColumns + `
		FROM tax_lot
		WHERE user_id = ?
		AND status = 'open'
	`
	args := []any{userID}

	if fundID != "" {
		query += `
		AND fund_id = ?
		`
		args = append(args, fundID)
	}

	query += `
		ORDER BY acquisition_date ASC, buy_trade_seq ASC, id ASC
	`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax_lot table: %w", err)
	}
	defer rows.Close()

	return scanLots(rows)
}

// GetLotsByUser retrieves all lots (open and closed) for a user, optionally
// filtered by fund, ordered by acquisition date.
func (s *LotRepository) GetLotsByUser(userID, fundID string) ([]model.TaxLot, error) {
	query := lotSelectColumns + `
		FROM tax_lot
		WHERE user_id = ?
	`
	args := []any{userID}

	if fundID != "" {
		query += `
		AND fund_id = ?
		`
		args = append(args, fundID)
	}

	query += `
		ORDER BY acquisition_date ASC, buy_trade_seq ASC, id ASC
	`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax_lot table: %w", err)
	}
	defer rows.Close()

	return scanLots(rows)
}

// GetLot retrieves a single lot by its ID.
func (s *LotRepository) GetLot(q DBTX, lotID string) (model.TaxLot, error) {
	query := lotSelectColumns + `
		FROM tax_lot
		WHERE id = ?
	`

	rows, err := q.Query(query, lotID)
	if err != nil {
		return model.TaxLot{}, fmt.Errorf("failed to query tax_lot table: %w", err)
	}
	defer rows.Close()

	lots, err := scanLots(rows)
	if err != nil {
		return model.TaxLot{}, err
	}
	if len(lots) == 0 {
		return model.TaxLot{}, apperrors.ErrLotNotFound
	}

	return lots[0], nil
}

// GetLotByBuyTrade retrieves the lot opened by a specific BUY trade.
func (s *LotRepository) GetLotByBuyTrade(q DBTX, buyTradeID string) (model.TaxLot, error) {
	query := lotSelectColumns + `
		FROM tax_lot
		WHERE buy_trade_id = ?
	`

	rows, err := q.Query(query, buyTradeID)
	if err != nil {
		return model.TaxLot{}, fmt.Errorf("failed to query tax_lot table: %w", err)
	}
	defer rows.Close()

	lots, err := scanLots(rows)
	if err != nil {
		return model.TaxLot{}, err
	}
	if len(lots) == 0 {
		return model.TaxLot{}, apperrors.ErrLotNotFound
	}

	return lots[0], nil
}

// ReduceLotShares updates the remaining open shares of a partially consumed
// lot. The lot keeps its identity and stays open.
func (s *LotRepository) ReduceLotShares(q DBTX, lotID string, remaining decimal.Decimal) error {
	query := `
		UPDATE tax_lot
		SET shares = ?
		WHERE id = ?
		AND status = 'open'
	`

	res, err := q.Exec(query, remaining.String(), lotID)
	if err != nil {
		return fmt.Errorf("failed to reduce lot shares: %w", err)
	}

	return requireOneRow(res, apperrors.ErrLotNotFound)
}

// CloseLot marks a fully consumed lot closed, recording the closing sale.
func (s *LotRepository) CloseLot(q DBTX, lotID, sellTradeID string, saleDate time.Time, salePricePerShare decimal.Decimal) error {
	query := `
		UPDATE tax_lot
		SET shares = '0', status = 'closed', sell_trade_id = ?, sale_date = ?, sale_price_per_share = ?
		WHERE id = ?
		AND status = 'open'
	`

	res, err := q.Exec(query, sellTradeID, saleDate.Format("2006-01-02"), salePricePerShare.String(), lotID)
	if err != nil {
		return fmt.Errorf("failed to close lot: %w", err)
	}

	return requireOneRow(res, apperrors.ErrLotNotFound)
}

// SetLotBasis updates the cost basis per share of a replacement lot after a
// wash-sale adjustment. Basis only ever increases; the acquisition date is
// untouched so the holding period is not reset.
func (s *LotRepository) SetLotBasis(q DBTX, lotID string, basisPerShare decimal.Decimal) error {
	query := `
		UPDATE tax_lot
		SET cost_basis_per_share = ?
		WHERE id = ?
	`

	res, err := q.Exec(query, basisPerShare.String(), lotID)
	if err != nil {
		return fmt.Errorf("failed to adjust lot basis: %w", err)
	}

	return requireOneRow(res, apperrors.ErrLotNotFound)
}

// SumOpenShares returns the total open shares for a (user, fund) pair.
func (s *LotRepository) SumOpenShares(q DBTX, userID, fundID string) (decimal.Decimal, error) {
	query := `
		SELECT shares
		FROM tax_lot
		WHERE user_id = ?
		AND fund_id = ?
		AND status = 'open'
	`

	rows, err := q.Query(query, userID, fundID)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to query tax_lot table: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var sharesStr string
		if err := rows.Scan(&sharesStr); err != nil {
			return decimal.Decimal{}, fmt.Errorf("failed to scan tax_lot table results: %w", err)
		}

		shares, err := ParseDecimal(sharesStr)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(shares)
	}
	if err = rows.Err(); err != nil {
		return decimal.Decimal{}, fmt.Errorf("error iterating tax_lot table: %w", err)
	}

	return total, nil
}

const lotSelectColumns = `
		SELECT id, user_id, fund_id, buy_trade_id, buy_trade_seq, shares, cost_basis_per_share,
		acquisition_date, status, sell_trade_id, sale_date, sale_price_per_share, created_at
`

func scanLots(rows *sql.Rows) ([]model.TaxLot, error) {
	lots := []model.TaxLot{}

	for rows.Next() {
		var acquisitionDateStr, createdAtStr string
		var sharesStr, basisStr string
		var sellTradeID, saleDateStr, salePriceStr sql.NullString
		var l model.TaxLot

		err := rows.Scan(
			&l.ID,
			&l.UserID,
			&l.FundID,
			&l.BuyTradeID,
			&l.BuyTradeSeq,
			&sharesStr,
			&basisStr,
			&acquisitionDateStr,
			&l.Status,
			&sellTradeID,
			&saleDateStr,
			&salePriceStr,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tax_lot table results: %w", err)
		}

		l.AcquisitionDate, err = ParseTime(acquisitionDateStr)
		if err != nil || l.AcquisitionDate.IsZero() {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		l.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		l.Shares, err = ParseDecimal(sharesStr)
		if err != nil {
			return nil, err
		}

		l.CostBasisPerShare, err = ParseDecimal(basisStr)
		if err != nil {
			return nil, err
		}

		if sellTradeID.Valid {
			l.SellTradeID = sellTradeID.String
		}
		if saleDateStr.Valid {
			saleDate, err := ParseTime(saleDateStr.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse date: %w", err)
			}
			l.SaleDate = &saleDate
		}
		if salePriceStr.Valid {
			l.SalePricePerShare, err = ParseDecimal(salePriceStr.String)
			if err != nil {
				return nil, err
			}
		}

		lots = append(lots, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tax_lot table: %w", err)
	}

	return lots, nil
}

func requireOneRow(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

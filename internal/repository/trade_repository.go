package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fundfolio/tax-lot-engine/internal/apperrors"
	"github.com/fundfolio/tax-lot-engine/internal/model"
	"github.com/shopspring/decimal"
)

// TradeRepository provides data access methods for the trade table.
// Trades are immutable once inserted; there are no update or delete methods.
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository creates a new TradeRepository with the provided database connection.
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// InsertTrade persists a settled trade and assigns it the next sequence
// number. The sequence is the FIFO tie-breaker for same-day acquisitions.
// Returns apperrors.ErrDuplicateTrade if the trade ID was already settled,
// so settlement delivery stays effectively exactly-once.
func (s *TradeRepository) InsertTrade(q DBTX, t *model.Trade) error {
	var exists bool
	err := q.QueryRow(`SELECT EXISTS(SELECT 1 FROM trade WHERE id = ?)`, t.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check for existing trade: %w", err)
	}
	if exists {
		return apperrors.ErrDuplicateTrade
	}

	insertQuery := `
		INSERT INTO trade (id, seq, user_id, fund_id, side, shares, price_per_share, trade_date, settlement_date)
		VALUES (?, (SELECT IFNULL(MAX(seq), 0) + 1 FROM trade), ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = q.Exec(insertQuery,
		t.ID,
		t.UserID,
		t.FundID,
		t.Side,
		t.Shares.String(),
		t.PricePerShare.String(),
		t.TradeDate.Format("2006-01-02"),
		t.SettlementDate.Format("2006-01-02"),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	err = q.QueryRow(`SELECT seq FROM trade WHERE id = ?`, t.ID).Scan(&t.Seq)
	if err != nil {
		return fmt.Errorf("failed to read back trade sequence: %w", err)
	}

	return nil
}

// GetBuyTradesInWindow retrieves BUY trades for a (user, fund) pair whose
// trade date falls within [from, to], ordered chronologically (sequence as
// tie-breaker). Used by wash-sale detection to find disallowing repurchases.
func (s *TradeRepository) GetBuyTradesInWindow(q DBTX, userID, fundID string, from, to time.Time) ([]model.Trade, error) {
	query := `
		SELECT id, seq, user_id, fund_id, side, shares, price_per_share, trade_date, settlement_date, created_at
		FROM trade
		WHERE user_id = ?
		AND fund_id = ?
		AND side = 'BUY'
		AND trade_date >= ?
		AND trade_date <= ?
		ORDER BY trade_date ASC, seq ASC
	`

	rows, err := q.Query(query, userID, fundID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query trade table: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// NetSettledShares computes buys minus sells across all settled trades for a
// (user, fund) pair. The ledger reconciliation invariant compares this
// against the sum of open lot shares.
func (s *TradeRepository) NetSettledShares(q DBTX, userID, fundID string) (decimal.Decimal, error) {
	query := `
		SELECT side, shares
		FROM trade
		WHERE user_id = ?
		AND fund_id = ?
	`

	rows, err := q.Query(query, userID, fundID)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to query trade table: %w", err)
	}
	defer rows.Close()

	net := decimal.Zero
	for rows.Next() {
		var side, sharesStr string
		if err := rows.Scan(&side, &sharesStr); err != nil {
			return decimal.Decimal{}, fmt.Errorf("failed to scan trade table results: %w", err)
		}

		shares, err := ParseDecimal(sharesStr)
		if err != nil {
			return decimal.Decimal{}, err
		}

		if side == model.TradeSideBuy {
			net = net.Add(shares)
		} else {
			net = net.Sub(shares)
		}
	}
	if err = rows.Err(); err != nil {
		return decimal.Decimal{}, fmt.Errorf("error iterating trade table: %w", err)
	}

	return net, nil
}

// GetTrade retrieves a single trade by its ID.
func (s *TradeRepository) GetTrade(tradeID string) (model.Trade, error) {
	query := `
		SELECT id, seq, user_id, fund_id, side, shares, price_per_share, trade_date, settlement_date, created_at
		FROM trade
		WHERE id = ?
	`

	rows, err := s.db.Query(query, tradeID)
	if err != nil {
		return model.Trade{}, fmt.Errorf("failed to query trade table: %w", err)
	}
	defer rows.Close()

	trades, err := scanTrades(rows)
	if err != nil {
		return model.Trade{}, err
	}
	if len(trades) == 0 {
		return model.Trade{}, apperrors.ErrTradeNotFound
	}

	return trades[0], nil
}

func scanTrades(rows *sql.Rows) ([]model.Trade, error) {
	trades := []model.Trade{}

	for rows.Next() {
		var tradeDateStr, settlementDateStr, createdAtStr string
		var sharesStr, priceStr string
		var t model.Trade

		err := rows.Scan(
			&t.ID,
			&t.Seq,
			&t.UserID,
			&t.FundID,
			&t.Side,
			&sharesStr,
			&priceStr,
			&tradeDateStr,
			&settlementDateStr,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade table results: %w", err)
		}

		t.TradeDate, err = ParseTime(tradeDateStr)
		if err != nil || t.TradeDate.IsZero() {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		t.SettlementDate, err = ParseTime(settlementDateStr)
		if err != nil || t.SettlementDate.IsZero() {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		t.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		t.Shares, err = ParseDecimal(sharesStr)
		if err != nil {
			return nil, err
		}

		t.PricePerShare, err = ParseDecimal(priceStr)
		if err != nil {
			return nil, err
		}

		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade table: %w", err)
	}

	return trades, nil
}

package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite" // Test Package
)

// SetupTestDB creates an in-memory SQLite database for testing.
// The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// In-memory database (destroyed when connection closes)
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	// Configure SQLite for testing
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = MEMORY", // Faster for tests
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			t.Fatalf("Failed to set pragma: %v", err)
		}
	}

	// Create schema
	if err := createTestSchema(db); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	// Cleanup when test ends
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// createTestSchema creates all database tables for testing.
// Schema is synchronized with the embedded production migrations.
func createTestSchema(db *sql.DB) error {
	schema := `
		-- Fund table
		CREATE TABLE fund (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			isin VARCHAR(12) NOT NULL UNIQUE,
			symbol VARCHAR(10) NOT NULL DEFAULT '',
			currency VARCHAR(3) NOT NULL,
			category VARCHAR(50) NOT NULL,
			aum TEXT NOT NULL DEFAULT '0',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_tradeable BOOLEAN NOT NULL DEFAULT TRUE
		);

		-- Fund price table
		CREATE TABLE fund_price (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			fund_id VARCHAR(36) NOT NULL,
			date DATE NOT NULL,
			price TEXT NOT NULL,
			FOREIGN KEY(fund_id) REFERENCES fund(id),
			CONSTRAINT unique_fund_price UNIQUE (fund_id, date)
		);

		-- Trade table
		CREATE TABLE trade (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			seq INTEGER NOT NULL UNIQUE,
			user_id VARCHAR(36) NOT NULL,
			fund_id VARCHAR(36) NOT NULL,
			side VARCHAR(4) NOT NULL,
			shares TEXT NOT NULL,
			price_per_share TEXT NOT NULL,
			trade_date DATE NOT NULL,
			settlement_date DATE NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(fund_id) REFERENCES fund(id)
		);

		-- Tax lot table
		CREATE TABLE tax_lot (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			fund_id VARCHAR(36) NOT NULL,
			buy_trade_id VARCHAR(36) NOT NULL,
			buy_trade_seq INTEGER NOT NULL,
			shares TEXT NOT NULL,
			cost_basis_per_share TEXT NOT NULL,
			acquisition_date DATE NOT NULL,
			status VARCHAR(6) NOT NULL DEFAULT 'open',
			sell_trade_id VARCHAR(36),
			sale_date DATE,
			sale_price_per_share TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(fund_id) REFERENCES fund(id),
			FOREIGN KEY(buy_trade_id) REFERENCES trade(id)
		);

		-- Realized gain table
		CREATE TABLE realized_gain (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			fund_id VARCHAR(36) NOT NULL,
			lot_id VARCHAR(36) NOT NULL,
			sell_trade_id VARCHAR(36) NOT NULL,
			sale_date DATE NOT NULL,
			shares TEXT NOT NULL,
			proceeds TEXT NOT NULL,
			cost_basis TEXT NOT NULL,
			gain TEXT NOT NULL,
			holding_period_days INTEGER NOT NULL,
			classification VARCHAR(10) NOT NULL,
			wash_sale_disallowed BOOLEAN NOT NULL DEFAULT FALSE,
			disallowed_amount TEXT NOT NULL DEFAULT '0',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(lot_id) REFERENCES tax_lot(id),
			FOREIGN KEY(sell_trade_id) REFERENCES trade(id)
		);

		-- Wash sale adjustment table
		CREATE TABLE wash_sale_adjustment (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			realized_gain_id VARCHAR(36) NOT NULL UNIQUE,
			replacement_lot_id VARCHAR(36) NOT NULL,
			amount TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(realized_gain_id) REFERENCES realized_gain(id),
			FOREIGN KEY(replacement_lot_id) REFERENCES tax_lot(id)
		);

		-- Tax rate table
		CREATE TABLE tax_rate (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			tax_type VARCHAR(10) NOT NULL,
			rate TEXT NOT NULL,
			effective_date DATE NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT unique_tax_rate UNIQUE (tax_type, effective_date)
		);

		-- Indexes
		CREATE INDEX ix_trade_user_fund ON trade(user_id, fund_id);
		CREATE INDEX ix_trade_fund_date ON trade(fund_id, trade_date);
		CREATE INDEX ix_tax_lot_user_fund ON tax_lot(user_id, fund_id);
		CREATE INDEX ix_tax_lot_status ON tax_lot(status);
		CREATE INDEX ix_realized_gain_user ON realized_gain(user_id);
		CREATE INDEX ix_realized_gain_sale_date ON realized_gain(sale_date);
		CREATE INDEX ix_realized_gain_sell_trade ON realized_gain(sell_trade_id);
		CREATE INDEX ix_fund_price_fund_date ON fund_price(fund_id, date);
		CREATE INDEX ix_tax_rate_effective ON tax_rate(tax_type, effective_date);
	`

	_, err := db.Exec(schema)
	return err
}

// CleanDatabase removes all data from all tables.
// Useful for test isolation when sharing one database between subtests.
//
// Example usage:
//
//	func TestMultipleThings(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//
//	    t.Run("First test", func(t *testing.T) {
//	        // Create data
//	        testutil.CleanDatabase(t, db)  // Clean after
//	    })
//
//	    t.Run("Second test", func(t *testing.T) {
//	        // Fresh clean database
//	    })
//	}
func CleanDatabase(t *testing.T, db *sql.DB) {
	t.Helper()

	// Order matters: delete children before parents due to foreign keys
	tables := []string{
		"wash_sale_adjustment",
		"realized_gain",
		"tax_lot",
		"trade",
		"tax_rate",
		"fund_price",
		"fund",
	}

	for _, table := range tables {
		//nolint:gosec // G202: Table names are from hardcoded slice, no SQL injection risk
		query := "DELETE FROM " + table
		if _, err := db.Exec(query); err != nil {
			t.Fatalf("Failed to clean table %s: %v", table, err)
		}
	}
}

// CountRows returns the number of rows in a table.
// Useful for assertions in tests.
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var count int
	query := "SELECT COUNT(*) FROM " + table
	err := db.QueryRow(query).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}

	return count
}

// AssertRowCount asserts that a table has the expected number of rows.
//
// Example usage:
//
//	testutil.AssertRowCount(t, db, "tax_lot", 2)
func AssertRowCount(t *testing.T, db *sql.DB, table string, expected int) {
	t.Helper()

	actual := CountRows(t, db, table)
	if actual != expected {
		t.Errorf("Expected %d rows in %s, got %d", expected, table, actual)
	}
}

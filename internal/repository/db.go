package repository

import "database/sql"

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Ledger mutations run inside a settlement transaction, so the mutating
// repository methods accept a DBTX instead of binding to the pooled handle.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

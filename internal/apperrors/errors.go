package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrFundNotFound indicates that a fund with the given ID does not exist.
	ErrFundNotFound = errors.New("fund not found")

	// ErrFundPriceNotFound indicates no price record for a specific fund and date combination.
	ErrFundPriceNotFound = errors.New("fund price not found")

	// ErrTradeNotFound indicates that a trade with the given ID does not exist.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrLotNotFound indicates that a tax lot with the given ID does not exist.
	ErrLotNotFound = errors.New("tax lot not found")

	// ErrRealizedGainNotFound indicates that a realized gain record does not exist.
	ErrRealizedGainNotFound = errors.New("realized gain record not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInsufficientShares indicates that a sell settlement requests more shares
	// than are currently open for the (user, fund) ledger. The enclosing
	// settlement is aborted and the trading collaborator must reject or compensate.
	ErrInsufficientShares = errors.New("insufficient shares for sale")

	// ErrStaleLedger indicates that a harvesting execution was built from a
	// snapshot that no longer matches the live ledger. Retryable: recompute
	// the recommendation.
	ErrStaleLedger = errors.New("ledger changed since recommendation snapshot")

	// ErrNoReplacementFund indicates no active tradeable fund in the same
	// category could be proposed as a replacement. Non-fatal; harvesting
	// proceeds without a suggestion.
	ErrNoReplacementFund = errors.New("no replacement fund found")

	// ErrRateTableMissing indicates no applicable tax rate is configured for
	// the requested period. Liability calculation fails closed rather than
	// defaulting to zero tax.
	ErrRateTableMissing = errors.New("no applicable tax rate configured")

	// ErrDuplicateTrade indicates a settlement event was delivered for a trade
	// ID that has already been processed.
	ErrDuplicateTrade = errors.New("trade already settled")

	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrEmptyID indicates that a required ID parameter is empty or missing.
	ErrEmptyID = errors.New("ID cannot be empty")
)

// Operation failure errors represent system-level failures when retrieving or
// processing data, not caused by missing entities or validation issues.
var (
	ErrFailedToRetrieveLots     = errors.New("failed to retrieve tax lots")
	ErrFailedToRetrieveGains    = errors.New("failed to retrieve realized gains")
	ErrFailedToRetrieveTrades   = errors.New("failed to retrieve trades")
	ErrFailedToSettleTrade      = errors.New("failed to settle trade")
	ErrFailedToCalculateTax     = errors.New("failed to calculate tax liability")
	ErrFailedToOptimizeHarvest  = errors.New("failed to compute harvest recommendation")
	ErrFailedToExecuteHarvest   = errors.New("failed to execute harvest recommendation")
	ErrFailedToRescanWashSales  = errors.New("failed to re-scan wash sales")
	ErrFailedToGetVersionInfo   = errors.New("failed to get version information")
)

// Data integrity errors represent inconsistencies or corruption in the data.
var (
	// ErrLedgerReconciliation indicates that open lot shares no longer match
	// the net settled shares for a (user, fund) pair.
	ErrLedgerReconciliation = errors.New("ledger does not reconcile with trade history")

	// ErrFragmentMismatch indicates that the realized fragments emitted for a
	// sell trade do not sum to the trade's share count.
	ErrFragmentMismatch = errors.New("realized fragments do not sum to trade shares")
)

package validation

import (
	"strings"
	"time"

	"github.com/fundfolio/tax-lot-engine/internal/api/request"
	"github.com/shopspring/decimal"
)

// ValidTradeSide contains the allowed trade side values.
var ValidTradeSide = map[string]bool{
	"BUY": true, "SELL": true,
}

// ValidateSettleTrade validates a trade settlement event.
// Checks all required fields and validates their formats and constraints.
//
// Required fields:
//   - tradeId, userId, fundId: Must be valid UUIDs
//   - side: Must be BUY or SELL
//   - shares, pricePerShare: Must be positive decimal strings
//   - tradeDate, settlementDate: Must be in YYYY-MM-DD format; settlement
//     must not precede the trade date
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateSettleTrade(req request.SettleTradeRequest) error {
	errors := make(map[string]string)

	for field, id := range map[string]string{
		"tradeId": req.TradeID,
		"userId":  req.UserID,
		"fundId":  req.FundID,
	} {
		if err := ValidateUUID(id); err != nil {
			errors[field] = err.Error()
		}
	}

	side := strings.ToUpper(strings.TrimSpace(req.Side))
	if side == "" {
		errors["side"] = "side is required"
	} else if !ValidTradeSide[side] {
		errors["side"] = "side must be BUY or SELL"
	}

	validatePositiveDecimal(errors, "shares", req.Shares)
	validatePositiveDecimal(errors, "pricePerShare", req.PricePerShare)

	tradeDate, ok := validateDate(errors, "tradeDate", req.TradeDate)
	settlementDate, ok2 := validateDate(errors, "settlementDate", req.SettlementDate)
	if ok && ok2 && settlementDate.Before(tradeDate) {
		errors["settlementDate"] = "settlement date cannot precede trade date"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

func validatePositiveDecimal(errors map[string]string, field, value string) {
	if strings.TrimSpace(value) == "" {
		errors[field] = field + " is required"
		return
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		errors[field] = "must be a decimal number"
		return
	}
	if !d.IsPositive() {
		errors[field] = "must be positive"
	}
}

func validateDate(errors map[string]string, field, value string) (time.Time, bool) {
	if strings.TrimSpace(value) == "" {
		errors[field] = field + " is required"
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		errors[field] = err.Error()
		return time.Time{}, false
	}
	return t, true
}

package currency

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateNotFound means no stored rate exists for the ordered pair. Money
// paths must treat this as fatal for the operation; only the refresher may
// fall back to constants.
var ErrRateNotFound = errors.New("currency: rate not found")

// Rate is a stored conversion factor for one ordered currency pair. Pairs are
// asymmetric: the A->B rate says nothing about B->A.
type Rate struct {
	ID           int64
	FromCurrency string
	ToCurrency   string
	Rate         decimal.Decimal
	UpdatedAt    time.Time
}

// ForPhone derives the wallet currency from the phone country prefix.
func ForPhone(phone string) string {
	switch {
	case strings.HasPrefix(phone, "+237"):
		return "XAF"
	case strings.HasPrefix(phone, "+33"):
		return "EUR"
	default:
		return "USD"
	}
}

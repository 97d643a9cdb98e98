package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the per-user balance holder. Balances are mutated only through
// this package, inside a database transaction that also records the paired
// transaction rows.
type Wallet struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

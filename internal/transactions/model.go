package transactions

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types. Every transfer or withdrawal writes exactly one debit
// and one credit row; recharges and webhook credits write a single credit.
const (
	TypeDebit  = "debit"
	TypeCredit = "credit"
)

// Transaction statuses. Rows are immutable after creation except for the
// pending -> completed|failed transition driven by the webhook path.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Transaction is one single-sided money movement.
type Transaction struct {
	ID          int64           `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Fees        decimal.Decimal `json:"fees"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Currency    string          `json:"currency"`
	UserID      int64           `json:"user_id"`
	RecipientID *int64          `json:"recipient_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

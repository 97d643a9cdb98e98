package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("transactions: not found")
	ErrInvalidTransition = errors.New("transactions: invalid status transition")
)

// Record carries the fields of a transaction row to be appended.
type Record struct {
	UserID      int64
	RecipientID *int64
	Amount      decimal.Decimal
	Fees        decimal.Decimal
	Type        string
	Status      string
	Currency    string
}

// Recorder appends transaction rows and reads history. Rows are never
// updated after creation except through MarkStatus.
type Recorder struct {
	pool *pgxpool.Pool
}

func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

const txnColumns = `id, amount, fees, type, status, currency, user_id, recipient_id, created_at, updated_at`

func scanTxn(row pgx.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Amount, &t.Fees, &t.Type, &t.Status, &t.Currency,
		&t.UserID, &t.RecipientID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RecordTx appends a row inside the caller's transaction, so the record
// commits or rolls back together with the balance mutation it describes.
func RecordTx(ctx context.Context, tx pgx.Tx, rec Record) (*Transaction, error) {
	return scanTxn(tx.QueryRow(ctx, `
		INSERT INTO transactions (amount, fees, type, status, currency, user_id, recipient_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+txnColumns,
		rec.Amount, rec.Fees, rec.Type, rec.Status, rec.Currency, rec.UserID, rec.RecipientID))
}

// MarkStatus flips a pending transaction to completed or failed. Any other
// transition is rejected before touching the database.
func (r *Recorder) MarkStatus(ctx context.Context, id int64, status string) error {
	if status != StatusCompleted && status != StatusFailed {
		return fmt.Errorf("%w: pending -> %s", ErrInvalidTransition, status)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		status, id, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Recorder) ByID(ctx context.Context, id int64) (*Transaction, error) {
	return scanTxn(r.pool.QueryRow(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE id = $1`, id))
}

// HistoryFilter narrows a history query. Zero times default to the last 30
// days; AllUsers is the admin view.
type HistoryFilter struct {
	UserID   int64
	Start    time.Time
	End      time.Time
	AllUsers bool
}

// History lists transactions where the user is either side of the movement,
// newest first.
func (r *Recorder) History(ctx context.Context, f HistoryFilter) ([]Transaction, error) {
	if f.Start.IsZero() {
		f.Start = time.Now().AddDate(0, 0, -30)
	}
	if f.End.IsZero() {
		f.End = time.Now()
	}

	query := `SELECT ` + txnColumns + ` FROM transactions WHERE created_at BETWEEN $1 AND $2`
	args := []any{f.Start, f.End}
	if !f.AllUsers {
		query += ` AND (user_id = $3 OR recipient_id = $3)`
		args = append(args, f.UserID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.Amount, &t.Fees, &t.Type, &t.Status, &t.Currency,
			&t.UserID, &t.RecipientID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

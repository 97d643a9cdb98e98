package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads wallets outside of a money-moving transaction. All balance
// mutations go through Books.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const walletColumns = `id, user_id, balance, currency, created_at, updated_at`

func scanWallet(row pgx.Row) (*Wallet, error) {
	var w Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Store) ByID(ctx context.Context, id int64) (*Wallet, error) {
	return scanWallet(s.pool.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id))
}

func (s *Store) ByUserID(ctx context.Context, userID int64) (*Wallet, error) {
	return scanWallet(s.pool.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID))
}

// CreateTx inserts a zero-balance wallet inside the caller's transaction,
// used during registration so user and wallet commit together.
func CreateTx(ctx context.Context, tx pgx.Tx, userID int64, currencyCode string) (*Wallet, error) {
	return scanWallet(tx.QueryRow(ctx, `
		INSERT INTO wallets (user_id, balance, currency)
		VALUES ($1, 0, $2)
		RETURNING `+walletColumns, userID, currencyCode))
}

package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// lockTx takes the row lock for one wallet. Every balance mutation in this
// package runs behind this lock so concurrent operations on the same wallet
// serialize instead of losing updates.
func lockTx(ctx context.Context, tx pgx.Tx, walletID int64) (*Wallet, error) {
	return scanWallet(tx.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, walletID))
}

// lockPairTx locks two wallets in ascending id order. Two transfers moving
// funds in opposite directions then acquire the locks in the same order and
// cannot deadlock each other.
func lockPairTx(ctx context.Context, tx pgx.Tx, aID, bID int64) (a, b *Wallet, err error) {
	first, second := aID, bID
	if second < first {
		first, second = second, first
	}
	w1, err := lockTx(ctx, tx, first)
	if err != nil {
		return nil, nil, err
	}
	w2, err := lockTx(ctx, tx, second)
	if err != nil {
		return nil, nil, err
	}
	if w1.ID == aID {
		return w1, w2, nil
	}
	return w2, w1, nil
}

// increaseTx unconditionally adds amount to the locked wallet and returns the
// new balance.
func increaseTx(ctx context.Context, tx pgx.Tx, walletID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE wallets SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING balance`, amount, walletID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrWalletNotFound
	}
	return balance, err
}

// decreaseTx subtracts amount only when the balance covers it. The guard is
// part of the UPDATE itself, so even without the prior row lock the balance
// can never go negative.
func decreaseTx(ctx context.Context, tx pgx.Tx, walletID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE wallets SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1
		RETURNING balance`, amount, walletID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrInsufficientFunds
	}
	return balance, err
}

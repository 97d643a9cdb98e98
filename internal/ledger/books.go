package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"perfectpay-backend/internal/transactions"
)

// Movement describes a paired debit/credit between two wallets. The debit
// and credit legs may differ in amount and currency when the transfer
// crosses currencies; the caller converts before building the Movement.
type Movement struct {
	DebitWalletID  int64
	CreditWalletID int64
	DebitUserID    int64
	CreditUserID   int64
	DebitAmount    decimal.Decimal
	CreditAmount   decimal.Decimal
	DebitCurrency  string
	CreditCurrency string
	Fees           decimal.Decimal
}

// CreditEntry describes a single-sided credit (recharge, webhook payout).
type CreditEntry struct {
	WalletID int64
	UserID   int64
	Amount   decimal.Decimal
	Currency string
}

// TransferResult reports the committed movement. Balances are the values
// after commit, for notification messages.
type TransferResult struct {
	Debit         *transactions.Transaction
	Credit        *transactions.Transaction
	DebitBalance  decimal.Decimal
	CreditBalance decimal.Decimal
}

// CreditResult reports a committed single-sided credit.
type CreditResult struct {
	Credit  *transactions.Transaction
	Balance decimal.Decimal
}

// Books executes money movements. Each method is one database transaction:
// the balance mutation and the transaction rows describing it commit
// together or not at all. Locks are released at commit, before any
// notification is attempted.
type Books struct {
	pool *pgxpool.Pool
}

func NewBooks(pool *pgxpool.Pool) *Books {
	return &Books{pool: pool}
}

// TransferFunds debits one wallet and credits another atomically, recording
// the debit and credit rows as completed. Both wallets are locked in id
// order for the duration of the mutation.
func (b *Books) TransferFunds(ctx context.Context, mv Movement) (*TransferResult, error) {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, _, err := lockPairTx(ctx, tx, mv.DebitWalletID, mv.CreditWalletID); err != nil {
		return nil, err
	}

	debitBal, err := decreaseTx(ctx, tx, mv.DebitWalletID, mv.DebitAmount)
	if err != nil {
		return nil, err
	}
	creditBal, err := increaseTx(ctx, tx, mv.CreditWalletID, mv.CreditAmount)
	if err != nil {
		return nil, err
	}

	debit, err := transactions.RecordTx(ctx, tx, transactions.Record{
		UserID:      mv.DebitUserID,
		RecipientID: &mv.CreditUserID,
		Amount:      mv.DebitAmount,
		Fees:        mv.Fees,
		Type:        transactions.TypeDebit,
		Status:      transactions.StatusCompleted,
		Currency:    mv.DebitCurrency,
	})
	if err != nil {
		return nil, err
	}
	credit, err := transactions.RecordTx(ctx, tx, transactions.Record{
		UserID:      mv.CreditUserID,
		RecipientID: &mv.CreditUserID,
		Amount:      mv.CreditAmount,
		Fees:        decimal.Zero,
		Type:        transactions.TypeCredit,
		Status:      transactions.StatusCompleted,
		Currency:    mv.CreditCurrency,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &TransferResult{
		Debit:         debit,
		Credit:        credit,
		DebitBalance:  debitBal,
		CreditBalance: creditBal,
	}, nil
}

// CreditWallet increases a wallet and records the credit row in one
// transaction. Used by confirmed mobile-money recharges.
func (b *Books) CreditWallet(ctx context.Context, cr CreditEntry) (*CreditResult, error) {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := lockTx(ctx, tx, cr.WalletID); err != nil {
		return nil, err
	}
	balance, err := increaseTx(ctx, tx, cr.WalletID, cr.Amount)
	if err != nil {
		return nil, err
	}
	credit, err := transactions.RecordTx(ctx, tx, transactions.Record{
		UserID:   cr.UserID,
		Amount:   cr.Amount,
		Fees:     decimal.Zero,
		Type:     transactions.TypeCredit,
		Status:   transactions.StatusCompleted,
		Currency: cr.Currency,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &CreditResult{Credit: credit, Balance: balance}, nil
}

// CreditFromEvent applies a payment-gateway event exactly once. The event id
// insert and the credit share one transaction, so a replayed webhook either
// sees the id already present (ErrEventProcessed, no mutation) or the whole
// unit rolls back.
func (b *Books) CreditFromEvent(ctx context.Context, eventID, eventType string, cr CreditEntry) (*CreditResult, error) {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO payment_events (id, type) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`, eventID, eventType)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrEventProcessed
	}

	if _, err := lockTx(ctx, tx, cr.WalletID); err != nil {
		return nil, err
	}
	balance, err := increaseTx(ctx, tx, cr.WalletID, cr.Amount)
	if err != nil {
		return nil, err
	}
	credit, err := transactions.RecordTx(ctx, tx, transactions.Record{
		UserID:   cr.UserID,
		Amount:   cr.Amount,
		Fees:     decimal.Zero,
		Type:     transactions.TypeCredit,
		Status:   transactions.StatusCompleted,
		Currency: cr.Currency,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &CreditResult{Credit: credit, Balance: balance}, nil
}

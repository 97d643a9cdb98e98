package ledger

import "errors"

var (
	// ErrInsufficientFunds is returned by a decrease that would take the
	// balance below zero. The wallet is left untouched.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrWalletNotFound is returned when the wallet row does not exist.
	ErrWalletNotFound = errors.New("ledger: wallet not found")

	// ErrEventProcessed is returned by CreditFromEvent when the external
	// event id has already been applied. The wallet is not credited again.
	ErrEventProcessed = errors.New("ledger: payment event already processed")
)

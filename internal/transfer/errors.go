package transfer

import "errors"

var (
	ErrSelfTransfer        = errors.New("transfer: sender and recipient are the same account")
	ErrInvalidCredentials  = errors.New("transfer: invalid pin")
	ErrRecipientNotFound   = errors.New("transfer: recipient not found")
	ErrBelowMinimum        = errors.New("transfer: amount below minimum")
	ErrUnsupportedOperator = errors.New("transfer: unsupported mobile money operator")
)

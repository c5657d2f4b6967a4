package pool

import "errors"

// Operation errors. Each aborts the call before any state is mutated; there
// is no partial rollback to perform when one of these is returned.
var (
	ErrDepositsDisabled    = errors.New("deposits are disabled")
	ErrWithdrawalsDisabled = errors.New("withdrawals are disabled")
	ErrPoolInactive        = errors.New("pool is deactivated")
	ErrZeroAmount          = errors.New("amount must be greater than zero")
	ErrInsufficientFunds   = errors.New("amount exceeds depositor balance")
	ErrRedundantChange     = errors.New("governance value unchanged")
	ErrUnauthorized        = errors.New("caller is not authorized")
)

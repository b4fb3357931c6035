package trading

import "errors"

var (
	// ErrNoWallet means a trade was attempted before a wallet was provisioned.
	ErrNoWallet = errors.New("trading: no wallet found")

	// ErrOrderNotFound covers both a missing order and an order owned by a
	// different user; callers cannot tell the two apart.
	ErrOrderNotFound = errors.New("trading: order not found or unauthorized")

	// ErrNotPending means a cancel hit an order already in a terminal state.
	ErrNotPending = errors.New("trading: only pending orders can be cancelled")

	// ErrValidation flags malformed trade parameters.
	ErrValidation = errors.New("trading: invalid trade parameters")
)

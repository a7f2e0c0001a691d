package dex

import (
	"errors"
	"fmt"
)

var (
	ErrTokenMismatch      = errors.New("orders do not trade the same token pair")
	ErrRelayerMismatch    = errors.New("caller is not the relayer the order is restricted to")
	ErrUnprofitableSpread = errors.New("orders are not priced profitably for each other")
	ErrUnauthorized       = errors.New("caller is not the order owner")
	ErrMalformedOrder     = errors.New("order quantity is not a uint256")
	ErrInsufficientFunds  = errors.New("insufficient funds")

	ErrInvalidTxnSig = errors.New("transaction signature does not match its owner")
	ErrBadNonce      = errors.New("transaction nonce does not match the account nonce")
	ErrUnknownTxn    = errors.New("unknown transaction type")
)

// NotFillableError is returned when an order of a match is not in the
// Fillable status.
type NotFillableError struct {
	Side   Side
	Status OrderStatus
}

func (e *NotFillableError) Error() string {
	return fmt.Sprintf("%s is not fillable: %s", e.Side, e.Status)
}

// InvalidSignatureError is returned when an order is neither submitted
// by its owner nor carries a valid signature of the owner.
type InvalidSignatureError struct {
	Side Side
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("%s has an invalid signature", e.Side)
}

// Purpose tells which payment of a side could not be covered.
type Purpose uint8

const (
	PurposeTrade Purpose = iota
	PurposeFee
)

func (p Purpose) String() string {
	if p == PurposeTrade {
		return "trade"
	}
	return "fee"
}

// InsufficientBalanceError is returned when the owner of an order does
// not hold enough of its sell asset to settle the match.
type InsufficientBalanceError struct {
	Side    Side
	Purpose Purpose
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%s owner has insufficient balance for the %s payment", e.Side, e.Purpose)
}

package services

import (
	"errors"
	"fmt"
)

// Domain errors raised by the services. Handlers translate these into HTTP
// responses; the services never leak raw storage errors for business
// conditions. Every one of these leaves persisted state exactly as it was
// before the call, except InsufficientFundsError, which commits a declined
// audit row before it is returned.

// Caller-contract violations. These indicate a bug in the calling layer
// (the schema/validation layer must reject them first), not a business
// decline.
var (
	ErrNonPositiveAmount      = errors.New("amount must be a positive number of cents")
	ErrSameAccountTransfer    = errors.New("source and destination accounts must differ")
	ErrInvalidTxnType         = errors.New("transaction type must be credit or debit")
	ErrInvalidStatementPeriod = errors.New("invalid statement period")
	ErrAccountNotEmpty        = errors.New("account balance must be zero before closing")
)

// AccountNotFoundError is returned when a referenced account id does not exist.
type AccountNotFoundError struct {
	AccountID string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account %s not found", e.AccountID)
}

// UnauthorizedAccessError is returned when the caller's holder identity does
// not match the account's owner on an operation requiring ownership.
type UnauthorizedAccessError struct {
	Detail string
}

func (e *UnauthorizedAccessError) Error() string {
	if e.Detail == "" {
		return "you do not have access to this resource"
	}
	return e.Detail
}

// InsufficientFundsError is returned when a debit or transfer would drive a
// balance negative. A declined transaction row is always committed before
// this error is surfaced, so every attempted debit leaves audit evidence.
type InsufficientFundsError struct {
	AccountID      string
	RequestedCents int64
	AvailableCents int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %d cents, available %d cents",
		e.RequestedCents, e.AvailableCents)
}

// InvalidCardUseError is returned when a card reference cannot be honored:
// a card on a credit, a card that does not exist, a card belonging to a
// different account, or an inactive card.
type InvalidCardUseError struct {
	Reason string
}

func (e *InvalidCardUseError) Error() string {
	return e.Reason
}

// NotFound reports whether the card itself was missing (rather than
// misused), so handlers can answer 404 instead of 400.
func (e *InvalidCardUseError) NotFound() bool {
	return e.Reason == "card not found"
}

// DuplicateCardError is returned when issuing a card for an account that
// already has one.
type DuplicateCardError struct {
	AccountID string
}

func (e *DuplicateCardError) Error() string {
	return fmt.Sprintf("account %s already has a card", e.AccountID)
}

// TransactionNotFoundError is returned when a transaction id does not exist
// or does not belong to the requested account.
type TransactionNotFoundError struct {
	TransactionID string
}

func (e *TransactionNotFoundError) Error() string {
	return fmt.Sprintf("transaction %s not found", e.TransactionID)
}

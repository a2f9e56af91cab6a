package models

import (
	"time"
)

// Transaction types — the direction of money flow. Amounts are always
// positive; the type carries the direction, never the sign.
const (
	TxnTypeCredit = "credit"
	TxnTypeDebit  = "debit"
)

// Transaction statuses. Status is fixed at creation: a transaction is
// approved or declined when it is recorded and never transitions afterwards.
// Declined transactions are retained permanently as audit evidence.
const (
	TxnStatusPending  = "pending"
	TxnStatusApproved = "approved"
	TxnStatusDeclined = "declined"
)

// Transaction records a single financial event. Every movement of money
// creates one of these rows; a transfer creates two (a debit leg and a
// credit leg) linked by a shared TransferPairID.
//
// Exactly one of FromAccountID/ToAccountID is set: debits set only the
// source, credits set only the destination. CardID is set only on debits
// made with a card. Rows are append-only.
type Transaction struct {
	ID             string    `json:"id" db:"id"`
	Type           string    `json:"type" db:"type"`
	AmountCents    int64     `json:"amount_cents" db:"amount_cents"`
	FromAccountID  *string   `json:"from_account_id,omitempty" db:"from_account_id"`
	ToAccountID    *string   `json:"to_account_id,omitempty" db:"to_account_id"`
	Status         string    `json:"status" db:"status"`
	Description    *string   `json:"description,omitempty" db:"description"`
	TransferPairID *string   `json:"transfer_pair_id,omitempty" db:"transfer_pair_id"`
	CardID         *string   `json:"card_id,omitempty" db:"card_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TransferResult is returned by a successful transfer: both legs plus the
// pair id that links them for auditing and reconciliation.
type TransferResult struct {
	DebitTransaction  *Transaction `json:"debit_transaction"`
	CreditTransaction *Transaction `json:"credit_transaction"`
	TransferPairID    string       `json:"transfer_pair_id"`
}

package models

import (
	"time"
)

// Account types
const (
	AccountTypeChecking = "checking"
	AccountTypeSavings  = "savings"
)

// Account represents a bank account owned by an account holder.
//
// CachedBalanceCents is the current balance in integer cents. It is updated
// in the same database transaction as the transaction record that justifies
// it, so it always equals the sum of approved credits minus approved debits.
// A CHECK constraint in the schema enforces that it can never go negative —
// the application checks first, the constraint is the final safety net.
type Account struct {
	ID                 string    `json:"id" db:"id"`
	AccountHolderID    string    `json:"account_holder_id" db:"account_holder_id"`
	AccountType        string    `json:"account_type" db:"account_type"`
	AccountNumber      string    `json:"account_number" db:"account_number"`
	CachedBalanceCents int64     `json:"cached_balance_cents" db:"cached_balance_cents"`
	Currency           string    `json:"currency" db:"currency"`
	IsActive           bool      `json:"is_active" db:"is_active"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// BalanceCheck is the result of comparing the cached balance against the
// balance recomputed from the transaction log. Match=false signals a latent
// bug or corruption — it is reported, never silently corrected.
type BalanceCheck struct {
	AccountID            string `json:"account_id"`
	CachedBalanceCents   int64  `json:"cached_balance_cents"`
	ComputedBalanceCents int64  `json:"computed_balance_cents"`
	Match                bool   `json:"match"`
	Currency             string `json:"currency"`
}

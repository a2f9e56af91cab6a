package models

import (
	"time"
)

// Card represents a debit card attached to an account. Each account can
// have at most one card. The full card number and CVV are encrypted at
// rest; only the last four digits are stored in plaintext for display.
//
// Cards are debit-only: a card reference on a credit transaction is
// rejected by the transaction service.
type Card struct {
	ID                  string    `json:"id" db:"id"`
	AccountID           string    `json:"account_id" db:"account_id"`
	CardNumberEncrypted string    `json:"-" db:"card_number_encrypted"`
	CardNumberLastFour  string    `json:"card_number_last_four" db:"card_number_last_four"`
	ExpirationMonth     int       `json:"expiration_month" db:"expiration_month"`
	ExpirationYear      int       `json:"expiration_year" db:"expiration_year"`
	CVVEncrypted        string    `json:"-" db:"cvv_encrypted"`
	IsActive            bool      `json:"is_active" db:"is_active"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

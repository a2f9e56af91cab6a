package services

import "github.com/meridianbank/backend/internal/models"

// CheckBalance is the pure approve/decline decision for a proposed
// transaction against a current balance. Credits always approve; debits
// approve only when the balance covers the amount. All arithmetic is exact
// integer cents — no floating point anywhere in the money path.
//
// The caller guarantees amountCents > 0; direction is carried by txnType,
// never by sign.
func CheckBalance(currentCents int64, txnType string, amountCents int64) (newBalanceCents int64, approved bool) {
	switch txnType {
	case models.TxnTypeCredit:
		return currentCents + amountCents, true
	case models.TxnTypeDebit:
		if currentCents < amountCents {
			return currentCents, false
		}
		return currentCents - amountCents, true
	}
	return currentCents, false
}

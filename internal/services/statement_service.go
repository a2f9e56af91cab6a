package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/meridianbank/backend/internal/models"
)

// StatementService assembles monthly account statements from the approved
// transaction history. Statements are derived on demand, never stored, so
// they are always consistent with the ledger.
type StatementService struct {
	db       *sql.DB
	accounts *AccountService
	txns     *TransactionService
}

func NewStatementService(db *sql.DB, accounts *AccountService, txns *TransactionService) *StatementService {
	return &StatementService{db: db, accounts: accounts, txns: txns}
}

// Statement is one account-month: balances at the period boundaries, the
// movement totals, and every transaction (including declined ones) in the
// period.
type Statement struct {
	AccountID           string               `json:"account_id"`
	AccountNumber       string               `json:"account_number"`
	Currency            string               `json:"currency"`
	Year                int                  `json:"year"`
	Month               int                  `json:"month"`
	OpeningBalanceCents int64                `json:"opening_balance_cents"`
	ClosingBalanceCents int64                `json:"closing_balance_cents"`
	TotalCreditsCents   int64                `json:"total_credits_cents"`
	TotalDebitsCents    int64                `json:"total_debits_cents"`
	TransactionCount    int                  `json:"transaction_count"`
	Transactions        []models.Transaction `json:"transactions"`
}

// Generate builds the statement for one calendar month. The opening balance
// is replayed from all approved transactions before the month started; the
// closing balance is opening plus the month's approved movement. Months in
// the future are refused.
func (s *StatementService) Generate(ctx context.Context, accountID, holderID string, year, month int) (*Statement, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12, got %d", ErrInvalidStatementPeriod, month)
	}

	periodStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)
	if periodStart.After(time.Now()) {
		return nil, fmt.Errorf("%w: %d-%02d is in the future", ErrInvalidStatementPeriod, year, month)
	}

	account, err := s.accounts.Get(ctx, accountID, holderID)
	if err != nil {
		return nil, err
	}

	opening, err := s.balanceBefore(ctx, accountID, periodStart)
	if err != nil {
		return nil, err
	}

	transactions, err := s.periodTransactions(ctx, accountID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	var credits, debits int64
	for _, txn := range transactions {
		if txn.Status != models.TxnStatusApproved {
			continue
		}
		if txn.ToAccountID != nil && *txn.ToAccountID == accountID {
			credits += txn.AmountCents
		}
		if txn.FromAccountID != nil && *txn.FromAccountID == accountID {
			debits += txn.AmountCents
		}
	}

	return &Statement{
		AccountID:           account.ID,
		AccountNumber:       account.AccountNumber,
		Currency:            account.Currency,
		Year:                year,
		Month:               month,
		OpeningBalanceCents: opening,
		ClosingBalanceCents: opening + credits - debits,
		TotalCreditsCents:   credits,
		TotalDebitsCents:    debits,
		TransactionCount:    len(transactions),
		Transactions:        transactions,
	}, nil
}

func (s *StatementService) balanceBefore(ctx context.Context, accountID string, cutoff time.Time) (int64, error) {
	var credits, debits int64

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE to_account_id = $1 AND status = $2 AND created_at < $3`,
		accountID, models.TxnStatusApproved, cutoff).Scan(&credits)
	if err != nil {
		return 0, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE from_account_id = $1 AND status = $2 AND created_at < $3`,
		accountID, models.TxnStatusApproved, cutoff).Scan(&debits)
	if err != nil {
		return 0, err
	}

	return credits - debits, nil
}

func (s *StatementService) periodTransactions(ctx context.Context, accountID string, start, end time.Time) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, amount_cents, from_account_id, to_account_id, status, description, transfer_pair_id, card_id, created_at, updated_at
		FROM transactions
		WHERE (from_account_id = $1 OR to_account_id = $1)
		AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC`,
		accountID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	return transactions, rows.Err()
}

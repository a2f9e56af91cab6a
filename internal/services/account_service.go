package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/backend/internal/models"
)

// AccountService manages account lifecycle and the balance integrity check.
type AccountService struct {
	db *sql.DB
}

func NewAccountService(db *sql.DB) *AccountService {
	return &AccountService{db: db}
}

const accountNumberAttempts = 10

// Create opens a new account for the holder with a zero balance and a
// freshly generated 10-digit account number. Number generation retries a
// handful of times on the (astronomically unlikely) collision with an
// existing number before giving up.
func (s *AccountService) Create(ctx context.Context, holderID, accountType, currency string) (*models.Account, error) {
	if accountType != models.AccountTypeChecking && accountType != models.AccountTypeSavings {
		return nil, fmt.Errorf("unsupported account type %q", accountType)
	}
	if currency == "" {
		currency = "USD"
	}

	now := time.Now()
	account := &models.Account{
		ID:              uuid.New().String(),
		AccountHolderID: holderID,
		AccountType:     accountType,
		Currency:        currency,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var lastErr error
	for attempt := 0; attempt < accountNumberAttempts; attempt++ {
		number, err := generateAccountNumber()
		if err != nil {
			return nil, err
		}

		var exists bool
		err = s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM accounts WHERE account_number = $1)`, number).
			Scan(&exists)
		if err != nil {
			return nil, err
		}
		if exists {
			lastErr = fmt.Errorf("account number collision on attempt %d", attempt+1)
			continue
		}

		account.AccountNumber = number
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO accounts
			(id, account_holder_id, account_type, account_number, cached_balance_cents, currency, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			account.ID, account.AccountHolderID, account.AccountType, account.AccountNumber,
			account.CachedBalanceCents, account.Currency, account.IsActive,
			account.CreatedAt, account.UpdatedAt)
		if err != nil {
			return nil, err
		}

		log.Printf("[ACCOUNT] Created %s account %s for holder %s", accountType, account.ID, holderID)
		return account, nil
	}
	return nil, fmt.Errorf("could not allocate a unique account number: %w", lastErr)
}

// Get returns an account owned by the holder.
func (s *AccountService) Get(ctx context.Context, accountID, holderID string) (*models.Account, error) {
	account, err := s.fetch(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.AccountHolderID != holderID {
		return nil, &UnauthorizedAccessError{Detail: "you do not have access to this account"}
	}
	return account, nil
}

// List returns all accounts belonging to the holder.
func (s *AccountService) List(ctx context.Context, holderID string) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_holder_id, account_type, account_number, cached_balance_cents, currency, is_active, created_at, updated_at
		FROM accounts
		WHERE account_holder_id = $1
		ORDER BY created_at ASC`, holderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// GetBalance returns both the cached balance and the balance recomputed
// from the approved transaction history, with a flag reporting whether the
// two agree. A mismatch means the ledger invariant has been violated and
// is worth an alert, not silent repair.
func (s *AccountService) GetBalance(ctx context.Context, accountID, holderID string) (*models.BalanceCheck, error) {
	account, err := s.Get(ctx, accountID, holderID)
	if err != nil {
		return nil, err
	}
	return s.balanceCheck(ctx, account)
}

// Deactivate closes an account. Only zero-balance accounts may be closed
// so no funds are orphaned.
func (s *AccountService) Deactivate(ctx context.Context, accountID, holderID string) error {
	account, err := s.Get(ctx, accountID, holderID)
	if err != nil {
		return err
	}
	if account.CachedBalanceCents != 0 {
		return fmt.Errorf("%w: account %s still holds %d cents", ErrAccountNotEmpty, accountID, account.CachedBalanceCents)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE accounts SET is_active = FALSE, updated_at = $1 WHERE id = $2`,
		time.Now(), accountID)
	if err != nil {
		return err
	}

	log.Printf("[ACCOUNT] Deactivated account %s", accountID)
	return nil
}

// AdminList returns every account, newest first. Admin middleware gates
// the route.
func (s *AccountService) AdminList(ctx context.Context, limit, offset int) ([]models.Account, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_holder_id, account_type, account_number, cached_balance_cents, currency, is_active, created_at, updated_at
		FROM accounts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// AdminGet returns any account without ownership scoping.
func (s *AccountService) AdminGet(ctx context.Context, accountID string) (*models.Account, error) {
	return s.fetch(ctx, accountID)
}

// AdminGetBalance runs the integrity check on any account.
func (s *AccountService) AdminGetBalance(ctx context.Context, accountID string) (*models.BalanceCheck, error) {
	account, err := s.fetch(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.balanceCheck(ctx, account)
}

func (s *AccountService) fetch(ctx context.Context, accountID string) (*models.Account, error) {
	var account models.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_holder_id, account_type, account_number, cached_balance_cents, currency, is_active, created_at, updated_at
		FROM accounts
		WHERE id = $1`, accountID).Scan(
		&account.ID, &account.AccountHolderID, &account.AccountType, &account.AccountNumber,
		&account.CachedBalanceCents, &account.Currency, &account.IsActive,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &AccountNotFoundError{AccountID: accountID}
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *AccountService) balanceCheck(ctx context.Context, account *models.Account) (*models.BalanceCheck, error) {
	computed, err := s.computeBalanceFromTransactions(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	check := &models.BalanceCheck{
		AccountID:            account.ID,
		CachedBalanceCents:   account.CachedBalanceCents,
		ComputedBalanceCents: computed,
		Match:                account.CachedBalanceCents == computed,
		Currency:             account.Currency,
	}
	if !check.Match {
		log.Printf("[ACCOUNT] Balance mismatch on account %s: cached %d, computed %d",
			account.ID, account.CachedBalanceCents, computed)
	}
	return check, nil
}

// computeBalanceFromTransactions replays the approved history: credits in,
// debits out. Declined transactions never count.
func (s *AccountService) computeBalanceFromTransactions(ctx context.Context, accountID string) (int64, error) {
	var credits, debits int64

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE to_account_id = $1 AND status = $2`,
		accountID, models.TxnStatusApproved).Scan(&credits)
	if err != nil {
		return 0, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE from_account_id = $1 AND status = $2`,
		accountID, models.TxnStatusApproved).Scan(&debits)
	if err != nil {
		return 0, err
	}

	return credits - debits, nil
}

func collectAccounts(rows *sql.Rows) ([]models.Account, error) {
	accounts := []models.Account{}
	for rows.Next() {
		var account models.Account
		err := rows.Scan(
			&account.ID, &account.AccountHolderID, &account.AccountType, &account.AccountNumber,
			&account.CachedBalanceCents, &account.Currency, &account.IsActive,
			&account.CreatedAt, &account.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// generateAccountNumber produces a 10-digit number with a nonzero leading
// digit, from crypto/rand.
func generateAccountNumber() (string, error) {
	// Range [1000000000, 9999999999].
	n, err := rand.Int(rand.Reader, big.NewInt(9000000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+1000000000), nil
}

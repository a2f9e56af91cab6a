package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/backend/internal/database"
	"github.com/meridianbank/backend/internal/models"
)

// TransactionService is the transaction/transfer engine: it mutates account
// balances, enforces the non-negative balance invariant, keeps the declined
// transaction audit trail, and executes atomic two-leg transfers.
//
// Every balance change and the transaction record that justifies it are
// committed in one database transaction. Account rows are held through the
// locker for the whole read-check-write sequence, and transfers always lock
// the two rows in sorted-id order so opposite-direction transfers on the
// same pair cannot deadlock.
type TransactionService struct {
	db     *sql.DB
	locker database.AccountLocker
}

func NewTransactionService(db *sql.DB, locker database.AccountLocker) *TransactionService {
	if locker == nil {
		locker = database.RowLocker{}
	}
	return &TransactionService{db: db, locker: locker}
}

// Create records a single credit or debit against one account.
//
// Credits always approve. Debits approve only when the balance covers the
// amount; an uncovered debit still commits a declined transaction row for
// the audit trail, and the declined record is returned together with an
// InsufficientFundsError. Ownership is re-checked here against holderID —
// the HTTP layer checks too, but this is the last line of defense against
// cross-tenant balance corruption.
func (s *TransactionService) Create(
	ctx context.Context,
	accountID, holderID, txnType string,
	amountCents int64,
	description *string,
	cardID *string,
) (*models.Transaction, error) {
	if txnType != models.TxnTypeCredit && txnType != models.TxnTypeDebit {
		return nil, ErrInvalidTxnType
	}
	if amountCents <= 0 {
		return nil, ErrNonPositiveAmount
	}

	release := s.locker.Acquire(accountID)
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	account, err := s.lockAccount(ctx, tx, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &AccountNotFoundError{AccountID: accountID}
	}
	if err != nil {
		return nil, err
	}

	if account.AccountHolderID != holderID {
		return nil, &UnauthorizedAccessError{Detail: "you do not have access to this account"}
	}

	if cardID != nil {
		if txnType == models.TxnTypeCredit {
			return nil, &InvalidCardUseError{Reason: "cards cannot be used for credit transactions"}
		}
		if err := s.checkCard(ctx, tx, *cardID, accountID); err != nil {
			return nil, err
		}
	}

	newBalance, approved := CheckBalance(account.CachedBalanceCents, txnType, amountCents)

	if !approved {
		declined := &models.Transaction{
			Type:          models.TxnTypeDebit,
			AmountCents:   amountCents,
			FromAccountID: &accountID,
			Status:        models.TxnStatusDeclined,
			Description:   description,
			CardID:        cardID,
		}
		if err := s.insertTransaction(ctx, tx, declined); err != nil {
			return nil, err
		}
		// The declined row must be durable before the error unwinds.
		if err := tx.Commit(); err != nil {
			return nil, err
		}

		log.Printf("[TRANSACTION] Declined debit of %d cents on account %s (available %d)",
			amountCents, accountID, account.CachedBalanceCents)
		return declined, &InsufficientFundsError{
			AccountID:      accountID,
			RequestedCents: amountCents,
			AvailableCents: account.CachedBalanceCents,
		}
	}

	if err := s.updateBalance(ctx, tx, accountID, newBalance); err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		Type:        txnType,
		AmountCents: amountCents,
		Status:      models.TxnStatusApproved,
		Description: description,
		CardID:      cardID,
	}
	if txnType == models.TxnTypeDebit {
		txn.FromAccountID = &accountID
	} else {
		txn.ToAccountID = &accountID
	}

	if err := s.insertTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[TRANSACTION] Approved %s of %d cents on account %s, new balance %d",
		txnType, amountCents, accountID, newBalance)
	return txn, nil
}

// Transfer moves funds between two accounts as one atomic operation with
// two permanently linked legs.
//
// The two account rows are always locked in sorted-id order, regardless of
// which is source and which is destination; source/destination are
// re-derived after both locks are held. Only the source owner is checked —
// anyone may be a transfer destination, but only the source owner may
// authorize the debit leg.
func (s *TransactionService) Transfer(
	ctx context.Context,
	fromAccountID, toAccountID, holderID string,
	amountCents int64,
	description *string,
) (*models.TransferResult, error) {
	if fromAccountID == toAccountID {
		return nil, ErrSameAccountTransfer
	}
	if amountCents <= 0 {
		return nil, ErrNonPositiveAmount
	}

	transferPairID := uuid.New().String()

	release := s.locker.Acquire(fromAccountID, toAccountID)
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	firstID, secondID := fromAccountID, toAccountID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	first, err := s.lockAccount(ctx, tx, firstID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &AccountNotFoundError{AccountID: firstID}
	}
	if err != nil {
		return nil, err
	}

	second, err := s.lockAccount(ctx, tx, secondID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &AccountNotFoundError{AccountID: secondID}
	}
	if err != nil {
		return nil, err
	}

	// Lock order is id order, not caller order — map back to source/dest.
	source, dest := first, second
	if source.ID != fromAccountID {
		source, dest = second, first
	}

	if source.AccountHolderID != holderID {
		return nil, &UnauthorizedAccessError{Detail: "you do not have access to the source account"}
	}

	newSourceBalance, approved := CheckBalance(source.CachedBalanceCents, models.TxnTypeDebit, amountCents)

	if !approved {
		declined := &models.Transaction{
			Type:           models.TxnTypeDebit,
			AmountCents:    amountCents,
			FromAccountID:  &fromAccountID,
			Status:         models.TxnStatusDeclined,
			Description:    description,
			TransferPairID: &transferPairID,
		}
		if err := s.insertTransaction(ctx, tx, declined); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}

		log.Printf("[TRANSFER] Declined transfer of %d cents from %s to %s (available %d)",
			amountCents, fromAccountID, toAccountID, source.CachedBalanceCents)
		return &models.TransferResult{
				DebitTransaction: declined,
				TransferPairID:   transferPairID,
			}, &InsufficientFundsError{
				AccountID:      fromAccountID,
				RequestedCents: amountCents,
				AvailableCents: source.CachedBalanceCents,
			}
	}

	if err := s.updateBalance(ctx, tx, source.ID, newSourceBalance); err != nil {
		return nil, err
	}
	if err := s.updateBalance(ctx, tx, dest.ID, dest.CachedBalanceCents+amountCents); err != nil {
		return nil, err
	}

	debitLeg := &models.Transaction{
		Type:           models.TxnTypeDebit,
		AmountCents:    amountCents,
		FromAccountID:  &fromAccountID,
		Status:         models.TxnStatusApproved,
		Description:    description,
		TransferPairID: &transferPairID,
	}
	creditLeg := &models.Transaction{
		Type:           models.TxnTypeCredit,
		AmountCents:    amountCents,
		ToAccountID:    &toAccountID,
		Status:         models.TxnStatusApproved,
		Description:    description,
		TransferPairID: &transferPairID,
	}

	if err := s.insertTransaction(ctx, tx, debitLeg); err != nil {
		return nil, err
	}
	if err := s.insertTransaction(ctx, tx, creditLeg); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[TRANSFER] Transferred %d cents from %s to %s, pair %s",
		amountCents, fromAccountID, toAccountID, transferPairID)
	return &models.TransferResult{
		DebitTransaction:  debitLeg,
		CreditTransaction: creditLeg,
		TransferPairID:    transferPairID,
	}, nil
}

// List returns transactions where the account is source or destination,
// newest first, after verifying ownership. Status and type filters are
// optional.
func (s *TransactionService) List(
	ctx context.Context,
	accountID, holderID string,
	statusFilter, typeFilter string,
	limit, offset int,
) ([]models.Transaction, error) {
	if err := s.verifyOwnership(ctx, accountID, holderID); err != nil {
		return nil, err
	}
	return s.fetchTransactions(ctx, accountID, statusFilter, typeFilter, limit, offset)
}

// Get returns a single transaction scoped to an owned account.
func (s *TransactionService) Get(
	ctx context.Context,
	accountID, transactionID, holderID string,
) (*models.Transaction, error) {
	if err := s.verifyOwnership(ctx, accountID, holderID); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, amount_cents, from_account_id, to_account_id, status, description, transfer_pair_id, card_id, created_at, updated_at
		FROM transactions
		WHERE id = $1 AND (from_account_id = $2 OR to_account_id = $2)`,
		transactionID, accountID)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &TransactionNotFoundError{TransactionID: transactionID}
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// GetTransferPair returns the two legs of a transfer, verifying that the
// requesting holder owns the account on one of the legs. Used by the
// reconciliation export.
func (s *TransactionService) GetTransferPair(
	ctx context.Context,
	accountID, holderID, transferPairID string,
) (debit, credit *models.Transaction, err error) {
	if err := s.verifyOwnership(ctx, accountID, holderID); err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, amount_cents, from_account_id, to_account_id, status, description, transfer_pair_id, card_id, created_at, updated_at
		FROM transactions
		WHERE transfer_pair_id = $1 AND status = $2
		ORDER BY type ASC`,
		transferPairID, models.TxnStatusApproved)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, nil, err
		}
		switch txn.Type {
		case models.TxnTypeDebit:
			debit = txn
		case models.TxnTypeCredit:
			credit = txn
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if debit == nil || credit == nil {
		return nil, nil, &TransactionNotFoundError{TransactionID: transferPairID}
	}
	owned := (debit.FromAccountID != nil && *debit.FromAccountID == accountID) ||
		(credit.ToAccountID != nil && *credit.ToAccountID == accountID)
	if !owned {
		return nil, nil, &TransactionNotFoundError{TransactionID: transferPairID}
	}
	return debit, credit, nil
}

// AdminList returns transactions across all accounts without ownership
// scoping. Callers must be behind the admin middleware.
func (s *TransactionService) AdminList(
	ctx context.Context,
	statusFilter, typeFilter string,
	limit, offset int,
) ([]models.Transaction, error) {
	return s.fetchTransactions(ctx, "", statusFilter, typeFilter, limit, offset)
}

// AdminGet returns any transaction by id without ownership scoping.
func (s *TransactionService) AdminGet(ctx context.Context, transactionID string) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, amount_cents, from_account_id, to_account_id, status, description, transfer_pair_id, card_id, created_at, updated_at
		FROM transactions
		WHERE id = $1`, transactionID)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &TransactionNotFoundError{TransactionID: transactionID}
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Internal helpers

func (s *TransactionService) lockAccount(ctx context.Context, tx *sql.Tx, accountID string) (*models.Account, error) {
	var account models.Account
	query := `
		SELECT id, account_holder_id, account_type, account_number, cached_balance_cents, currency, is_active, created_at, updated_at
		FROM accounts
		WHERE id = $1` + s.locker.Clause()

	err := tx.QueryRowContext(ctx, query, accountID).Scan(
		&account.ID, &account.AccountHolderID, &account.AccountType, &account.AccountNumber,
		&account.CachedBalanceCents, &account.Currency, &account.IsActive,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *TransactionService) checkCard(ctx context.Context, tx *sql.Tx, cardID, accountID string) error {
	var cardAccountID string
	var isActive bool
	err := tx.QueryRowContext(ctx, `
		SELECT account_id, is_active FROM cards WHERE id = $1`, cardID).
		Scan(&cardAccountID, &isActive)

	if errors.Is(err, sql.ErrNoRows) {
		return &InvalidCardUseError{Reason: "card not found"}
	}
	if err != nil {
		return err
	}
	if cardAccountID != accountID {
		return &InvalidCardUseError{Reason: "card does not belong to this account"}
	}
	if !isActive {
		return &InvalidCardUseError{Reason: "card is not active"}
	}
	return nil
}

func (s *TransactionService) updateBalance(ctx context.Context, tx *sql.Tx, accountID string, newBalanceCents int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE accounts SET cached_balance_cents = $1, updated_at = $2 WHERE id = $3`,
		newBalanceCents, time.Now(), accountID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("balance update touched no rows for account %s", accountID)
	}
	return nil
}

func (s *TransactionService) insertTransaction(ctx context.Context, tx *sql.Tx, txn *models.Transaction) error {
	now := time.Now()
	txn.ID = uuid.New().String()
	txn.CreatedAt = now
	txn.UpdatedAt = now

	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions
		(id, type, amount_cents, from_account_id, to_account_id, status, description, transfer_pair_id, card_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		txn.ID, txn.Type, txn.AmountCents, txn.FromAccountID, txn.ToAccountID,
		txn.Status, txn.Description, txn.TransferPairID, txn.CardID,
		txn.CreatedAt, txn.UpdatedAt)
	return err
}

// verifyOwnership checks, without locking, that the account exists and
// belongs to the holder. Used by the read paths.
func (s *TransactionService) verifyOwnership(ctx context.Context, accountID, holderID string) error {
	var ownerID string
	err := s.db.QueryRowContext(ctx, `
		SELECT account_holder_id FROM accounts WHERE id = $1`, accountID).Scan(&ownerID)

	if errors.Is(err, sql.ErrNoRows) {
		return &AccountNotFoundError{AccountID: accountID}
	}
	if err != nil {
		return err
	}
	if ownerID != holderID {
		return &UnauthorizedAccessError{Detail: "you do not have access to this account"}
	}
	return nil
}

func (s *TransactionService) fetchTransactions(
	ctx context.Context,
	accountID string,
	statusFilter, typeFilter string,
	limit, offset int,
) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var conditions []string
	var args []interface{}
	argIndex := 1

	if accountID != "" {
		conditions = append(conditions, fmt.Sprintf("(from_account_id = $%d OR to_account_id = $%d)", argIndex, argIndex))
		args = append(args, accountID)
		argIndex++
	}
	if statusFilter != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, statusFilter)
		argIndex++
	}
	if typeFilter != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIndex))
		args = append(args, typeFilter)
		argIndex++
	}

	query := `
		SELECT id, type, amount_cents, from_account_id, to_account_id, status, description, transfer_pair_id, card_id, created_at, updated_at
		FROM transactions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var txn models.Transaction
	err := row.Scan(
		&txn.ID, &txn.Type, &txn.AmountCents, &txn.FromAccountID, &txn.ToAccountID,
		&txn.Status, &txn.Description, &txn.TransferPairID, &txn.CardID,
		&txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

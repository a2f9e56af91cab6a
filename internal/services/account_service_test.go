package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/meridianbank/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountServiceTest(t *testing.T) (*AccountService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewAccountService(db), mock, func() { db.Close() }
}

func TestAccountServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account with generated 10-digit number", func(t *testing.T) {
		svc, mock, cleanup := newAccountServiceTest(t)
		defer cleanup()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO accounts")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		account, err := svc.Create(ctx, holderAlice, models.AccountTypeChecking, "USD")
		require.NoError(t, err)
		assert.Len(t, account.AccountNumber, 10)
		assert.NotEqual(t, byte('0'), account.AccountNumber[0])
		assert.Equal(t, int64(0), account.CachedBalanceCents)
		assert.True(t, account.IsActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retries on account number collision", func(t *testing.T) {
		svc, mock, cleanup := newAccountServiceTest(t)
		defer cleanup()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO accounts")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		_, err := svc.Create(ctx, holderAlice, models.AccountTypeSavings, "USD")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown account type", func(t *testing.T) {
		svc, mock, cleanup := newAccountServiceTest(t)
		defer cleanup()

		_, err := svc.Create(ctx, holderAlice, "brokerage", "USD")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountServiceGetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("cached and computed agree", func(t *testing.T) {
		svc, mock, cleanup := newAccountServiceTest(t)
		defer cleanup()

		expectLockAccount(mock, accountA, accountRow(accountA, holderAlice, 7000))
		mock.ExpectQuery(regexp.QuoteMeta("WHERE to_account_id")).
			WithArgs(accountA, models.TxnStatusApproved).
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(10000)))
		mock.ExpectQuery(regexp.QuoteMeta("WHERE from_account_id")).
			WithArgs(accountA, models.TxnStatusApproved).
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(3000)))

		check, err := svc.GetBalance(ctx, accountA, holderAlice)
		require.NoError(t, err)
		assert.Equal(t, int64(7000), check.CachedBalanceCents)
		assert.Equal(t, int64(7000), check.ComputedBalanceCents)
		assert.True(t, check.Match)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mismatch is reported, not repaired", func(t *testing.T) {
		svc, mock, cleanup := newAccountServiceTest(t)
		defer cleanup()

		expectLockAccount(mock, accountA, accountRow(accountA, holderAlice, 9999))
		mock.ExpectQuery(regexp.QuoteMeta("WHERE to_account_id")).
			WithArgs(accountA, models.TxnStatusApproved).
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(5000)))
		mock.ExpectQuery(regexp.QuoteMeta("WHERE from_account_id")).
			WithArgs(accountA, models.TxnStatusApproved).
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(0)))

		check, err := svc.GetBalance(ctx, accountA, holderAlice)
		require.NoError(t, err)
		assert.False(t, check.Match)
		assert.Equal(t, int64(9999), check.CachedBalanceCents)
		assert.Equal(t, int64(5000), check.ComputedBalanceCents)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-owner is refused", func(t *testing.T) {
		svc, mock, cleanup := newAccountServiceTest(t)
		defer cleanup()

		expectLockAccount(mock, accountA, accountRow(accountA, holderAlice, 7000))

		_, err := svc.GetBalance(ctx, accountA, holderBob)

		var unauthorizedErr *UnauthorizedAccessError
		assert.ErrorAs(t, err, &unauthorizedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountServiceDeactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("zero-balance account closes", func(t *testing.T) {
		svc, mock, cleanup := newAccountServiceTest(t)
		defer cleanup()

		expectLockAccount(mock, accountA, accountRow(accountA, holderAlice, 0))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET is_active = FALSE")).
			WithArgs(sqlmock.AnyArg(), accountA).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := svc.Deactivate(ctx, accountA, holderAlice)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("funded account refuses to close", func(t *testing.T) {
		svc, mock, cleanup := newAccountServiceTest(t)
		defer cleanup()

		expectLockAccount(mock, accountA, accountRow(accountA, holderAlice, 2500))

		err := svc.Deactivate(ctx, accountA, holderAlice)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGenerateAccountNumber(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		number, err := generateAccountNumber()
		require.NoError(t, err)
		assert.Len(t, number, 10)
		assert.NotEqual(t, byte('0'), number[0])
		seen[number] = true
	}
	assert.Greater(t, len(seen), 90, "numbers should be effectively unique")
}

func TestAccountRowScan(t *testing.T) {
	// Guard against column drift between queries and scans.
	svc, mock, cleanup := newAccountServiceTest(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts")).
		WithArgs(holderAlice).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "account_holder_id", "account_type", "account_number",
			"cached_balance_cents", "currency", "is_active", "created_at", "updated_at",
		}).
			AddRow(accountA, holderAlice, models.AccountTypeChecking, "1234567890", int64(100), "USD", true, now, now).
			AddRow(accountB, holderAlice, models.AccountTypeSavings, "9876543210", int64(0), "USD", true, now, now))

	accounts, err := svc.List(context.Background(), holderAlice)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, models.AccountTypeSavings, accounts[1].AccountType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

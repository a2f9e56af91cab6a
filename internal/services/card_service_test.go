package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/meridianbank/backend/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCardServiceTest(t *testing.T) (*CardService, sqlmock.Sqlmock, *vault.Vault, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	key := make([]byte, 32)
	v, err := vault.NewWithKey(key)
	require.NoError(t, err)

	return NewCardService(db, v), mock, v, func() { db.Close() }
}

func expectOwnerCheck(mock sqlmock.Sqlmock, accountID, ownerID string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT account_holder_id FROM accounts")).
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows([]string{"account_holder_id"}).AddRow(ownerID))
}

func TestCardServiceIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("issues an encrypted card with a three-year expiry", func(t *testing.T) {
		svc, mock, v, cleanup := newCardServiceTest(t)
		defer cleanup()

		expectOwnerCheck(mock, accountA, holderAlice)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WithArgs(accountA).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cards")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		issued, err := svc.Issue(ctx, accountA, holderAlice)
		require.NoError(t, err)

		assert.Len(t, issued.CardNumber, 16)
		assert.Equal(t, byte('4'), issued.CardNumber[0])
		assert.Len(t, issued.CVV, 3)
		assert.Equal(t, issued.CardNumber[12:], issued.Card.CardNumberLastFour)

		expectedExpiry := time.Now().AddDate(cardValidityYears, 0, 0)
		assert.Equal(t, expectedExpiry.Year(), issued.Card.ExpirationYear)
		assert.Equal(t, int(expectedExpiry.Month()), issued.Card.ExpirationMonth)

		// The stored ciphertext must decrypt back to the issued values and
		// never equal the plaintext.
		assert.NotEqual(t, issued.CardNumber, issued.Card.CardNumberEncrypted)
		decrypted, err := v.Decrypt(issued.Card.CardNumberEncrypted)
		require.NoError(t, err)
		assert.Equal(t, issued.CardNumber, decrypted)

		decryptedCVV, err := v.Decrypt(issued.Card.CVVEncrypted)
		require.NoError(t, err)
		assert.Equal(t, issued.CVV, decryptedCVV)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second card on the same account is refused", func(t *testing.T) {
		svc, mock, _, cleanup := newCardServiceTest(t)
		defer cleanup()

		expectOwnerCheck(mock, accountA, holderAlice)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WithArgs(accountA).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := svc.Issue(ctx, accountA, holderAlice)

		var duplicateErr *DuplicateCardError
		require.ErrorAs(t, err, &duplicateErr)
		assert.Equal(t, accountA, duplicateErr.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-owner cannot issue", func(t *testing.T) {
		svc, mock, _, cleanup := newCardServiceTest(t)
		defer cleanup()

		expectOwnerCheck(mock, accountA, holderAlice)

		_, err := svc.Issue(ctx, accountA, holderBob)

		var unauthorizedErr *UnauthorizedAccessError
		assert.ErrorAs(t, err, &unauthorizedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCardServiceGet(t *testing.T) {
	ctx := context.Background()

	t.Run("missing card returns a not-found card error", func(t *testing.T) {
		svc, mock, _, cleanup := newCardServiceTest(t)
		defer cleanup()

		expectOwnerCheck(mock, accountA, holderAlice)
		mock.ExpectQuery(regexp.QuoteMeta("FROM cards")).
			WithArgs(accountA).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := svc.Get(ctx, accountA, holderAlice)

		var cardErr *InvalidCardUseError
		require.ErrorAs(t, err, &cardErr)
		assert.True(t, cardErr.NotFound())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

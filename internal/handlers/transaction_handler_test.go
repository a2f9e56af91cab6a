package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/meridianbank/backend/internal/database"
	"github.com/meridianbank/backend/internal/models"
	"github.com/meridianbank/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testHolder  = "11111111-aaaa-4aaa-8aaa-111111111111"
	testAccount = "aaaaaaaa-0000-4000-8000-000000000001"
	destAccount = "bbbbbbbb-0000-4000-8000-000000000002"
)

func authedRequest(method, target string, body []byte, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))

	routeCtx := chi.NewRouteContext()
	for key, value := range params {
		routeCtx.URLParams.Add(key, value)
	}

	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	ctx = context.WithValue(ctx, "holderID", testHolder)
	return req.WithContext(ctx)
}

func expectAccountLock(mock sqlmock.Sqlmock, accountID, ownerID string, balanceCents int64) {
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts")).
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "account_holder_id", "account_type", "account_number",
			"cached_balance_cents", "currency", "is_active", "created_at", "updated_at",
		}).AddRow(accountID, ownerID, models.AccountTypeChecking, "1234567890", balanceCents, "USD", true, now, now))
}

func TestTransactionHandlerCreate(t *testing.T) {
	t.Run("approved debit answers 201", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		handler := NewTransactionHandler(services.NewTransactionService(db, database.RowLocker{}))

		mock.ExpectBegin()
		expectAccountLock(mock, testAccount, testHolder, 10000)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		body, _ := json.Marshal(CreateTransactionRequest{Type: models.TxnTypeDebit, AmountCents: 2500})
		req := authedRequest(http.MethodPost, "/accounts/"+testAccount+"/transactions", body,
			map[string]string{"accountId": testAccount})
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var txn models.Transaction
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&txn))
		assert.Equal(t, models.TxnStatusApproved, txn.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds answers 422 with amounts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		handler := NewTransactionHandler(services.NewTransactionService(db, database.RowLocker{}))

		mock.ExpectBegin()
		expectAccountLock(mock, testAccount, testHolder, 1000)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		body, _ := json.Marshal(CreateTransactionRequest{Type: models.TxnTypeDebit, AmountCents: 5000})
		req := authedRequest(http.MethodPost, "/accounts/"+testAccount+"/transactions", body,
			map[string]string{"accountId": testAccount})
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, float64(5000), resp["requested_cents"])
		assert.Equal(t, float64(1000), resp["available_cents"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero amount fails validation with 400", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		handler := NewTransactionHandler(services.NewTransactionService(db, database.RowLocker{}))

		body, _ := json.Marshal(CreateTransactionRequest{Type: models.TxnTypeDebit, AmountCents: 0})
		req := authedRequest(http.MethodPost, "/accounts/"+testAccount+"/transactions", body,
			map[string]string{"accountId": testAccount})
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown body field answers 400", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		handler := NewTransactionHandler(services.NewTransactionService(db, database.RowLocker{}))

		req := authedRequest(http.MethodPost, "/accounts/"+testAccount+"/transactions",
			[]byte(`{"type":"debit","amount_cents":100,"status":"approved"}`),
			map[string]string{"accountId": testAccount})
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account answers 404", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		handler := NewTransactionHandler(services.NewTransactionService(db, database.RowLocker{}))

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM accounts")).
			WithArgs(testAccount).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		body, _ := json.Marshal(CreateTransactionRequest{Type: models.TxnTypeCredit, AmountCents: 100})
		req := authedRequest(http.MethodPost, "/accounts/"+testAccount+"/transactions", body,
			map[string]string{"accountId": testAccount})
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionHandlerTransfer(t *testing.T) {
	t.Run("same-account transfer answers 400", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		handler := NewTransactionHandler(services.NewTransactionService(db, database.RowLocker{}))

		body, _ := json.Marshal(TransferRequest{ToAccountID: testAccount, AmountCents: 100})
		req := authedRequest(http.MethodPost, "/accounts/"+testAccount+"/transfers", body,
			map[string]string{"accountId": testAccount})
		rec := httptest.NewRecorder()

		handler.Transfer(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign source account answers 403", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		handler := NewTransactionHandler(services.NewTransactionService(db, database.RowLocker{}))

		otherHolder := "22222222-bbbb-4bbb-8bbb-222222222222"
		mock.ExpectBegin()
		expectAccountLock(mock, testAccount, otherHolder, 10000)
		expectAccountLock(mock, destAccount, otherHolder, 0)
		mock.ExpectRollback()

		body, _ := json.Marshal(TransferRequest{ToAccountID: destAccount, AmountCents: 100})
		req := authedRequest(http.MethodPost, "/accounts/"+testAccount+"/transfers", body,
			map[string]string{"accountId": testAccount})
		rec := httptest.NewRecorder()

		handler.Transfer(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

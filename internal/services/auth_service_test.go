package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/meridianbank/backend/internal/models"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTime() time.Time {
	return time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)
}

func setAuthTestConfig() {
	viper.Set("jwt.secret_key", "test-secret")
	viper.Set("jwt.expiry_hours", 24)
	viper.Set("argon2.salt_length", 16)
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 64*1024)
	viper.Set("argon2.threads", 4)
	viper.Set("argon2.key_length", 32)
}

func TestPasswordHashing(t *testing.T) {
	setAuthTestConfig()

	t.Run("round trip verifies", func(t *testing.T) {
		hashed, err := hashPassword("correct horse battery staple")
		require.NoError(t, err)
		assert.True(t, verifyPassword("correct horse battery staple", hashed))
		assert.False(t, verifyPassword("wrong password", hashed))
	})

	t.Run("same password hashes differently per salt", func(t *testing.T) {
		first, err := hashPassword("password123")
		require.NoError(t, err)
		second, err := hashPassword("password123")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("malformed stored hash never verifies", func(t *testing.T) {
		assert.False(t, verifyPassword("anything", "not-a-valid-hash"))
		assert.False(t, verifyPassword("anything", "a$b$c"))
	})
}

func TestGenerateJWT(t *testing.T) {
	setAuthTestConfig()

	tokenString, err := generateJWT(holderAlice, models.RoleMember)
	require.NoError(t, err)

	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, holderAlice, claims["holder_id"])
	assert.Equal(t, models.RoleMember, claims["role"])
	assert.NotNil(t, claims["exp"])
}

func TestAuthServiceRegister(t *testing.T) {
	setAuthTestConfig()

	t.Run("creates holder and default checking account in one transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		svc := NewAuthService(db, nil)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO account_holders")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO accounts")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		body, _ := json.Marshal(RegisterRequest{
			Email:     "Jane.Doe@Example.com",
			Password:  "password123",
			FirstName: "Jane",
			LastName:  "Doe",
		})
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		svc.Register(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp AuthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "jane.doe@example.com", resp.Holder.Email, "emails are stored lowercased")
		assert.Equal(t, models.RoleMember, resp.Holder.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown fields in the body", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		svc := NewAuthService(db, nil)

		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			bytes.NewReader([]byte(`{"email":"a@b.com","password":"password123","first_name":"A","last_name":"B","admin":true}`)))
		rec := httptest.NewRecorder()

		svc.Register(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("short password fails validation", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		svc := NewAuthService(db, nil)

		body, _ := json.Marshal(RegisterRequest{
			Email:     "a@b.com",
			Password:  "short",
			FirstName: "A",
			LastName:  "B",
		})
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		svc.Register(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Contains(t, resp.Details, "Password")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuthServiceLogin(t *testing.T) {
	setAuthTestConfig()

	holderColumns := []string{"id", "email", "password_hash", "first_name", "last_name", "role", "created_at", "updated_at"}

	t.Run("valid credentials return a token", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		svc := NewAuthService(db, nil)

		hashed, err := hashPassword("password123")
		require.NoError(t, err)

		rows := sqlmock.NewRows(holderColumns).
			AddRow(holderAlice, "jane@example.com", hashed, "Jane", "Doe", models.RoleMember,
				testTime(), testTime())
		mock.ExpectQuery(regexp.QuoteMeta("FROM account_holders")).
			WithArgs("jane@example.com").
			WillReturnRows(rows)

		body, _ := json.Marshal(LoginRequest{Email: "jane@example.com", Password: "password123"})
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		svc.Login(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp AuthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, holderAlice, resp.Holder.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		svc := NewAuthService(db, nil)

		hashed, err := hashPassword("password123")
		require.NoError(t, err)

		rows := sqlmock.NewRows(holderColumns).
			AddRow(holderAlice, "jane@example.com", hashed, "Jane", "Doe", models.RoleMember,
				testTime(), testTime())
		mock.ExpectQuery(regexp.QuoteMeta("FROM account_holders")).
			WithArgs("jane@example.com").
			WillReturnRows(rows)

		body, _ := json.Marshal(LoginRequest{Email: "jane@example.com", Password: "password456"})
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		svc.Login(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown email is unauthorized, not not-found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		svc := NewAuthService(db, nil)

		mock.ExpectQuery(regexp.QuoteMeta("FROM account_holders")).
			WithArgs("nobody@example.com").
			WillReturnRows(sqlmock.NewRows(holderColumns))

		body, _ := json.Marshal(LoginRequest{Email: "nobody@example.com", Password: "password123"})
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		svc.Login(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

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
	"github.com/meridianbank/backend/internal/vault"
)

// CardService issues and serves debit cards. Card numbers and CVVs are
// encrypted at rest through the vault; only the last four digits are ever
// stored or returned in the clear.
type CardService struct {
	db    *sql.DB
	vault *vault.Vault
}

func NewCardService(db *sql.DB, v *vault.Vault) *CardService {
	return &CardService{db: db, vault: v}
}

const cardValidityYears = 3

// IssuedCard is the one-time issuance response. The plain number and CVV
// appear here and nowhere else; subsequent reads only see the last four.
type IssuedCard struct {
	Card       *models.Card `json:"card"`
	CardNumber string       `json:"card_number"`
	CVV        string       `json:"cvv"`
}

// Issue creates the single debit card for an account. One card per account;
// a second issuance returns DuplicateCardError.
func (s *CardService) Issue(ctx context.Context, accountID, holderID string) (*IssuedCard, error) {
	if err := s.verifyAccountOwner(ctx, accountID, holderID); err != nil {
		return nil, err
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM cards WHERE account_id = $1)`, accountID).
		Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &DuplicateCardError{AccountID: accountID}
	}

	cardNumber, err := generateCardNumber()
	if err != nil {
		return nil, err
	}
	cvv, err := generateCVV()
	if err != nil {
		return nil, err
	}

	encryptedNumber, err := s.vault.Encrypt(cardNumber)
	if err != nil {
		return nil, err
	}
	encryptedCVV, err := s.vault.Encrypt(cvv)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiry := now.AddDate(cardValidityYears, 0, 0)
	card := &models.Card{
		ID:                  uuid.New().String(),
		AccountID:           accountID,
		CardNumberEncrypted: encryptedNumber,
		CardNumberLastFour:  cardNumber[len(cardNumber)-4:],
		ExpirationMonth:     int(expiry.Month()),
		ExpirationYear:      expiry.Year(),
		CVVEncrypted:        encryptedCVV,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cards
		(id, account_id, card_number_encrypted, card_number_last_four, expiration_month, expiration_year, cvv_encrypted, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		card.ID, card.AccountID, card.CardNumberEncrypted, card.CardNumberLastFour,
		card.ExpirationMonth, card.ExpirationYear, card.CVVEncrypted, card.IsActive,
		card.CreatedAt, card.UpdatedAt)
	if err != nil {
		return nil, err
	}

	log.Printf("[CARD] Issued card %s for account %s", card.ID, accountID)
	return &IssuedCard{Card: card, CardNumber: cardNumber, CVV: cvv}, nil
}

// Get returns the card for an owned account, masked: last four digits,
// expiry, and status only.
func (s *CardService) Get(ctx context.Context, accountID, holderID string) (*models.Card, error) {
	if err := s.verifyAccountOwner(ctx, accountID, holderID); err != nil {
		return nil, err
	}

	var card models.Card
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, card_number_encrypted, card_number_last_four, expiration_month, expiration_year, cvv_encrypted, is_active, created_at, updated_at
		FROM cards
		WHERE account_id = $1`, accountID).Scan(
		&card.ID, &card.AccountID, &card.CardNumberEncrypted, &card.CardNumberLastFour,
		&card.ExpirationMonth, &card.ExpirationYear, &card.CVVEncrypted, &card.IsActive,
		&card.CreatedAt, &card.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &InvalidCardUseError{Reason: "card not found"}
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// Deactivate blocks the card, e.g. when reported lost. Further debit
// attempts referencing it are declined by the transaction engine.
func (s *CardService) Deactivate(ctx context.Context, accountID, holderID string) error {
	card, err := s.Get(ctx, accountID, holderID)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE cards SET is_active = FALSE, updated_at = $1 WHERE id = $2`,
		time.Now(), card.ID)
	if err != nil {
		return err
	}

	log.Printf("[CARD] Deactivated card %s on account %s", card.ID, accountID)
	return nil
}

func (s *CardService) verifyAccountOwner(ctx context.Context, accountID, holderID string) error {
	var ownerID string
	err := s.db.QueryRowContext(ctx,
		`SELECT account_holder_id FROM accounts WHERE id = $1`, accountID).Scan(&ownerID)
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

// generateCardNumber produces a 16-digit number in the 4xxx range.
func generateCardNumber() (string, error) {
	digits := make([]byte, 16)
	digits[0] = '4'
	for i := 1; i < len(digits); i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + d.Int64())
	}
	return string(digits), nil
}

func generateCVV() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%03d", n.Int64()), nil
}

package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
)

// QRService issues short-lived receive-money codes. A holder generates a
// code for one of their accounts (optionally with a requested amount); the
// payer scans it, the code resolves back to the destination account, and
// the payer initiates a normal transfer. Codes are single-use and expire
// after five minutes.
type QRService struct {
	db    *sql.DB
	redis *redis.Client
}

func NewQRService(db *sql.DB, redis *redis.Client) *QRService {
	return &QRService{
		db:    db,
		redis: redis,
	}
}

const qrCodeTTL = 5 * time.Minute

func (s *QRService) GenerateReceiveCode(ctx context.Context, accountID, holderID string, amountCents int64) (string, string, error) {
	if s.redis == nil {
		return "", "", errors.New("receive codes require redis")
	}

	var ownerID, accountNumber string
	err := s.db.QueryRowContext(ctx,
		`SELECT account_holder_id, account_number FROM accounts WHERE id = $1`, accountID).
		Scan(&ownerID, &accountNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", &AccountNotFoundError{AccountID: accountID}
	}
	if err != nil {
		return "", "", err
	}
	if ownerID != holderID {
		return "", "", &UnauthorizedAccessError{Detail: "you do not have access to this account"}
	}

	qrData := map[string]any{
		"accountId":     accountID,
		"accountNumber": accountNumber,
		"amountCents":   amountCents,
		"timestamp":     time.Now().Unix(),
		"nonce":         s.generateNonce(),
	}

	jsonData, err := json.Marshal(qrData)
	if err != nil {
		return "", "", err
	}

	qrCode := base64.URLEncoding.EncodeToString(jsonData)

	key := fmt.Sprintf("qr:%s", qrCode)
	if err := s.redis.Set(ctx, key, jsonData, qrCodeTTL).Err(); err != nil {
		return "", "", err
	}

	qr, err := qrcode.New(qrCode, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	qrImage := base64.StdEncoding.EncodeToString(buf.Bytes())

	return qrCode, qrImage, nil
}

// ResolveReceiveCode consumes a code and returns its payload. Codes are
// deleted on first resolution so a scanned code cannot be replayed.
func (s *QRService) ResolveReceiveCode(ctx context.Context, qrData string) (map[string]any, error) {
	if s.redis == nil {
		return nil, errors.New("receive codes require redis")
	}

	key := fmt.Sprintf("qr:%s", qrData)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("invalid or expired QR code")
	}
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	s.redis.Del(ctx, key)

	return result, nil
}

func (s *QRService) generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

package vault

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/spf13/viper"
	"golang.org/x/crypto/chacha20poly1305"
)

// Vault encrypts sensitive card data at rest with XChaCha20-Poly1305
// authenticated encryption. Ciphertexts are both confidential and
// tamper-evident; a database breach does not expose card numbers.
type Vault struct {
	key []byte
}

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// New builds a Vault from the configured base64 key (vault.key).
func New() (*Vault, error) {
	encoded := viper.GetString("vault.key")
	if encoded == "" {
		return nil, errors.New("vault.key is not configured")
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("vault.key is not valid base64: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("vault.key must decode to %d bytes", chacha20poly1305.KeySize)
	}

	return &Vault{key: key}, nil
}

// NewWithKey builds a Vault from a raw 32-byte key. Used by tests.
func NewWithKey(key []byte) (*Vault, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("key must be %d bytes", chacha20poly1305.KeySize)
	}
	return &Vault{key: key}, nil
}

// Encrypt seals a plaintext value and returns base64(nonce || ciphertext).
func (v *Vault) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (v *Vault) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", err
	}

	if len(sealed) < aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	return string(plaintext), nil
}

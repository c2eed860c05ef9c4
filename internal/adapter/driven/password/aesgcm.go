package password

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/ericfisherdev/authgateway/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PasswordHasher = (*Cipher)(nil)

// Cipher is the legacy reversible password scheme: AES-256-GCM keyed by the
// static secret. Anyone holding the key can recover every stored password,
// which is why argon2id is the default for new credentials.
type Cipher struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewCipher creates a Cipher. key must be 32 bytes for AES-256-GCM.
func NewCipher(key []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Cipher{aead: gcm, rand: rand.Reader}, nil
}

// Hash encrypts password and returns a base64-encoded string containing the
// nonce prepended to the ciphertext.
func (c *Cipher) Hash(password string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	sealed := c.aead.Seal(nonce, nonce, []byte(password), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Verify decrypts stored and compares it with password in constant time.
func (c *Cipher) Verify(stored, password string) (bool, error) {
	plaintext, err := c.decrypt(stored)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(plaintext, []byte(password)) == 1, nil
}

func (c *Cipher) decrypt(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("gcm.Open: %w", err)
	}
	return plaintext, nil
}

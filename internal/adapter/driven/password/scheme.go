package password

import (
	"fmt"

	"github.com/ericfisherdev/authgateway/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PasswordHasher = (*Scheme)(nil)

// Scheme hashes new passwords with one primary hasher and verifies stored
// values with whichever hasher produced them. Argon2id hashes are recognised
// by their PHC prefix; anything else is treated as legacy ciphertext.
type Scheme struct {
	primary driven.PasswordHasher
	argon2  *Argon2Hasher
	legacy  *Cipher
}

// NewScheme creates a Scheme. name selects the hasher used for new
// passwords: "argon2id" or "aesgcm". legacy decrypts existing ciphertext
// records in either mode.
func NewScheme(name string, argon2 *Argon2Hasher, legacy *Cipher) (*Scheme, error) {
	s := &Scheme{argon2: argon2, legacy: legacy}
	switch name {
	case "argon2id":
		s.primary = argon2
	case "aesgcm":
		s.primary = legacy
	default:
		return nil, fmt.Errorf("unknown password scheme %q", name)
	}
	return s, nil
}

// Hash derives the stored form of password with the primary hasher.
func (s *Scheme) Hash(password string) (string, error) {
	return s.primary.Hash(password)
}

// Verify dispatches to the hasher matching the stored value's format.
func (s *Scheme) Verify(stored, password string) (bool, error) {
	if IsArgon2Hash(stored) {
		return s.argon2.Verify(stored, password)
	}
	return s.legacy.Verify(stored, password)
}

// Package password implements the PasswordHasher port: argon2id hashing for
// new credentials and the legacy reversible AES-256-GCM cipher.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/ericfisherdev/authgateway/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PasswordHasher = (*Argon2Hasher)(nil)

// argon2Prefix marks a PHC-formatted argon2id hash.
const argon2Prefix = "$argon2id$"

// ErrMalformedHash is returned when a stored value is not a valid argon2id hash.
var ErrMalformedHash = errors.New("malformed argon2id hash")

// Upper bounds on the parameters accepted from a stored hash. A record with
// larger costs is rejected before any key derivation runs.
const (
	maxArgon2Iterations = 4 * 3
	maxArgon2Memory     = 4 * 64 * 1024
	maxArgon2Threads    = 4 * 2
	maxArgon2SaltLength = 64
	maxArgon2KeyLength  = 128
)

// Argon2Params are the argon2id cost parameters. Memory is in KiB.
type Argon2Params struct {
	Iterations uint32
	Memory     uint32
	Threads    uint8
	SaltLength uint32
	KeyLength  uint32
}

// DefaultArgon2Params returns the cost parameters used for new hashes.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Iterations: 3,
		Memory:     64 * 1024,
		Threads:    2,
		SaltLength: 16,
		KeyLength:  32,
	}
}

// Argon2Hasher hashes passwords with argon2id and encodes them in PHC string
// format: $argon2id$v=19$m=<mem>,t=<iter>,p=<threads>$<salt>$<key>.
type Argon2Hasher struct {
	params Argon2Params
	rand   io.Reader
}

// NewArgon2Hasher creates an Argon2Hasher with the given parameters.
func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	return &Argon2Hasher{params: params, rand: rand.Reader}
}

// Hash derives a salted argon2id hash of password.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("rand salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.Memory, h.params.Threads, h.params.KeyLength)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix,
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash of password with the parameters and salt
// recorded in stored and compares the keys in constant time.
func (h *Argon2Hasher) Verify(stored, password string) (bool, error) {
	params, salt, key, err := decodeArgon2(stored)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(candidate, key) == 1, nil
}

// IsArgon2Hash reports whether stored looks like an argon2id PHC string.
func IsArgon2Hash(stored string) bool {
	return strings.HasPrefix(stored, argon2Prefix)
}

func decodeArgon2(stored string) (Argon2Params, []byte, []byte, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Argon2Params{}, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: version: %v", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	var p Argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Threads); err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: params: %v", ErrMalformedHash, err)
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Threads == 0 {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: zero cost parameter", ErrMalformedHash)
	}
	if p.Memory > maxArgon2Memory || p.Iterations > maxArgon2Iterations || p.Threads > maxArgon2Threads {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: cost parameters m=%d,t=%d,p=%d exceed limits",
			ErrMalformedHash, p.Memory, p.Iterations, p.Threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	if len(salt) > maxArgon2SaltLength {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: salt too long", ErrMalformedHash)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > maxArgon2KeyLength {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}

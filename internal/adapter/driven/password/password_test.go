package password

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = bytes.Repeat([]byte{0x42}, 32)

// cheapParams keeps argon2 fast enough for unit tests.
func cheapParams() Argon2Params {
	return Argon2Params{Iterations: 1, Memory: 1024, Threads: 1, SaltLength: 16, KeyLength: 32}
}

func TestArgon2Hasher_HashAndVerify(t *testing.T) {
	h := NewArgon2Hasher(cheapParams())

	stored, err := h.Hash("pw1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored, "$argon2id$v=19$m=1024,t=1,p=1$"))
	assert.NotContains(t, stored, "pw1")

	ok, err := h.Verify(stored, "pw1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(stored, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2Hasher_SaltsDiffer(t *testing.T) {
	h := NewArgon2Hasher(cheapParams())

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestArgon2Hasher_VerifyUsesStoredParams(t *testing.T) {
	stored, err := NewArgon2Hasher(cheapParams()).Hash("pw")
	require.NoError(t, err)

	// A hasher configured with different costs still verifies old hashes.
	ok, err := NewArgon2Hasher(DefaultArgon2Params()).Verify(stored, "pw")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDefaultArgon2Params_WithinLimits(t *testing.T) {
	stored, err := NewArgon2Hasher(DefaultArgon2Params()).Hash("pw")
	require.NoError(t, err)

	params, _, _, err := decodeArgon2(stored)
	require.NoError(t, err)
	assert.Equal(t, DefaultArgon2Params(), params)
}

func TestArgon2Hasher_Malformed(t *testing.T) {
	h := NewArgon2Hasher(cheapParams())

	tests := []struct {
		name   string
		stored string
	}{
		{name: "empty", stored: ""},
		{name: "wrong algorithm", stored: "$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5"},
		{name: "bad version", stored: "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$a2V5"},
		{name: "bad params", stored: "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5"},
		{name: "zero cost", stored: "$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5"},
		{name: "bad salt", stored: "$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5"},
		{name: "empty key", stored: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$"},
		{name: "memory above limit", stored: "$argon2id$v=19$m=4294967295,t=1,p=1$c2FsdA$a2V5"},
		{name: "iterations above limit", stored: "$argon2id$v=19$m=1024,t=1000000,p=1$c2FsdA$a2V5"},
		{name: "threads above limit", stored: "$argon2id$v=19$m=1024,t=1,p=255$c2FsdA$a2V5"},
		{name: "key too long", stored: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$" + strings.Repeat("A", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := h.Verify(tt.stored, "pw")
			assert.False(t, ok)
			assert.ErrorIs(t, err, ErrMalformedHash)
		})
	}
}

func TestCipher_HashAndVerify(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	stored, err := c.Hash("pw1")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", stored)

	ok, err := c.Verify(stored, "pw1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Verify(stored, "pw2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCipher_NonceIsRandom(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	a, err := c.Hash("pw")
	require.NoError(t, err)
	b, err := c.Hash("pw")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCipher_WrongKeyFails(t *testing.T) {
	c1, err := NewCipher(testKey)
	require.NoError(t, err)
	c2, err := NewCipher(bytes.Repeat([]byte{0x07}, 32))
	require.NoError(t, err)

	stored, err := c1.Hash("pw")
	require.NoError(t, err)

	ok, err := c2.Verify(stored, "pw")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestCipher_GarbageFails(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	for _, stored := range []string{"not base64!", "AAAA", ""} {
		ok, err := c.Verify(stored, "pw")
		assert.False(t, ok)
		assert.Error(t, err, "stored=%q", stored)
	}
}

func TestNewCipher_BadKey(t *testing.T) {
	_, err := NewCipher([]byte("short"))
	require.Error(t, err)
}

func TestScheme_Argon2Primary_VerifiesLegacy(t *testing.T) {
	legacy, err := NewCipher(testKey)
	require.NoError(t, err)
	s, err := NewScheme("argon2id", NewArgon2Hasher(cheapParams()), legacy)
	require.NoError(t, err)

	fresh, err := s.Hash("pw")
	require.NoError(t, err)
	assert.True(t, IsArgon2Hash(fresh))

	old, err := legacy.Hash("pw")
	require.NoError(t, err)

	for _, stored := range []string{fresh, old} {
		ok, err := s.Verify(stored, "pw")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestScheme_AESGCMPrimary(t *testing.T) {
	legacy, err := NewCipher(testKey)
	require.NoError(t, err)
	s, err := NewScheme("aesgcm", NewArgon2Hasher(cheapParams()), legacy)
	require.NoError(t, err)

	stored, err := s.Hash("pw")
	require.NoError(t, err)
	assert.False(t, IsArgon2Hash(stored))

	ok, err := s.Verify(stored, "pw")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewScheme_Unknown(t *testing.T) {
	_, err := NewScheme("rot13", nil, nil)
	require.Error(t, err)
}

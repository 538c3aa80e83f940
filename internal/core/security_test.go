// AngelaMos | 2026
// security_test.go

package core

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$12$"))

	ok, err := VerifyPassword("correct horse battery", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("correct horse batterY", hash)
	require.NoError(t, err, "mismatch must not be an error")
	assert.False(t, ok)
}

func TestHashPasswordIsSalted(t *testing.T) {
	a, err := HashPassword("same-password")
	require.NoError(t, err)
	b, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	ok, err := VerifyPassword("anything", "not-a-hash")
	assert.Error(t, err)
	assert.False(t, ok)
}

func legacyArgonHash(t *testing.T, password string) string {
	t.Helper()
	salt := []byte("0123456789abcdef")
	key := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, 64*1024, 1, 4,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

func TestCheckPasswordUpgradesLegacyArgon(t *testing.T) {
	legacy := legacyArgonHash(t, "old-password")

	check, err := CheckPassword("old-password", &legacy)
	require.NoError(t, err)
	assert.True(t, check.Valid)
	require.NotEmpty(t, check.Rehash)

	cost, err := bcrypt.Cost([]byte(check.Rehash))
	require.NoError(t, err)
	assert.Equal(t, BcryptCost, cost)

	check, err = CheckPassword("wrong", &legacy)
	require.NoError(t, err)
	assert.Equal(t, PasswordCheck{}, check)
}

func TestCheckPasswordUpgradesLowCost(t *testing.T) {
	weak, err := bcrypt.GenerateFromPassword([]byte("pw-123456"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := string(weak)

	check, err := CheckPassword("pw-123456", &stored)
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assert.NotEmpty(t, check.Rehash)
}

func TestCheckPasswordAbsentAccounts(t *testing.T) {
	check, err := CheckPassword("whatever", nil)
	require.NoError(t, err)
	assert.False(t, check.Valid)

	empty := ""
	check, err = CheckPassword("whatever", &empty)
	require.NoError(t, err)
	assert.False(t, check.Valid, "oauth-only accounts never match a password")

	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	check, err = CheckPassword("hunter22", &hash)
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assert.Empty(t, check.Rehash)
}

func TestMalformedArgonHash(t *testing.T) {
	_, err := VerifyPassword("pw", "$argon2id$v=19$m=x$salt$key")
	assert.ErrorIs(t, err, ErrMalformedHash)

	_, err = VerifyPassword("pw", "$argon2id$v=1$m=65536,t=1,p=4$c2FsdA$a2V5")
	assert.ErrorIs(t, err, ErrMalformedHash)
}

func TestLooksLikeAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.True(t, LooksLikeAPIKey(key))

	pub, err := GeneratePublicKey()
	require.NoError(t, err)
	assert.False(t, LooksLikeAPIKey(pub))
	assert.False(t, LooksLikeAPIKey(APIKeyPrefix))
}

func TestGeneratedKeys(t *testing.T) {
	apiKey, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(apiKey, APIKeyPrefix))

	pub, err := GeneratePublicKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(pub, PublicKeyPrefix))
	assert.Len(t, pub, len(PublicKeyPrefix)+32)

	other, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, apiKey, other)
}

func TestHashToken(t *testing.T) {
	h := HashToken("token-value")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashToken("token-value"))
	assert.NotEqual(t, h, HashToken("token-valuf"))
}

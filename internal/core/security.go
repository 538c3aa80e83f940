// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for new hashes. Stored hashes with any
// other cost are upgraded on the next successful login.
const BcryptCost = 12

const (
	APIKeyPrefix    = "sk_live_"
	PublicKeyPrefix = "pk_live_"

	argonPrefix = "$argon2id$"
)

var ErrMalformedHash = errors.New("malformed password hash")

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches encodedHash. A mismatch
// is (false, nil); errors are reserved for malformed hashes.
func VerifyPassword(password, encodedHash string) (bool, error) {
	if strings.HasPrefix(encodedHash, argonPrefix) {
		return verifyArgon2(password, encodedHash)
	}

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare password: %w", err)
	}
}

// PasswordCheck is the outcome of CheckPassword. Rehash is non-empty when
// the stored hash matched but should be replaced.
type PasswordCheck struct {
	Valid  bool
	Rehash string
}

// placeholderHash is compared against when a tenant has no password so the
// request costs the same as a real mismatch.
var placeholderHash = mustHash("placeholder password for absent accounts")

func mustHash(password string) string {
	hash, err := HashPassword(password)
	if err != nil {
		panic(fmt.Sprintf("security: hash placeholder: %v", err))
	}
	return hash
}

// CheckPassword verifies password against stored, which is nil for unknown
// accounts and empty for OAuth-only tenants. Both always fail after a full
// bcrypt comparison.
func CheckPassword(password string, stored *string) (PasswordCheck, error) {
	if stored == nil || *stored == "" {
		//nolint:errcheck // placeholder comparison only burns time
		_, _ = VerifyPassword(password, placeholderHash)
		return PasswordCheck{}, nil
	}

	valid, err := VerifyPassword(password, *stored)
	if err != nil || !valid {
		return PasswordCheck{}, err
	}

	check := PasswordCheck{Valid: true}
	if needsRehash(*stored) {
		// a failed upgrade leaves the old hash in place
		if hash, err := HashPassword(password); err == nil {
			check.Rehash = hash
		}
	}
	return check, nil
}

func needsRehash(encodedHash string) bool {
	if strings.HasPrefix(encodedHash, argonPrefix) {
		return true
	}
	cost, err := bcrypt.Cost([]byte(encodedHash))
	return err != nil || cost != BcryptCost
}

// argonHash is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type argonHash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func verifyArgon2(password, encodedHash string) (bool, error) {
	h, err := parseArgonHash(encodedHash)
	if err != nil {
		return false, err
	}

	//nolint:gosec // G115: argon2 key lengths are small
	derived := argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(h.key, derived) == 1, nil
}

func parseArgonHash(encodedHash string) (*argonHash, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, fmt.Errorf("argon2: %w", ErrMalformedHash)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("argon2 version %q: %w", parts[2], ErrMalformedHash)
	}

	h := &argonHash{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return nil, fmt.Errorf("argon2 params: %w", ErrMalformedHash)
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("argon2 salt: %w", ErrMalformedHash)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("argon2 key: %w", ErrMalformedHash)
	}
	return h, nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}
	return b, nil
}

func GenerateSecureToken(length int) (string, error) {
	b, err := randomBytes(length)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func GenerateSessionToken() (string, error) {
	return GenerateSecureToken(32)
}

// GenerateAPIKey returns a secret dashboard key. Only its HashToken digest
// is stored.
func GenerateAPIKey() (string, error) {
	token, err := GenerateSecureToken(32)
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + token, nil
}

// GeneratePublicKey returns the embed key. It is published in host pages
// and stored in clear.
func GeneratePublicKey() (string, error) {
	b, err := randomBytes(16)
	if err != nil {
		return "", err
	}
	return PublicKeyPrefix + hex.EncodeToString(b), nil
}

// LooksLikeAPIKey rejects values that cannot be secret keys, including a
// public key pasted into the wrong header.
func LooksLikeAPIKey(key string) bool {
	return strings.HasPrefix(key, APIKeyPrefix) && len(key) > len(APIKeyPrefix)
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

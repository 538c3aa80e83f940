// AngelaMos | 2026
// token.go

package auth

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/templates/configurator-api/internal/config"
	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

const (
	EditTokenTTL = time.Hour

	claimType           = "type"
	claimConfiguratorID = "configuratorId"
	claimPublicKey      = "publicKey"
	claimEmail          = "email"
)

var expiryPattern = regexp.MustCompile(`^(\d+)([smhdwy])$`)

var expiryUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
	"y": 365 * 24 * time.Hour,
}

// ParseExpiry accepts a positive count followed by one unit letter, for
// example "7d" or "12h".
func ParseExpiry(s string) (time.Duration, error) {
	m := expiryPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf(
			"expiry %q must match ^\\d+[smhdwy]$: %w",
			s,
			core.ErrInvalidInput,
		)
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("expiry %q must be positive: %w", s, core.ErrInvalidInput)
	}

	unit := expiryUnits[m[2]]
	if n > int64(math.MaxInt64/unit) {
		return 0, fmt.Errorf("expiry %q is too large: %w", s, core.ErrInvalidInput)
	}

	return time.Duration(n) * unit, nil
}

// TokenIssuer signs and verifies every token family with one HS256 secret.
// It holds no fallback: an empty secret fails both directions.
type TokenIssuer struct {
	secret     []byte
	sessionTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(cfg config.AuthConfig) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(cfg.SigningSecret),
		sessionTTL: cfg.SessionTTL,
		now:        time.Now,
	}
}

func (i *TokenIssuer) Configured() bool {
	return len(i.secret) > 0
}

func (i *TokenIssuer) IssueSession(tenantID string) (string, SessionClaims, error) {
	claims := SessionClaims{RegisteredClaims: i.registered(tenantID, i.sessionTTL)}

	signed, err := i.sign(claims.RegisteredClaims, PurposeSession, nil)
	if err != nil {
		return "", SessionClaims{}, err
	}
	return signed, claims, nil
}

func (i *TokenIssuer) IssueEdit(tenantID, configuratorID string) (string, EditClaims, error) {
	claims := EditClaims{
		RegisteredClaims: i.registered(tenantID, EditTokenTTL),
		ConfiguratorID:   configuratorID,
	}

	signed, err := i.sign(claims.RegisteredClaims, PurposeConfiguratorEdit, map[string]any{
		claimConfiguratorID: configuratorID,
	})
	if err != nil {
		return "", EditClaims{}, err
	}
	return signed, claims, nil
}

func (i *TokenIssuer) IssueAPI(
	tenantID, publicKey, email string,
	ttl time.Duration,
) (string, APIClaims, error) {
	claims := APIClaims{
		RegisteredClaims: i.registered(tenantID, ttl),
		PublicKey:        publicKey,
		Email:            email,
	}

	signed, err := i.sign(claims.RegisteredClaims, PurposeAPIAccess, map[string]any{
		claimPublicKey: publicKey,
		claimEmail:     email,
	})
	if err != nil {
		return "", APIClaims{}, err
	}
	return signed, claims, nil
}

func (i *TokenIssuer) registered(tenantID string, ttl time.Duration) RegisteredClaims {
	now := i.now().Truncate(time.Second)
	return RegisteredClaims{
		TenantID:  tenantID,
		TokenID:   uuid.New().String(),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func (i *TokenIssuer) sign(
	rc RegisteredClaims,
	purpose Purpose,
	extra map[string]any,
) (string, error) {
	if !i.Configured() {
		return "", fmt.Errorf("sign %s token: %w", purpose, core.ErrServerMisconfigured)
	}

	builder := jwt.NewBuilder().
		JwtID(rc.TokenID).
		Subject(rc.TenantID).
		IssuedAt(rc.IssuedAt).
		Expiration(rc.ExpiresAt).
		Claim(claimType, purpose.String())

	for k, v := range extra {
		builder = builder.Claim(k, v)
	}

	token, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), i.secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	core.TokensIssued.WithLabelValues(purpose.String()).Inc()
	return string(signed), nil
}

// Verify checks signature and time claims and decodes the token into its
// family. Every decode failure is ErrTokenInvalid or ErrTokenExpired.
func (i *TokenIssuer) Verify(tokenString string) (Claims, error) {
	if !i.Configured() {
		return nil, fmt.Errorf("verify token: %w", core.ErrServerMisconfigured)
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), i.secret),
		jwt.WithValidate(true),
	)
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf("verify token: missing subject: %w", core.ErrTokenInvalid)
	}

	var typ string
	if token.Has(claimType) {
		if err := token.Get(claimType, &typ); err != nil {
			return nil, fmt.Errorf("verify token: bad type claim: %w", core.ErrTokenInvalid)
		}
	}

	purpose, err := ParsePurpose(typ)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	rc := RegisteredClaims{TenantID: subject}
	rc.TokenID, _ = token.JwtID()
	rc.IssuedAt, _ = token.IssuedAt()
	rc.ExpiresAt, _ = token.Expiration()

	switch purpose {
	case PurposeSession:
		return SessionClaims{RegisteredClaims: rc}, nil

	case PurposeConfiguratorEdit:
		var configuratorID string
		if err := token.Get(claimConfiguratorID, &configuratorID); err != nil ||
			configuratorID == "" {
			return nil, fmt.Errorf(
				"verify token: edit token without configurator: %w",
				core.ErrTokenInvalid,
			)
		}
		return EditClaims{RegisteredClaims: rc, ConfiguratorID: configuratorID}, nil

	case PurposeAPIAccess:
		var publicKey, email string
		if err := token.Get(claimPublicKey, &publicKey); err != nil || publicKey == "" {
			return nil, fmt.Errorf(
				"verify token: api token without public key: %w",
				core.ErrTokenInvalid,
			)
		}
		_ = token.Get(claimEmail, &email) //nolint:errcheck // email is informational
		return APIClaims{RegisteredClaims: rc, PublicKey: publicKey, Email: email}, nil
	}

	return nil, fmt.Errorf("verify token: unhandled purpose: %w", core.ErrTokenInvalid)
}

func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		strings.Contains(errStr, "not satisfied")
}

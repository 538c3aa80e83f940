// AngelaMos | 2026
// strategy.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
	"github.com/carterperez-dev/templates/configurator-api/internal/middleware"
)

// ErrNoCredentials is the soft failure: this strategy does not apply to
// the request and the dispatcher should try the next one. Every other
// error is final.
var ErrNoCredentials = errors.New("no usable credentials")

const (
	HeaderEditToken = "X-Edit-Token"
	HeaderAPIToken  = "X-Api-Token"
	HeaderAPIKey    = "X-Api-Key"
)

type Strategy interface {
	Name() string
	Authenticate(r *http.Request) (*middleware.Identity, error)
}

// TenantLookup is the read side of TenantProvider used on every request.
type TenantLookup interface {
	GetByID(ctx context.Context, id string) (*TenantInfo, error)
	GetByAPIKeyHash(ctx context.Context, keyHash string) (*TenantInfo, error)
}

func skip(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrNoCredentials)
}

func identityFor(t *TenantInfo, method middleware.Method) *middleware.Identity {
	return &middleware.Identity{
		TenantID: t.ID,
		Email:    t.Email,
		Role:     t.Role,
		Plan:     t.Plan,
		Method:   method,
	}
}

// loadTenant treats a vanished tenant as "not us"; any store failure is
// surfaced.
func loadTenant(ctx context.Context, tenants TenantLookup, id string) (*TenantInfo, error) {
	tenant, err := tenants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, skip("tenant not found")
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	return tenant, nil
}

type SessionStrategy struct {
	cookieName string
	sessions   Repository
	tenants    TenantLookup
	now        func() time.Time
}

func NewSessionStrategy(
	cookieName string,
	sessions Repository,
	tenants TenantLookup,
) *SessionStrategy {
	return &SessionStrategy{
		cookieName: cookieName,
		sessions:   sessions,
		tenants:    tenants,
		now:        time.Now,
	}
}

func (s *SessionStrategy) Name() string { return string(middleware.MethodSession) }

func (s *SessionStrategy) Authenticate(r *http.Request) (*middleware.Identity, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, skip("no session cookie")
	}

	ctx := r.Context()

	session, err := s.sessions.FindByHash(ctx, core.HashToken(cookie.Value))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, skip("unknown session")
		}
		return nil, fmt.Errorf("session lookup: %w", err)
	}

	if !session.IsValid() {
		return nil, skip("session expired or revoked")
	}

	tenant, err := loadTenant(ctx, s.tenants, session.TenantID)
	if err != nil {
		return nil, err
	}

	if tenant.IsLocked(s.now()) {
		return nil, fmt.Errorf("session for %s: %w", tenant.ID, core.ErrAccountLocked)
	}

	identity := identityFor(tenant, middleware.MethodSession)
	identity.SessionID = session.ID
	identity.TokenExpiresAt = session.ExpiresAt
	return identity, nil
}

// TokenStrategy accepts any signed token family from the Authorization
// bearer, then X-Edit-Token, then X-Api-Token.
type TokenStrategy struct {
	issuer    *TokenIssuer
	tenants   TenantLookup
	blacklist *Blacklist
	logger    *slog.Logger
	now       func() time.Time
}

func NewTokenStrategy(
	issuer *TokenIssuer,
	tenants TenantLookup,
	blacklist *Blacklist,
	logger *slog.Logger,
) *TokenStrategy {
	return &TokenStrategy{
		issuer:    issuer,
		tenants:   tenants,
		blacklist: blacklist,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *TokenStrategy) Name() string { return string(middleware.MethodToken) }

func extractToken(r *http.Request) string {
	if token := middleware.ExtractBearerToken(r); token != "" {
		return token
	}
	if token := r.Header.Get(HeaderEditToken); token != "" {
		return token
	}
	return r.Header.Get(HeaderAPIToken)
}

func (s *TokenStrategy) Authenticate(r *http.Request) (*middleware.Identity, error) {
	raw := extractToken(r)
	if raw == "" {
		return nil, skip("no token")
	}

	claims, err := s.issuer.Verify(raw)
	if err != nil {
		if errors.Is(err, core.ErrServerMisconfigured) {
			return nil, err
		}
		return nil, skip(err.Error())
	}

	ctx := r.Context()
	rc := claims.Registered()

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsRevoked(ctx, rc.TokenID)
		if err != nil {
			s.logger.WarnContext(ctx, "token blacklist unavailable", "error", err)
		}
		if revoked {
			return nil, fmt.Errorf("token %s: %w", rc.TokenID, core.ErrTokenRevoked)
		}
	}

	tenant, err := loadTenant(ctx, s.tenants, rc.TenantID)
	if err != nil {
		return nil, err
	}

	if tenant.IsLocked(s.now()) {
		return nil, fmt.Errorf("token for %s: %w", tenant.ID, core.ErrAccountLocked)
	}

	if tenant.SubscriptionInactive() {
		return nil, fmt.Errorf(
			"token for %s (%s): %w",
			tenant.ID,
			tenant.SubscriptionStatus,
			core.ErrSubscriptionInactive,
		)
	}

	identity := identityFor(tenant, middleware.MethodToken)
	identity.Purpose = claims.Purpose().String()
	identity.TokenID = rc.TokenID
	identity.TokenExpiresAt = rc.ExpiresAt

	switch c := claims.(type) {
	case EditClaims:
		identity.ConfiguratorID = c.ConfiguratorID
	case APIClaims:
		if c.PublicKey != tenant.PublicKey {
			return nil, skip("api token public key rotated")
		}
	}

	return identity, nil
}

type APIKeyStrategy struct {
	tenants TenantLookup
	now     func() time.Time
}

func NewAPIKeyStrategy(tenants TenantLookup) *APIKeyStrategy {
	return &APIKeyStrategy{tenants: tenants, now: time.Now}
}

func (s *APIKeyStrategy) Name() string { return string(middleware.MethodAPIKey) }

func (s *APIKeyStrategy) Authenticate(r *http.Request) (*middleware.Identity, error) {
	key := r.Header.Get(HeaderAPIKey)
	if key == "" {
		return nil, skip("no api key")
	}
	if !core.LooksLikeAPIKey(key) {
		return nil, skip("malformed api key")
	}

	tenant, err := s.tenants.GetByAPIKeyHash(r.Context(), core.HashToken(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, skip("unknown api key")
		}
		return nil, fmt.Errorf("api key lookup: %w", err)
	}

	if tenant.IsLocked(s.now()) {
		return nil, fmt.Errorf("api key for %s: %w", tenant.ID, core.ErrAccountLocked)
	}

	return identityFor(tenant, middleware.MethodAPIKey), nil
}

// AngelaMos | 2026
// oauth.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/carterperez-dev/templates/configurator-api/internal/config"
	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

func oauthStateKey(state string) string {
	return core.RedisKey("oauth", "state", state)
}

// ExternalIdentity is what an identity provider asserts about the caller
// after a successful code exchange.
type ExternalIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

type OIDCProvider interface {
	AuthCodeURL(state, nonce string) string
	Exchange(ctx context.Context, code, nonce string) (*ExternalIdentity, error)
}

type oidcProvider struct {
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
}

// NewOIDCProvider discovers the issuer's endpoints, so it performs network
// I/O and should be called once at startup.
func NewOIDCProvider(ctx context.Context, cfg config.OAuthConfig) (OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider: %w", err)
	}

	return &oidcProvider{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
		},
	}, nil
}

func (p *oidcProvider) AuthCodeURL(state, nonce string) string {
	return p.oauth2Config.AuthCodeURL(state, oidc.Nonce(nonce))
}

func (p *oidcProvider) Exchange(
	ctx context.Context,
	code, nonce string,
) (*ExternalIdentity, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("missing id_token in response: %w", core.ErrTokenInvalid)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", core.ErrTokenInvalid)
	}

	if idToken.Nonce != nonce {
		return nil, fmt.Errorf("id token nonce mismatch: %w", core.ErrTokenInvalid)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse id token claims: %w", err)
	}

	return &ExternalIdentity{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

// StateStore keeps the one-time state and nonce of in-flight logins.
type StateStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	return &StateStore{redis: client, ttl: ttl}
}

func (s *StateStore) Save(ctx context.Context, state, nonce string) error {
	if err := s.redis.Set(ctx, oauthStateKey(state), nonce, s.ttl).Err(); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

// Consume returns the nonce bound to state and deletes it. Unknown or
// replayed states are ErrTokenInvalid.
func (s *StateStore) Consume(ctx context.Context, state string) (string, error) {
	nonce, err := s.redis.GetDel(ctx, oauthStateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("consume oauth state: %w", core.ErrTokenInvalid)
	}
	if err != nil {
		return "", fmt.Errorf("consume oauth state: %w", err)
	}
	return nonce, nil
}

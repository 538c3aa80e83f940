// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/configurator-api/internal/access"
	"github.com/carterperez-dev/templates/configurator-api/internal/config"
	"github.com/carterperez-dev/templates/configurator-api/internal/core"
	"github.com/carterperez-dev/templates/configurator-api/internal/middleware"
	"github.com/carterperez-dev/templates/configurator-api/internal/notify"
	"github.com/carterperez-dev/templates/configurator-api/internal/usage"
)

type TenantProvider interface {
	TenantLookup
	GetByEmail(ctx context.Context, email string) (*TenantInfo, error)
	GetByPublicKey(ctx context.Context, publicKey string) (*TenantInfo, error)
	GetByOAuthSubject(ctx context.Context, subject string) (*TenantInfo, error)
	Create(ctx context.Context, t NewTenant) (*TenantInfo, error)
	LinkOAuthSubject(ctx context.Context, tenantID, subject string) error
	UpdatePassword(ctx context.Context, tenantID, passwordHash string) error
	// RecordFailedLogin increments the failure counter and, once it
	// reaches maxAttempts, locks the tenant for lockFor. It reports
	// whether this call applied the lock.
	RecordFailedLogin(
		ctx context.Context,
		tenantID string,
		maxAttempts int,
		lockFor time.Duration,
	) (bool, error)
	ResetFailedLogins(ctx context.Context, tenantID string) error
	SetResetToken(ctx context.Context, tenantID, tokenHash string, expiresAt time.Time) error
	// ConsumeResetToken swaps the password of the tenant holding an
	// unexpired tokenHash and clears the token. Unknown tokens are
	// core.ErrNotFound.
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string) (string, error)
}

type OwnershipGuard interface {
	AssertOwned(
		ctx context.Context,
		identity *middleware.Identity,
		ref access.ResourceRef,
	) (access.Owner, error)
}

type ServiceConfig struct {
	SessionTTL            time.Duration
	APITokenDefaultExpiry string
	ResetTokenTTL         time.Duration
	LockoutMaxAttempts    int
	LockoutDuration       time.Duration
	PublicURL             string
}

func NewServiceConfig(cfg *config.Config) ServiceConfig {
	return ServiceConfig{
		SessionTTL:            cfg.Auth.SessionTTL,
		APITokenDefaultExpiry: cfg.Auth.APITokenDefaultExpiry,
		ResetTokenTTL:         cfg.Auth.ResetTokenTTL,
		LockoutMaxAttempts:    cfg.Lockout.MaxAttempts,
		LockoutDuration:       cfg.Lockout.Duration,
		PublicURL:             cfg.App.PublicURL,
	}
}

type Deps struct {
	Sessions  Repository
	Issuer    *TokenIssuer
	Tenants   TenantProvider
	Blacklist *Blacklist
	Guard     OwnershipGuard
	Mailer    notify.Mailer
	OIDC      OIDCProvider
	States    *StateStore
	Logger    *slog.Logger
}

type Service struct {
	repo      Repository
	issuer    *TokenIssuer
	tenants   TenantProvider
	blacklist *Blacklist
	guard     OwnershipGuard
	mailer    notify.Mailer
	oidc      OIDCProvider
	states    *StateStore
	logger    *slog.Logger
	cfg       ServiceConfig
	now       func() time.Time
}

func NewService(deps Deps, cfg ServiceConfig) *Service {
	return &Service{
		repo:      deps.Sessions,
		issuer:    deps.Issuer,
		tenants:   deps.Tenants,
		blacklist: deps.Blacklist,
		guard:     deps.Guard,
		mailer:    deps.Mailer,
		oidc:      deps.OIDC,
		states:    deps.States,
		logger:    deps.Logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// LoginResult pairs the response body with the opaque cookie value,
// which is never serialized.
type LoginResult struct {
	Response     AuthResponse
	SessionToken string
	ExpiresAt    time.Time
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*LoginResult, error) {
	tenant, err := s.tenants.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // keeps timing equal for unknown accounts
			_, _ = core.CheckPassword(req.Password, nil)
			return nil, fmt.Errorf("login: %w", core.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}

	if tenant.IsLocked(s.now()) {
		return nil, fmt.Errorf("login %s: %w", tenant.ID, core.ErrAccountLocked)
	}

	check, err := core.CheckPassword(req.Password, tenant.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !check.Valid {
		s.recordFailure(ctx, tenant, ipAddress)
		return nil, fmt.Errorf("login: %w", core.ErrInvalidCredentials)
	}

	if err := s.tenants.ResetFailedLogins(ctx, tenant.ID); err != nil {
		s.logger.WarnContext(ctx, "reset failed logins", "tenant_id", tenant.ID, "error", err)
	}

	if check.Rehash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.tenants.UpdatePassword(ctx, tenant.ID, check.Rehash)
	}

	return s.createSession(ctx, tenant, userAgent, ipAddress)
}

func (s *Service) recordFailure(ctx context.Context, tenant *TenantInfo, ipAddress string) {
	locked, err := s.tenants.RecordFailedLogin(
		ctx,
		tenant.ID,
		s.cfg.LockoutMaxAttempts,
		s.cfg.LockoutDuration,
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "record failed login", "tenant_id", tenant.ID, "error", err)
		return
	}

	if locked {
		core.AccessDenials.WithLabelValues("lockout").Inc()
		s.logger.WarnContext(ctx, "tenant locked after repeated login failures",
			"tenant_id", tenant.ID,
			"ip_address", ipAddress,
			"lock_duration", s.cfg.LockoutDuration.String(),
		)
	}
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	userAgent, ipAddress string,
) (*RegisterResponse, *LoginResult, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	apiKey, err := core.GenerateAPIKey()
	if err != nil {
		return nil, nil, fmt.Errorf("generate api key: %w", err)
	}

	publicKey, err := core.GeneratePublicKey()
	if err != nil {
		return nil, nil, fmt.Errorf("generate public key: %w", err)
	}

	tenant, err := s.tenants.Create(ctx, NewTenant{
		Email:        strings.ToLower(req.Email),
		Name:         req.Name,
		Company:      req.Company,
		PasswordHash: &passwordHash,
		APIKeyHash:   core.HashToken(apiKey),
		PublicKey:    publicKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create tenant: %w", err)
	}

	result, err := s.createSession(ctx, tenant, userAgent, ipAddress)
	if err != nil {
		return nil, nil, err
	}

	return &RegisterResponse{AuthResponse: result.Response, APIKey: apiKey}, result, nil
}

func (s *Service) createSession(
	ctx context.Context,
	tenant *TenantInfo,
	userAgent, ipAddress string,
) (*LoginResult, error) {
	signed, claims, err := s.issuer.IssueSession(tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	cookieToken, err := core.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	session := &Session{
		ID:        uuid.New().String(),
		TenantID:  tenant.ID,
		TokenHash: core.HashToken(cookieToken),
		ExpiresAt: claims.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &LoginResult{
		Response: AuthResponse{
			Tenant: toTenantResponse(tenant),
			Tokens: TokenResponse{
				Token:     signed,
				TokenType: "Bearer",
				ExpiresAt: claims.ExpiresAt,
			},
		},
		SessionToken: cookieToken,
		ExpiresAt:    claims.ExpiresAt,
	}, nil
}

// Logout ends whatever credential carried the request: the cookie session
// or the presented signed token.
func (s *Service) Logout(ctx context.Context, identity *middleware.Identity) error {
	if identity.SessionID != "" {
		if err := s.repo.RevokeByID(ctx, identity.SessionID); err != nil &&
			!errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("revoke session: %w", err)
		}
	}

	if identity.TokenID != "" && s.blacklist != nil {
		if err := s.blacklist.Revoke(ctx, identity.TokenID, identity.TokenExpiresAt); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}

	return nil
}

func (s *Service) LogoutAll(ctx context.Context, identity *middleware.Identity) error {
	if err := s.repo.RevokeAllForTenant(ctx, identity.TenantID); err != nil {
		return fmt.Errorf("revoke all sessions: %w", err)
	}

	return s.Logout(ctx, identity)
}

func (s *Service) GetActiveSessions(
	ctx context.Context,
	identity *middleware.Identity,
) ([]SessionInfo, error) {
	sessions, err := s.repo.GetActiveSessionsForTenant(ctx, identity.TenantID)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, SessionInfo{
			ID:        sess.ID,
			UserAgent: sess.UserAgent,
			IPAddress: sess.IPAddress,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
			Current:   sess.ID == identity.SessionID,
		})
	}

	return infos, nil
}

// RevokeSession reports another tenant's session as not found.
func (s *Service) RevokeSession(ctx context.Context, tenantID, sessionID string) error {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}

	if session.TenantID != tenantID {
		return fmt.Errorf("revoke session: %w", core.ErrOwnershipMismatch)
	}

	if err := s.repo.RevokeByID(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	identity *middleware.Identity,
	currentPassword, newPassword string,
) error {
	tenant, err := s.tenants.GetByID(ctx, identity.TenantID)
	if err != nil {
		return fmt.Errorf("get tenant: %w", err)
	}

	check, err := core.CheckPassword(currentPassword, tenant.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}

	if !check.Valid {
		return fmt.Errorf("change password: %w", core.ErrInvalidCredentials)
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.tenants.UpdatePassword(ctx, tenant.ID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.LogoutAll(ctx, identity); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}

	return nil
}

// ForgotPassword always succeeds from the caller's point of view so the
// endpoint cannot be used to probe for accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	tenant, err := s.tenants.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get tenant: %w", err)
	}

	token, err := core.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := s.now().Add(s.cfg.ResetTokenTTL)
	if err := s.tenants.SetResetToken(ctx, tenant.ID, core.HashToken(token), expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	link := strings.TrimRight(s.cfg.PublicURL, "/") +
		"/reset-password?token=" + url.QueryEscape(token)

	err = s.mailer.Send(ctx, notify.Message{
		To:      tenant.Email,
		Subject: "Reset your password",
		Body: "A password reset was requested for your account.\n\n" +
			"Open this link within " + s.cfg.ResetTokenTTL.String() +
			" to choose a new password:\n\n" + link + "\n\n" +
			"If you did not request this, ignore this email.\n",
	})
	if err != nil {
		s.logger.WarnContext(ctx, "send password reset email",
			"tenant_id", tenant.ID,
			"error", err,
		)
	}

	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	tenantID, err := s.tenants.ConsumeResetToken(ctx, core.HashToken(token), newHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("reset password: %w", core.ErrTokenInvalid)
		}
		return fmt.Errorf("reset password: %w", err)
	}

	if err := s.repo.RevokeAllForTenant(ctx, tenantID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	if err := s.tenants.ResetFailedLogins(ctx, tenantID); err != nil {
		s.logger.WarnContext(ctx, "reset failed logins", "tenant_id", tenantID, "error", err)
	}

	return nil
}

// IssueEditToken mints a token scoped to one configurator after proving
// the caller owns it.
func (s *Service) IssueEditToken(
	ctx context.Context,
	identity *middleware.Identity,
	configuratorID string,
) (*EditTokenResponse, error) {
	if identity.ScopedToConfigurator() {
		return nil, fmt.Errorf("edit token cannot mint edit tokens: %w", core.ErrScopeMismatch)
	}

	if _, err := s.guard.AssertOwned(ctx, identity, access.Configurator(configuratorID)); err != nil {
		return nil, err
	}

	signed, claims, err := s.issuer.IssueEdit(identity.TenantID, configuratorID)
	if err != nil {
		return nil, fmt.Errorf("issue edit token: %w", err)
	}

	return &EditTokenResponse{
		Token:          signed,
		ConfiguratorID: claims.ConfiguratorID,
		ExpiresAt:      claims.ExpiresAt,
	}, nil
}

// IssueAPIToken mints a token bound to the tenant's public key. The quota
// check here only warns; enforcement happens on each governed call.
func (s *Service) IssueAPIToken(
	ctx context.Context,
	identity *middleware.Identity,
	req APITokenRequest,
) (*APITokenResponse, error) {
	expiresIn := req.ExpiresIn
	if expiresIn == "" {
		expiresIn = s.cfg.APITokenDefaultExpiry
	}

	ttl, err := ParseExpiry(expiresIn)
	if err != nil {
		return nil, err
	}

	tenant, err := s.tenants.GetByPublicKey(ctx, req.PublicKey)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("issue api token: unknown public key: %w", core.ErrUnauthorized)
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}

	if tenant.ID != identity.TenantID {
		s.logger.WarnContext(ctx, "api token requested for another tenant's public key",
			"caller_tenant_id", identity.TenantID,
			"owner_tenant_id", tenant.ID,
		)
		return nil, fmt.Errorf("issue api token: %w", core.ErrUnauthorized)
	}

	if tenant.IsLocked(s.now()) {
		return nil, fmt.Errorf("issue api token %s: %w", tenant.ID, core.ErrAccountLocked)
	}

	if tenant.SubscriptionInactive() {
		return nil, fmt.Errorf("issue api token %s: %w", tenant.ID, core.ErrSubscriptionInactive)
	}

	warning := usage.NearQuota(tenant.MonthlyRequests, tenant.RequestLimit)
	remaining := usage.Unmetered
	if tenant.RequestLimit > 0 {
		remaining = max(tenant.RequestLimit-tenant.MonthlyRequests, 0)
	}

	if warning {
		core.QuotaWarnings.Inc()
		s.logger.WarnContext(ctx, "tenant approaching monthly quota",
			"tenant_id", tenant.ID,
			"monthly_requests", tenant.MonthlyRequests,
			"request_limit", tenant.RequestLimit,
		)
	}

	signed, claims, err := s.issuer.IssueAPI(tenant.ID, tenant.PublicKey, tenant.Email, ttl)
	if err != nil {
		return nil, fmt.Errorf("issue api token: %w", err)
	}

	return &APITokenResponse{
		Token:        signed,
		ExpiresIn:    expiresIn,
		ExpiresAt:    claims.ExpiresAt,
		QuotaWarning: warning,
		Remaining:    remaining,
	}, nil
}

func (s *Service) GetMe(ctx context.Context, identity *middleware.Identity) (*MeResponse, error) {
	tenant, err := s.tenants.GetByID(ctx, identity.TenantID)
	if err != nil {
		return nil, err
	}

	return &MeResponse{
		Tenant:         toTenantResponse(tenant),
		Method:         string(identity.Method),
		Purpose:        identity.Purpose,
		ConfiguratorID: identity.ConfiguratorID,
	}, nil
}

func (s *Service) OAuthEnabled() bool {
	return s.oidc != nil && s.states != nil
}

// StartOAuth returns the provider URL to redirect the browser to.
func (s *Service) StartOAuth(ctx context.Context) (string, error) {
	if !s.OAuthEnabled() {
		return "", fmt.Errorf("oauth disabled: %w", core.ErrNotFound)
	}

	state, err := core.GenerateSecureToken(24)
	if err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}

	nonce, err := core.GenerateSecureToken(24)
	if err != nil {
		return "", fmt.Errorf("generate oauth nonce: %w", err)
	}

	if err := s.states.Save(ctx, state, nonce); err != nil {
		return "", err
	}

	return s.oidc.AuthCodeURL(state, nonce), nil
}

// CompleteOAuth resolves the external identity to a tenant by subject,
// then by verified email (linking the subject), and otherwise creates a
// passwordless tenant.
func (s *Service) CompleteOAuth(
	ctx context.Context,
	state, code, userAgent, ipAddress string,
) (*LoginResult, error) {
	if !s.OAuthEnabled() {
		return nil, fmt.Errorf("oauth disabled: %w", core.ErrNotFound)
	}

	nonce, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}

	ext, err := s.oidc.Exchange(ctx, code, nonce)
	if err != nil {
		return nil, fmt.Errorf("oauth exchange: %w", err)
	}

	tenant, err := s.resolveOAuthTenant(ctx, ext)
	if err != nil {
		return nil, err
	}

	if tenant.IsLocked(s.now()) {
		return nil, fmt.Errorf("oauth login %s: %w", tenant.ID, core.ErrAccountLocked)
	}

	return s.createSession(ctx, tenant, userAgent, ipAddress)
}

func (s *Service) resolveOAuthTenant(
	ctx context.Context,
	ext *ExternalIdentity,
) (*TenantInfo, error) {
	tenant, err := s.tenants.GetByOAuthSubject(ctx, ext.Subject)
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("get tenant by oauth subject: %w", err)
	}

	if ext.Email == "" || !ext.EmailVerified {
		return nil, fmt.Errorf("oauth identity without verified email: %w", core.ErrUnauthorized)
	}

	email := strings.ToLower(ext.Email)

	tenant, err = s.tenants.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.tenants.LinkOAuthSubject(ctx, tenant.ID, ext.Subject); err != nil {
			return nil, fmt.Errorf("link oauth subject: %w", err)
		}
		return tenant, nil
	case !errors.Is(err, core.ErrNotFound):
		return nil, fmt.Errorf("get tenant by email: %w", err)
	}

	apiKey, err := core.GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}

	publicKey, err := core.GeneratePublicKey()
	if err != nil {
		return nil, fmt.Errorf("generate public key: %w", err)
	}

	name := ext.Name
	if name == "" {
		name = email
	}

	subject := ext.Subject
	return s.tenants.Create(ctx, NewTenant{
		Email:        email,
		Name:         name,
		OAuthSubject: &subject,
		APIKeyHash:   core.HashToken(apiKey),
		PublicKey:    publicKey,
	})
}

func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx)
}

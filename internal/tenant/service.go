// AngelaMos | 2026
// service.go

package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/configurator-api/internal/auth"
	"github.com/carterperez-dev/templates/configurator-api/internal/core"
	"github.com/carterperez-dev/templates/configurator-api/internal/usage"
)

type Service struct {
	repo         Repository
	usage        usage.Repository
	logger       *slog.Logger
	defaultLimit int
	now          func() time.Time
}

func NewService(
	repo Repository,
	usageRepo usage.Repository,
	defaultLimit int,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		usage:        usageRepo,
		logger:       logger,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (*auth.TenantInfo, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTenantInfo(t), nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*auth.TenantInfo, error) {
	t, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	return toTenantInfo(t), nil
}

func (s *Service) GetByPublicKey(ctx context.Context, publicKey string) (*auth.TenantInfo, error) {
	t, err := s.repo.GetByPublicKey(ctx, publicKey)
	if err != nil {
		return nil, err
	}
	return toTenantInfo(t), nil
}

func (s *Service) GetByAPIKeyHash(ctx context.Context, keyHash string) (*auth.TenantInfo, error) {
	t, err := s.repo.GetByAPIKeyHash(ctx, keyHash)
	if err != nil {
		return nil, err
	}
	return toTenantInfo(t), nil
}

func (s *Service) GetByOAuthSubject(ctx context.Context, subject string) (*auth.TenantInfo, error) {
	t, err := s.repo.GetByOAuthSubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	return toTenantInfo(t), nil
}

// Create opens a trial account with the configured default quota.
func (s *Service) Create(ctx context.Context, nt auth.NewTenant) (*auth.TenantInfo, error) {
	t := &Tenant{
		ID:                 uuid.New().String(),
		Email:              strings.ToLower(nt.Email),
		PasswordHash:       nt.PasswordHash,
		Name:               nt.Name,
		Company:            nt.Company,
		Role:               RoleTenant,
		Plan:               PlanTrial,
		SubscriptionStatus: auth.SubscriptionTrialing,
		APIKeyHash:         nt.APIKeyHash,
		PublicKey:          nt.PublicKey,
		OAuthSubject:       nt.OAuthSubject,
		AllowedDomains:     core.StringList{},
		RequestLimit:       s.defaultLimit,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tenant created", "tenant_id", t.ID, "plan", t.Plan)
	return toTenantInfo(t), nil
}

func (s *Service) LinkOAuthSubject(ctx context.Context, tenantID, subject string) error {
	return s.repo.SetOAuthSubject(ctx, tenantID, subject)
}

func (s *Service) UpdatePassword(ctx context.Context, tenantID, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, tenantID, passwordHash)
}

func (s *Service) RecordFailedLogin(
	ctx context.Context,
	tenantID string,
	maxAttempts int,
	lockFor time.Duration,
) (bool, error) {
	return s.repo.RecordFailedLogin(ctx, tenantID, maxAttempts, lockFor)
}

func (s *Service) ResetFailedLogins(ctx context.Context, tenantID string) error {
	return s.repo.ResetFailedLogins(ctx, tenantID)
}

func (s *Service) SetResetToken(
	ctx context.Context,
	tenantID, tokenHash string,
	expiresAt time.Time,
) error {
	return s.repo.SetResetToken(ctx, tenantID, tokenHash, expiresAt)
}

func (s *Service) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string) (string, error) {
	return s.repo.ConsumeResetToken(ctx, tokenHash, passwordHash)
}

func (s *Service) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(
	ctx context.Context,
	id string,
	req UpdateProfileRequest,
) (*Tenant, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Company != nil {
		t.Company = *req.Company
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

// UpdateDomains replaces the embed allow-list. Entries are trimmed and
// deduplicated but otherwise stored as given.
func (s *Service) UpdateDomains(ctx context.Context, id string, domains []string) (*Tenant, error) {
	cleaned := make(core.StringList, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimSpace(d)
		if d == "" || slices.Contains(cleaned, d) {
			continue
		}
		cleaned = append(cleaned, d)
	}

	if err := s.repo.UpdateDomains(ctx, id, cleaned); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

// RotateAPIKey returns the new plaintext key. It is not stored and cannot
// be shown again.
func (s *Service) RotateAPIKey(ctx context.Context, id string) (string, error) {
	key, err := core.GenerateAPIKey()
	if err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}

	if err := s.repo.RotateAPIKey(ctx, id, core.HashToken(key)); err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "api key rotated", "tenant_id", id)
	return key, nil
}

// RotatePublicKey invalidates every API access token minted for the old
// key, since those tokens carry it as a claim.
func (s *Service) RotatePublicKey(ctx context.Context, id string) (string, error) {
	key, err := core.GeneratePublicKey()
	if err != nil {
		return "", fmt.Errorf("generate public key: %w", err)
	}

	if err := s.repo.RotatePublicKey(ctx, id, key); err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "public key rotated", "tenant_id", id)
	return key, nil
}

func (s *Service) GetUsage(ctx context.Context, id string) (UsageResponse, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return UsageResponse{}, err
	}
	return ToUsageResponse(t), nil
}

func (s *Service) ListTenants(
	ctx context.Context,
	params ListTenantsParams,
) ([]Tenant, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

// Lock accepts the same compact durations as API token expiry, e.g. 30m
// or 7d.
func (s *Service) Lock(ctx context.Context, id, duration string) (*Tenant, error) {
	d, err := auth.ParseExpiry(duration)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Lock(ctx, id, s.now().Add(d)); err != nil {
		return nil, err
	}

	s.logger.WarnContext(ctx, "tenant locked by admin", "tenant_id", id, "duration", d.String())
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Unlock(ctx context.Context, id string) (*Tenant, error) {
	if err := s.repo.Unlock(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateSubscription(
	ctx context.Context,
	id string,
	req UpdateSubscriptionRequest,
) (*Tenant, error) {
	if err := s.repo.UpdateSubscription(ctx, id, req.Status, req.Plan, req.RequestLimit); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "subscription updated",
		"tenant_id", id,
		"status", req.Status,
		"plan", req.Plan,
	)
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ResetUsage(ctx context.Context, id string) (*Tenant, error) {
	if err := s.usage.ResetTenant(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) DeleteTenant(ctx context.Context, requesterID, targetID string) error {
	if requesterID == targetID {
		return fmt.Errorf("delete tenant: cannot delete own account: %w", core.ErrForbidden)
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	if target.IsAdmin() {
		return fmt.Errorf("cannot delete admin tenants: %w", core.ErrForbidden)
	}

	return s.repo.SoftDelete(ctx, targetID)
}

func toTenantInfo(t *Tenant) *auth.TenantInfo {
	return &auth.TenantInfo{
		ID:                 t.ID,
		Email:              t.Email,
		Name:               t.Name,
		PasswordHash:       t.PasswordHash,
		Role:               t.Role,
		Plan:               t.Plan,
		SubscriptionStatus: t.SubscriptionStatus,
		PublicKey:          t.PublicKey,
		LockedUntil:        t.LockedUntil,
		MonthlyRequests:    t.MonthlyRequests,
		RequestLimit:       t.RequestLimit,
	}
}

var _ auth.TenantProvider = (*Service)(nil)

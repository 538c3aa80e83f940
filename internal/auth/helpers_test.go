// AngelaMos | 2026
// helpers_test.go

package auth

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/configurator-api/internal/access"
	"github.com/carterperez-dev/templates/configurator-api/internal/core"
	"github.com/carterperez-dev/templates/configurator-api/internal/middleware"
	"github.com/carterperez-dev/templates/configurator-api/internal/notify"
)

type memTenants struct {
	mu         sync.Mutex
	byID       map[string]*TenantInfo
	apiKeys    map[string]string
	oauth      map[string]string
	failures   map[string]int
	resets     map[string]string
	resetUntil map[string]time.Time
}

func newMemTenants(tenants ...*TenantInfo) *memTenants {
	m := &memTenants{
		byID:       map[string]*TenantInfo{},
		apiKeys:    map[string]string{},
		oauth:      map[string]string{},
		failures:   map[string]int{},
		resets:     map[string]string{},
		resetUntil: map[string]time.Time{},
	}
	for _, t := range tenants {
		m.byID[t.ID] = t
	}
	return m
}

func (m *memTenants) withAPIKey(key, tenantID string) *memTenants {
	m.apiKeys[core.HashToken(key)] = tenantID
	return m
}

func (m *memTenants) copyOf(t *TenantInfo) *TenantInfo {
	c := *t
	return &c
}

func (m *memTenants) GetByID(_ context.Context, id string) (*TenantInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.byID[id]; ok {
		return m.copyOf(t), nil
	}
	return nil, core.ErrNotFound
}

func (m *memTenants) GetByAPIKeyHash(_ context.Context, hash string) (*TenantInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.apiKeys[hash]; ok {
		return m.copyOf(m.byID[id]), nil
	}
	return nil, core.ErrNotFound
}

func (m *memTenants) GetByEmail(_ context.Context, email string) (*TenantInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byID {
		if t.Email == email {
			return m.copyOf(t), nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memTenants) GetByPublicKey(_ context.Context, pk string) (*TenantInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byID {
		if t.PublicKey == pk {
			return m.copyOf(t), nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memTenants) GetByOAuthSubject(_ context.Context, subject string) (*TenantInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.oauth[subject]; ok {
		return m.copyOf(m.byID[id]), nil
	}
	return nil, core.ErrNotFound
}

func (m *memTenants) Create(_ context.Context, nt NewTenant) (*TenantInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byID {
		if t.Email == nt.Email {
			return nil, core.ErrDuplicateKey
		}
	}
	t := &TenantInfo{
		ID:                 uuid.New().String(),
		Email:              nt.Email,
		Name:               nt.Name,
		PasswordHash:       nt.PasswordHash,
		Role:               "tenant",
		Plan:               "trial",
		SubscriptionStatus: SubscriptionTrialing,
		PublicKey:          nt.PublicKey,
		RequestLimit:       1000,
	}
	m.byID[t.ID] = t
	m.apiKeys[nt.APIKeyHash] = t.ID
	if nt.OAuthSubject != nil {
		m.oauth[*nt.OAuthSubject] = t.ID
	}
	return m.copyOf(t), nil
}

func (m *memTenants) LinkOAuthSubject(_ context.Context, tenantID, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oauth[subject] = tenantID
	return nil
}

func (m *memTenants) UpdatePassword(_ context.Context, tenantID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[tenantID]
	if !ok {
		return core.ErrNotFound
	}
	t.PasswordHash = &hash
	return nil
}

func (m *memTenants) RecordFailedLogin(
	_ context.Context,
	tenantID string,
	maxAttempts int,
	lockFor time.Duration,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[tenantID]++
	if m.failures[tenantID] >= maxAttempts {
		until := time.Now().Add(lockFor)
		m.byID[tenantID].LockedUntil = &until
		m.failures[tenantID] = 0
		return true, nil
	}
	return false, nil
}

func (m *memTenants) ResetFailedLogins(_ context.Context, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[tenantID] = 0
	return nil
}

func (m *memTenants) SetResetToken(_ context.Context, tenantID, hash string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[hash] = tenantID
	m.resetUntil[hash] = until
	return nil
}

func (m *memTenants) ConsumeResetToken(_ context.Context, hash, passwordHash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.resets[hash]
	if !ok || time.Now().After(m.resetUntil[hash]) {
		return "", core.ErrNotFound
	}
	delete(m.resets, hash)
	m.byID[id].PasswordHash = &passwordHash
	return id, nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]*Session{}}
}

func (m *memSessions) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CreatedAt = time.Now()
	c := *s
	m.sessions[s.ID] = &c
	return nil
}

func (m *memSessions) FindByHash(_ context.Context, hash string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.TokenHash == hash {
			c := *s
			return &c, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memSessions) FindByID(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, core.ErrNotFound
}

func (m *memSessions) RevokeByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.RevokedAt != nil {
		return core.ErrNotFound
	}
	now := time.Now()
	s.RevokedAt = &now
	return nil
}

func (m *memSessions) RevokeAllForTenant(_ context.Context, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, s := range m.sessions {
		if s.TenantID == tenantID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (m *memSessions) GetActiveSessionsForTenant(_ context.Context, tenantID string) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Session
	for _, s := range m.sessions {
		if s.TenantID == tenantID && s.IsValid() {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSessions) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (r *recordingMailer) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

type stubGuard struct {
	owners map[string]string
}

func (g stubGuard) AssertOwned(
	_ context.Context,
	identity *middleware.Identity,
	ref access.ResourceRef,
) (access.Owner, error) {
	owner, ok := g.owners[ref.ID]
	if !ok {
		return access.Owner{}, core.ErrNotFound
	}
	if owner != identity.TenantID {
		return access.Owner{}, core.ErrOwnershipMismatch
	}
	return access.Owner{TenantID: owner, ConfiguratorID: ref.ID}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

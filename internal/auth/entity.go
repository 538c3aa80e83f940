// AngelaMos | 2026
// entity.go

package auth

import (
	"time"

	"github.com/carterperez-dev/templates/configurator-api/internal/usage"
)

// Session is a server-side login backing the session cookie. Only the
// SHA-256 hash of the cookie value is stored.
type Session struct {
	ID        string     `db:"id"`
	TenantID  string     `db:"tenant_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	UserAgent string     `db:"user_agent"`
	IPAddress string     `db:"ip_address"`
}

func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

func (s *Session) IsRevoked() bool {
	return s.RevokedAt != nil
}

func (s *Session) IsValid() bool {
	return !s.IsExpired() && !s.IsRevoked()
}

const (
	SubscriptionTrialing = "trialing"
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
	SubscriptionSuspend  = "suspended"
)

// TenantInfo is the projection of a tenant account that authentication
// needs. PasswordHash is nil for OAuth-only accounts.
type TenantInfo struct {
	ID                 string
	Email              string
	Name               string
	PasswordHash       *string
	Role               string
	Plan               string
	SubscriptionStatus string
	PublicKey          string
	LockedUntil        *time.Time
	MonthlyRequests    int
	RequestLimit       int
}

func (t *TenantInfo) IsLocked(now time.Time) bool {
	return t.LockedUntil != nil && t.LockedUntil.After(now)
}

// SubscriptionInactive is true only for canceled and suspended
// subscriptions; trialing and past_due tenants keep access.
func (t *TenantInfo) SubscriptionInactive() bool {
	return t.SubscriptionStatus == SubscriptionCanceled ||
		t.SubscriptionStatus == SubscriptionSuspend
}

func (t *TenantInfo) Snapshot() usage.Snapshot {
	return usage.Snapshot{
		TenantID:        t.ID,
		MonthlyRequests: t.MonthlyRequests,
		RequestLimit:    t.RequestLimit,
		LockedUntil:     t.LockedUntil,
	}
}

// NewTenant carries the fields set when an account is created.
type NewTenant struct {
	Email        string
	Name         string
	Company      string
	PasswordHash *string
	OAuthSubject *string
	APIKeyHash   string
	PublicKey    string
}

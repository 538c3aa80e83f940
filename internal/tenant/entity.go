// AngelaMos | 2026
// entity.go

package tenant

import (
	"time"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
	"github.com/carterperez-dev/templates/configurator-api/internal/usage"
)

type Tenant struct {
	ID                  string          `db:"id"`
	Email               string          `db:"email"`
	PasswordHash        *string         `db:"password_hash"`
	Name                string          `db:"name"`
	Company             string          `db:"company"`
	Role                string          `db:"role"`
	Plan                string          `db:"plan"`
	SubscriptionStatus  string          `db:"subscription_status"`
	APIKeyHash          string          `db:"api_key_hash"`
	PublicKey           string          `db:"public_key"`
	OAuthSubject        *string         `db:"oauth_subject"`
	AllowedDomains      core.StringList `db:"allowed_domains"`
	MonthlyRequests     int             `db:"monthly_requests"`
	RequestLimit        int             `db:"request_limit"`
	FailedLoginAttempts int             `db:"failed_login_attempts"`
	LockedUntil         *time.Time      `db:"locked_until"`
	UsageResetAt        *time.Time      `db:"usage_reset_at"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
	DeletedAt           *time.Time      `db:"deleted_at"`
}

func (t *Tenant) IsAdmin() bool {
	return t.Role == RoleAdmin
}

func (t *Tenant) Snapshot() usage.Snapshot {
	return usage.Snapshot{
		TenantID:        t.ID,
		MonthlyRequests: t.MonthlyRequests,
		RequestLimit:    t.RequestLimit,
		LockedUntil:     t.LockedUntil,
	}
}

const (
	RoleTenant = "tenant"
	RoleAdmin  = "admin"
)

const (
	PlanTrial   = "trial"
	PlanMonthly = "monthly"
	PlanAnnual  = "annual"
)

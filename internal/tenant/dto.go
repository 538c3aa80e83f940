// AngelaMos | 2026
// dto.go

package tenant

import (
	"time"

	"github.com/carterperez-dev/templates/configurator-api/internal/usage"
)

type UpdateProfileRequest struct {
	Name    *string `json:"name,omitempty"    validate:"omitempty,min=1,max=100"`
	Company *string `json:"company,omitempty" validate:"omitempty,max=200"`
}

type UpdateDomainsRequest struct {
	Domains []string `json:"domains" validate:"max=50,dive,required,max=253,hostname_rfc1123"`
}

type LockRequest struct {
	Duration string `json:"duration" validate:"required,max=16"`
}

type UpdateSubscriptionRequest struct {
	Status       string `json:"status"        validate:"required,oneof=trialing active past_due canceled suspended"`
	Plan         string `json:"plan"          validate:"required,oneof=trial monthly annual"`
	RequestLimit *int   `json:"request_limit" validate:"omitempty,min=0"`
}

type TenantResponse struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	Company            string     `json:"company"`
	Role               string     `json:"role"`
	Plan               string     `json:"plan"`
	SubscriptionStatus string     `json:"subscription_status"`
	PublicKey          string     `json:"public_key"`
	AllowedDomains     []string   `json:"allowed_domains"`
	LockedUntil        *time.Time `json:"locked_until,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type UsageResponse struct {
	MonthlyRequests int        `json:"monthly_requests"`
	RequestLimit    int        `json:"request_limit"`
	Remaining       int        `json:"remaining"`
	NearQuota       bool       `json:"near_quota"`
	ResetAt         *time.Time `json:"last_reset_at,omitempty"`
}

type APIKeyResponse struct {
	APIKey string `json:"api_key"`
}

type PublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

type ListTenantsParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Plan     string `json:"plan"`
	Status   string `json:"status"`
}

func (p *ListTenantsParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListTenantsParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToTenantResponse(t *Tenant) TenantResponse {
	domains := []string(t.AllowedDomains)
	if domains == nil {
		domains = []string{}
	}
	return TenantResponse{
		ID:                 t.ID,
		Email:              t.Email,
		Name:               t.Name,
		Company:            t.Company,
		Role:               t.Role,
		Plan:               t.Plan,
		SubscriptionStatus: t.SubscriptionStatus,
		PublicKey:          t.PublicKey,
		AllowedDomains:     domains,
		LockedUntil:        t.LockedUntil,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func ToTenantResponseList(tenants []Tenant) []TenantResponse {
	responses := make([]TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		responses = append(responses, ToTenantResponse(&t))
	}
	return responses
}

func ToUsageResponse(t *Tenant) UsageResponse {
	remaining := usage.Unmetered
	if t.RequestLimit > 0 {
		remaining = max(t.RequestLimit-t.MonthlyRequests, 0)
	}
	return UsageResponse{
		MonthlyRequests: t.MonthlyRequests,
		RequestLimit:    t.RequestLimit,
		Remaining:       remaining,
		NearQuota:       usage.NearQuota(t.MonthlyRequests, t.RequestLimit),
		ResetAt:         t.UsageResetAt,
	}
}

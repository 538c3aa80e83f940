// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name"     validate:"required,min=1,max=100"`
	Company  string `json:"company"  validate:"omitempty,max=200"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=128"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"        validate:"required,min=16,max=256"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

type EditTokenRequest struct {
	ConfiguratorID string `json:"configurator_id" validate:"required,uuid"`
}

type APITokenRequest struct {
	PublicKey string `json:"public_key" validate:"required,max=64"`
	ExpiresIn string `json:"expires_in" validate:"omitempty,max=16"`
}

type TenantResponse struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	Role               string `json:"role"`
	Plan               string `json:"plan"`
	SubscriptionStatus string `json:"subscription_status"`
	PublicKey          string `json:"public_key"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthResponse struct {
	Tenant TenantResponse `json:"tenant"`
	Tokens TokenResponse  `json:"tokens"`
}

// RegisterResponse is the only response that ever carries the plaintext
// API key.
type RegisterResponse struct {
	AuthResponse
	APIKey string `json:"api_key"`
}

type EditTokenResponse struct {
	Token          string    `json:"token"`
	ConfiguratorID string    `json:"configurator_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type APITokenResponse struct {
	Token        string    `json:"token"`
	ExpiresIn    string    `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	QuotaWarning bool      `json:"quota_warning"`
	Remaining    int       `json:"remaining_requests"`
}

type MeResponse struct {
	Tenant         TenantResponse `json:"tenant"`
	Method         string         `json:"auth_method"`
	Purpose        string         `json:"token_purpose,omitempty"`
	ConfiguratorID string         `json:"configurator_id,omitempty"`
}

type SessionInfo struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Current   bool      `json:"current"`
}

type SessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

func toTenantResponse(t *TenantInfo) TenantResponse {
	return TenantResponse{
		ID:                 t.ID,
		Email:              t.Email,
		Name:               t.Name,
		Role:               t.Role,
		Plan:               t.Plan,
		SubscriptionStatus: t.SubscriptionStatus,
		PublicKey:          t.PublicKey,
	}
}

// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

const (
	IdentityKey contextKey = "identity"
)

// Method records which credential established an Identity.
type Method string

const (
	MethodSession Method = "session"
	MethodToken   Method = "token"
	MethodAPIKey  Method = "api_key"
)

// Identity is the per-request projection of a tenant plus the credential
// that proved it. It is never persisted.
type Identity struct {
	TenantID       string
	Email          string
	Role           string
	Plan           string
	Method         Method
	Purpose        string
	ConfiguratorID string
	SessionID      string
	TokenID        string
	TokenExpiresAt time.Time
}

// ScopedToConfigurator reports whether the credential is limited to a
// single configurator (edit tokens).
func (i *Identity) ScopedToConfigurator() bool {
	return i.ConfiguratorID != ""
}

// Authenticator resolves the caller of r or returns an error that is
// written to the client unchanged.
type Authenticator interface {
	Authenticate(r *http.Request) (*Identity, error)
}

func Authenticate(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := a.Authenticate(r)
			if err != nil {
				core.JSONError(w, err)
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())

			if identity == nil {
				core.JSONError(
					w,
					core.UnauthorizedError("authentication required"),
				)
				return
			}

			if _, ok := roleSet[identity.Role]; !ok {
				core.JSONError(
					w,
					core.ForbiddenError("insufficient permissions"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin admits operators only. Configurator-scoped tokens are
// refused even when minted for an admin tenant.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole("admin")(RequireUnscoped(next))
}

// RequireUnscoped rejects configurator-scoped edit tokens on routes that
// act on the whole tenant.
func RequireUnscoped(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r.Context())
		if identity != nil && identity.ScopedToConfigurator() {
			core.JSONError(w, core.ForbiddenError("token is scoped to a single configurator"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ExtractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

func GetIdentity(ctx context.Context) *Identity {
	if identity, ok := ctx.Value(IdentityKey).(*Identity); ok {
		return identity
	}
	return nil
}

func GetTenantID(ctx context.Context) string {
	if identity := GetIdentity(ctx); identity != nil {
		return identity.TenantID
	}
	return ""
}

func GetPlan(ctx context.Context) string {
	if identity := GetIdentity(ctx); identity != nil {
		return identity.Plan
	}
	return ""
}

func IsAdmin(ctx context.Context) bool {
	identity := GetIdentity(ctx)
	return identity != nil && identity.Role == "admin"
}

// AngelaMos | 2026
// gate.go

package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
	"github.com/carterperez-dev/templates/configurator-api/internal/tenant"
	"github.com/carterperez-dev/templates/configurator-api/internal/usage"
)

const (
	PublicKeyHeader    = "X-Public-Key"
	PublicKeyParam     = "publicKey"
	QuotaWarningHeader = "X-Quota-Warning"

	allowMethods = "GET, POST, OPTIONS"
	allowHeaders = "Content-Type, X-Public-Key, X-Request-ID"
	maxAge       = "600"
)

type TenantSource interface {
	GetByPublicKey(ctx context.Context, publicKey string) (*tenant.Tenant, error)
}

type contextKey struct{}

func WithTenant(ctx context.Context, t *tenant.Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

func TenantFrom(ctx context.Context) *tenant.Tenant {
	t, _ := ctx.Value(contextKey{}).(*tenant.Tenant)
	return t
}

// Gate fronts every public embed route: public key, then origin, then the
// usage governor. Usage is counted only for calls that succeed.
type Gate struct {
	tenants  TenantSource
	governor *usage.Governor
	usage    usage.Repository
	logger   *slog.Logger
}

func NewGate(
	tenants TenantSource,
	governor *usage.Governor,
	usageRepo usage.Repository,
	logger *slog.Logger,
) *Gate {
	return &Gate{
		tenants:  tenants,
		governor: governor,
		usage:    usageRepo,
		logger:   logger,
	}
}

func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		origin := r.Header.Get("Origin")

		if r.Method == http.MethodOptions {
			setCORS(w, origin)
			w.Header().Set("Access-Control-Max-Age", maxAge)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		t, err := g.resolve(ctx, r)
		if err != nil {
			setCORS(w, "")
			core.JSONError(w, err)
			return
		}

		ctx, span := core.StartTenantSpan(ctx, "embed.gate", t.ID,
			core.AttrOrigin.String(RequestOrigin(r)),
		)
		defer span.End()

		if err := CheckOrigin(RequestOrigin(r), t.AllowedDomains); err != nil {
			core.SetSpanError(ctx, err)
			core.AccessDenials.WithLabelValues("origin").Inc()
			g.logger.WarnContext(ctx, "embed origin rejected",
				"tenant_id", t.ID,
				"origin", RequestOrigin(r),
			)
			w.Header().Add("Vary", "Origin")
			core.JSONError(w, err)
			return
		}

		setCORS(w, origin)

		decision, err := g.governor.Admit(t.Snapshot())
		if err != nil {
			reason := "quota"
			if errors.Is(err, core.ErrAccountLocked) {
				reason = "lock"
			}
			core.SetSpanError(ctx, err)
			core.AccessDenials.WithLabelValues(reason).Inc()
			core.JSONError(w, err)
			return
		}

		if decision.NearQuota {
			core.QuotaWarnings.Inc()
			w.Header().Set(QuotaWarningHeader, "true")
		}
		if decision.Remaining != usage.Unmetered {
			w.Header().Set("X-Quota-Remaining", strconv.Itoa(decision.Remaining))
		}

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(WithTenant(ctx, t)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if status >= http.StatusBadRequest {
			return
		}

		if err := g.usage.Increment(context.WithoutCancel(ctx), t.ID); err != nil {
			g.logger.WarnContext(ctx, "usage increment failed",
				"tenant_id", t.ID,
				"error", err,
			)
		}
	})
}

func (g *Gate) resolve(ctx context.Context, r *http.Request) (*tenant.Tenant, error) {
	key := strings.TrimSpace(r.Header.Get(PublicKeyHeader))
	if key == "" {
		key = strings.TrimSpace(r.URL.Query().Get(PublicKeyParam))
	}
	if key == "" {
		return nil, fmt.Errorf("embed: public key missing: %w", core.ErrAuthenticationRequired)
	}

	t, err := g.tenants.GetByPublicKey(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("embed: unknown public key: %w", core.ErrUnauthorized)
		}
		return nil, err
	}
	return t, nil
}

// setCORS echoes an admitted origin with credentials, or falls back to the
// wildcard when the request carried none. Opaque origins (sandboxed frames,
// file://) send "null", which is never granted credentials.
func setCORS(w http.ResponseWriter, origin string) {
	h := w.Header()
	if origin != "" && origin != "null" {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
	} else {
		h.Set("Access-Control-Allow-Origin", "*")
	}
	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Access-Control-Allow-Headers", allowHeaders)
	h.Set("Access-Control-Expose-Headers", QuotaWarningHeader+", X-Quota-Remaining")
	h.Add("Vary", "Origin")
}

// AngelaMos | 2026
// guard.go

package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
	"github.com/carterperez-dev/templates/configurator-api/internal/middleware"
)

type ResourceKind string

const (
	KindConfigurator ResourceKind = "configurator"
	KindCategory     ResourceKind = "category"
	KindOption       ResourceKind = "option"
	KindTheme        ResourceKind = "theme"
	KindQuote        ResourceKind = "quote"
)

type ResourceRef struct {
	Kind ResourceKind
	ID   string
}

func (r ResourceRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

func Configurator(id string) ResourceRef { return ResourceRef{Kind: KindConfigurator, ID: id} }
func Category(id string) ResourceRef     { return ResourceRef{Kind: KindCategory, ID: id} }
func Option(id string) ResourceRef       { return ResourceRef{Kind: KindOption, ID: id} }
func Theme(id string) ResourceRef        { return ResourceRef{Kind: KindTheme, ID: id} }
func Quote(id string) ResourceRef        { return ResourceRef{Kind: KindQuote, ID: id} }

// Owner is the end of a resource's ownership chain. ConfiguratorID is
// empty for tenant-level resources such as shared themes.
type Owner struct {
	TenantID       string
	ConfiguratorID string
}

// Resolver walks a resource's containment chain to its owning tenant.
// It returns core.ErrNotFound when the resource does not exist.
type Resolver interface {
	ResolveOwner(ctx context.Context, ref ResourceRef) (Owner, error)
}

type Guard struct {
	resolver Resolver
	logger   *slog.Logger
}

func NewGuard(resolver Resolver, logger *slog.Logger) *Guard {
	return &Guard{resolver: resolver, logger: logger}
}

// AssertOwned proves ref belongs to the caller's tenant and, for
// configurator-scoped credentials, to the scoped configurator.
//
// Absent and foreign resources return different sentinels (ErrNotFound,
// ErrOwnershipMismatch) that both render as 404; only the log differs.
func (g *Guard) AssertOwned(
	ctx context.Context,
	identity *middleware.Identity,
	ref ResourceRef,
) (Owner, error) {
	ctx, span := core.StartSpan(ctx, "access.assert_owned",
		attribute.String("resource", ref.String()),
	)
	defer span.End()

	owner, err := g.assertOwned(ctx, identity, ref)
	core.SetSpanError(ctx, err)
	return owner, err
}

func (g *Guard) assertOwned(
	ctx context.Context,
	identity *middleware.Identity,
	ref ResourceRef,
) (Owner, error) {
	if identity == nil || identity.TenantID == "" {
		return Owner{}, fmt.Errorf("assert owned %s: %w", ref, core.ErrAuthenticationRequired)
	}

	owner, err := g.resolver.ResolveOwner(ctx, ref)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			g.logger.DebugContext(ctx, "resource not found",
				"resource", ref.String(),
				"tenant_id", identity.TenantID,
			)
			return Owner{}, fmt.Errorf("assert owned %s: %w", ref, core.ErrNotFound)
		}
		return Owner{}, fmt.Errorf("resolve owner %s: %w", ref, err)
	}

	if owner.TenantID != identity.TenantID {
		core.AccessDenials.WithLabelValues("ownership").Inc()
		g.logger.WarnContext(ctx, "cross-tenant access denied",
			"resource", ref.String(),
			"caller_tenant_id", identity.TenantID,
			"owner_tenant_id", owner.TenantID,
			"auth_method", string(identity.Method),
		)
		return Owner{}, fmt.Errorf("assert owned %s: %w", ref, core.ErrOwnershipMismatch)
	}

	if identity.ScopedToConfigurator() &&
		owner.ConfiguratorID != identity.ConfiguratorID {
		core.AccessDenials.WithLabelValues("scope").Inc()
		g.logger.WarnContext(ctx, "edit token used outside its configurator",
			"resource", ref.String(),
			"tenant_id", identity.TenantID,
			"token_configurator_id", identity.ConfiguratorID,
			"resource_configurator_id", owner.ConfiguratorID,
		)
		return Owner{}, fmt.Errorf("assert owned %s: %w", ref, core.ErrScopeMismatch)
	}

	return owner, nil
}

// AssertTenantWide rejects configurator-scoped credentials for operations
// that are not tied to a single configurator, such as creating one.
func (g *Guard) AssertTenantWide(identity *middleware.Identity) error {
	if identity == nil || identity.TenantID == "" {
		return fmt.Errorf("assert tenant wide: %w", core.ErrAuthenticationRequired)
	}
	if identity.ScopedToConfigurator() {
		return fmt.Errorf("assert tenant wide: %w", core.ErrScopeMismatch)
	}
	return nil
}

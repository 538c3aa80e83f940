// AngelaMos | 2026
// resolver.go

package configurator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/configurator-api/internal/access"
	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

// ownerQueries walk each kind up to its tenant in a single statement.
// Tenant-level themes report an empty configurator id.
var ownerQueries = map[access.ResourceKind]string{
	access.KindConfigurator: `
		SELECT c.tenant_id, c.id
		FROM configurators c
		WHERE c.id = $1`,
	access.KindCategory: `
		SELECT c.tenant_id, c.id
		FROM categories cat
		JOIN configurators c ON c.id = cat.configurator_id
		WHERE cat.id = $1`,
	access.KindOption: `
		SELECT c.tenant_id, c.id
		FROM options o
		JOIN categories cat ON cat.id = o.category_id
		JOIN configurators c ON c.id = cat.configurator_id
		WHERE o.id = $1`,
	access.KindTheme: `
		SELECT t.tenant_id, COALESCE(t.configurator_id::text, '')
		FROM themes t
		WHERE t.id = $1`,
	access.KindQuote: `
		SELECT c.tenant_id, c.id
		FROM quotes q
		JOIN configurators c ON c.id = q.configurator_id
		WHERE q.id = $1`,
}

func (r *repository) ResolveOwner(ctx context.Context, ref access.ResourceRef) (access.Owner, error) {
	query, ok := ownerQueries[ref.Kind]
	if !ok {
		return access.Owner{}, fmt.Errorf("resolve owner: unknown kind %q: %w", ref.Kind, core.ErrInvalidInput)
	}

	// Malformed ids cannot exist; answering here keeps the uuid cast error
	// from surfacing as a 500.
	if _, err := uuid.Parse(ref.ID); err != nil {
		return access.Owner{}, fmt.Errorf("resolve owner %s: %w", ref, core.ErrNotFound)
	}

	var owner access.Owner
	err := r.db.QueryRowxContext(ctx, query, ref.ID).Scan(&owner.TenantID, &owner.ConfiguratorID)
	if err != nil {
		return access.Owner{}, core.MapNoRows("resolve owner "+ref.String(), err)
	}

	return owner, nil
}

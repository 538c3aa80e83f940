// AngelaMos | 2026
// repository.go

package usage

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

type Repository interface {
	Increment(ctx context.Context, tenantID string) error
	ResetAll(ctx context.Context) (int64, error)
	ResetTenant(ctx context.Context, tenantID string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Increment(ctx context.Context, tenantID string) error {
	query := `
		UPDATE tenants
		SET monthly_requests = monthly_requests + 1
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, tenantID)
	return core.RequireAffected("increment usage", result, err)
}

func (r *repository) ResetAll(ctx context.Context) (int64, error) {
	query := `
		UPDATE tenants
		SET monthly_requests = 0, usage_reset_at = NOW()
		WHERE monthly_requests > 0`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("reset usage: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset usage: %w", err)
	}

	return rows, nil
}

func (r *repository) ResetTenant(ctx context.Context, tenantID string) error {
	query := `
		UPDATE tenants
		SET monthly_requests = 0, usage_reset_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, tenantID)
	return core.RequireAffected("reset tenant usage", result, err)
}

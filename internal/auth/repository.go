// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, session *Session) error
	FindByHash(ctx context.Context, tokenHash string) (*Session, error)
	FindByID(ctx context.Context, id string) (*Session, error)
	RevokeByID(ctx context.Context, id string) error
	RevokeAllForTenant(ctx context.Context, tenantID string) error
	GetActiveSessionsForTenant(
		ctx context.Context,
		tenantID string,
	) ([]Session, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const sessionColumns = `
	id, tenant_id, token_hash, expires_at, created_at,
	revoked_at, user_agent, ip_address`

func (r *repository) Create(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (
			id, tenant_id, token_hash, expires_at, user_agent, ip_address
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &session.CreatedAt, query,
		session.ID,
		session.TenantID,
		session.TokenHash,
		session.ExpiresAt,
		session.UserAgent,
		session.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

func (r *repository) FindByHash(
	ctx context.Context,
	tokenHash string,
) (*Session, error) {
	query := `SELECT` + sessionColumns + `
		FROM sessions
		WHERE token_hash = $1`

	var session Session
	if err := r.db.GetContext(ctx, &session, query, tokenHash); err != nil {
		return nil, core.MapNoRows("find session", err)
	}

	return &session, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*Session, error) {
	query := `SELECT` + sessionColumns + `
		FROM sessions
		WHERE id = $1`

	var session Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, core.MapNoRows("find session", err)
	}

	return &session, nil
}

func (r *repository) RevokeByID(ctx context.Context, id string) error {
	query := `
		UPDATE sessions
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	return core.RequireAffected("revoke session", result, err)
}

func (r *repository) RevokeAllForTenant(
	ctx context.Context,
	tenantID string,
) error {
	query := `
		UPDATE sessions
		SET revoked_at = NOW()
		WHERE tenant_id = $1 AND revoked_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, tenantID); err != nil {
		return fmt.Errorf("revoke all tenant sessions: %w", err)
	}

	return nil
}

func (r *repository) GetActiveSessionsForTenant(
	ctx context.Context,
	tenantID string,
) ([]Session, error) {
	query := `SELECT` + sessionColumns + `
		FROM sessions
		WHERE tenant_id = $1
			AND revoked_at IS NULL
			AND expires_at > NOW()
		ORDER BY created_at DESC`

	var sessions []Session
	if err := r.db.SelectContext(ctx, &sessions, query, tenantID); err != nil {
		return nil, fmt.Errorf("get active sessions: %w", err)
	}

	return sessions, nil
}

func (r *repository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM sessions
		WHERE expires_at < $1`

	cutoff := time.Now().Add(-24 * time.Hour)

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return rows, nil
}

// AngelaMos | 2026
// repository.go

package tenant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetByEmail(ctx context.Context, email string) (*Tenant, error)
	GetByPublicKey(ctx context.Context, publicKey string) (*Tenant, error)
	GetByAPIKeyHash(ctx context.Context, keyHash string) (*Tenant, error)
	GetByOAuthSubject(ctx context.Context, subject string) (*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	UpdateDomains(ctx context.Context, id string, domains core.StringList) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetOAuthSubject(ctx context.Context, id, subject string) error
	RotateAPIKey(ctx context.Context, id, keyHash string) error
	RotatePublicKey(ctx context.Context, id, publicKey string) error
	RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockFor time.Duration) (bool, error)
	ResetFailedLogins(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string) (string, error)
	Lock(ctx context.Context, id string, until time.Time) error
	Unlock(ctx context.Context, id string) error
	UpdateSubscription(ctx context.Context, id, status, plan string, requestLimit *int) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, params ListTenantsParams) ([]Tenant, int, error)
	Stats(ctx context.Context) (*Stats, error)
}

const tenantColumns = `
	id, email, password_hash, name, company, role, plan,
	subscription_status, api_key_hash, public_key, oauth_subject,
	allowed_domains, monthly_requests, request_limit,
	failed_login_attempts, locked_until, usage_reset_at,
	created_at, updated_at, deleted_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, tenant *Tenant) error {
	query := `
		INSERT INTO tenants (
			id, email, password_hash, name, company, role, plan,
			subscription_status, api_key_hash, public_key, oauth_subject,
			allowed_domains, request_limit
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query,
		tenant.ID,
		tenant.Email,
		tenant.PasswordHash,
		tenant.Name,
		tenant.Company,
		tenant.Role,
		tenant.Plan,
		tenant.SubscriptionStatus,
		tenant.APIKeyHash,
		tenant.PublicKey,
		tenant.OAuthSubject,
		tenant.AllowedDomains,
		tenant.RequestLimit,
	)
	return core.MapNoRows("create tenant", row.Scan(&tenant.CreatedAt, &tenant.UpdatedAt))
}

func (r *repository) getBy(ctx context.Context, op, column, value string) (*Tenant, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM tenants
		WHERE %s = $1 AND deleted_at IS NULL`, tenantColumns, column)

	var tenant Tenant
	if err := r.db.GetContext(ctx, &tenant, query, value); err != nil {
		return nil, core.MapNoRows(op, err)
	}
	return &tenant, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Tenant, error) {
	return r.getBy(ctx, "get tenant", "id", id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Tenant, error) {
	return r.getBy(ctx, "get tenant by email", "email", email)
}

func (r *repository) GetByPublicKey(ctx context.Context, publicKey string) (*Tenant, error) {
	return r.getBy(ctx, "get tenant by public key", "public_key", publicKey)
}

func (r *repository) GetByAPIKeyHash(ctx context.Context, keyHash string) (*Tenant, error) {
	return r.getBy(ctx, "get tenant by api key", "api_key_hash", keyHash)
}

func (r *repository) GetByOAuthSubject(ctx context.Context, subject string) (*Tenant, error) {
	return r.getBy(ctx, "get tenant by oauth subject", "oauth_subject", subject)
}

func (r *repository) Update(ctx context.Context, tenant *Tenant) error {
	query := `
		UPDATE tenants
		SET name = $2, company = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &tenant.UpdatedAt, query,
		tenant.ID,
		tenant.Name,
		tenant.Company,
	)
	return core.MapNoRows("update tenant", err)
}

func (r *repository) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	return core.RequireAffected(op, result, err)
}

func (r *repository) UpdateDomains(ctx context.Context, id string, domains core.StringList) error {
	return r.exec(ctx, "update domains", `
		UPDATE tenants
		SET allowed_domains = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, domains)
}

func (r *repository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, "update password", `
		UPDATE tenants
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, passwordHash)
}

func (r *repository) SetOAuthSubject(ctx context.Context, id, subject string) error {
	return r.exec(ctx, "link oauth subject", `
		UPDATE tenants
		SET oauth_subject = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, subject)
}

func (r *repository) RotateAPIKey(ctx context.Context, id, keyHash string) error {
	return r.exec(ctx, "rotate api key", `
		UPDATE tenants
		SET api_key_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, keyHash)
}

func (r *repository) RotatePublicKey(ctx context.Context, id, publicKey string) error {
	return r.exec(ctx, "rotate public key", `
		UPDATE tenants
		SET public_key = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, publicKey)
}

// RecordFailedLogin bumps the counter in one statement so concurrent
// failures cannot skip the lock threshold. Reaching maxAttempts clears
// the counter and sets locked_until.
func (r *repository) RecordFailedLogin(
	ctx context.Context,
	id string,
	maxAttempts int,
	lockFor time.Duration,
) (bool, error) {
	query := `
		UPDATE tenants
		SET failed_login_attempts = CASE
				WHEN failed_login_attempts + 1 >= $2 THEN 0
				ELSE failed_login_attempts + 1
			END,
			locked_until = CASE
				WHEN failed_login_attempts + 1 >= $2
				THEN NOW() + $3 * INTERVAL '1 second'
				ELSE locked_until
			END
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING locked_until IS NOT NULL AND failed_login_attempts = 0`

	var locked bool
	err := r.db.GetContext(ctx, &locked, query, id, maxAttempts, int64(lockFor.Seconds()))
	if err != nil {
		return false, core.MapNoRows("record failed login", err)
	}
	return locked, nil
}

func (r *repository) ResetFailedLogins(ctx context.Context, id string) error {
	return r.exec(ctx, "reset failed logins", `
		UPDATE tenants
		SET failed_login_attempts = 0, locked_until = NULL
		WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (r *repository) SetResetToken(
	ctx context.Context,
	id, tokenHash string,
	expiresAt time.Time,
) error {
	return r.exec(ctx, "set reset token", `
		UPDATE tenants
		SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, tokenHash, expiresAt)
}

func (r *repository) ConsumeResetToken(
	ctx context.Context,
	tokenHash, passwordHash string,
) (string, error) {
	query := `
		UPDATE tenants
		SET password_hash = $2,
			reset_token_hash = NULL,
			reset_token_expires_at = NULL,
			failed_login_attempts = 0,
			locked_until = NULL,
			updated_at = NOW()
		WHERE reset_token_hash = $1
		  AND reset_token_expires_at > NOW()
		  AND deleted_at IS NULL
		RETURNING id`

	var id string
	if err := r.db.GetContext(ctx, &id, query, tokenHash, passwordHash); err != nil {
		return "", core.MapNoRows("consume reset token", err)
	}
	return id, nil
}

func (r *repository) Lock(ctx context.Context, id string, until time.Time) error {
	return r.exec(ctx, "lock tenant", `
		UPDATE tenants
		SET locked_until = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, until)
}

func (r *repository) Unlock(ctx context.Context, id string) error {
	return r.exec(ctx, "unlock tenant", `
		UPDATE tenants
		SET locked_until = NULL, failed_login_attempts = 0, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (r *repository) UpdateSubscription(
	ctx context.Context,
	id, status, plan string,
	requestLimit *int,
) error {
	return r.exec(ctx, "update subscription", `
		UPDATE tenants
		SET subscription_status = $2,
			plan = $3,
			request_limit = COALESCE($4, request_limit),
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, status, plan, requestLimit)
}

// SoftDelete marks the tenant deleted and revokes its sessions in one
// transaction so no session outlives the account.
func (r *repository) SoftDelete(ctx context.Context, id string) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE tenants
			SET deleted_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL`, id)
		if err := core.RequireAffected("delete tenant", result, err); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions
			SET revoked_at = NOW()
			WHERE tenant_id = $1 AND revoked_at IS NULL`, id); err != nil {
			return fmt.Errorf("revoke tenant sessions: %w", err)
		}
		return nil
	})
}

func (r *repository) List(
	ctx context.Context,
	params ListTenantsParams,
) ([]Tenant, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR name ILIKE $%d OR company ILIKE $%d)",
			argIdx, argIdx, argIdx))
		args = append(args, "%"+core.EscapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Plan != "" {
		conditions = append(conditions, fmt.Sprintf("plan = $%d", argIdx))
		args = append(args, params.Plan)
		argIdx++
	}

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("subscription_status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM tenants WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tenants: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tenants
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		tenantColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var tenants []Tenant
	if err := r.db.SelectContext(ctx, &tenants, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}

	return tenants, total, nil
}

// Stats summarizes live tenants for the admin dashboard.
type Stats struct {
	Total     int            `json:"total"`
	Locked    int            `json:"locked"`
	NearQuota int            `json:"near_quota"`
	OverQuota int            `json:"over_quota"`
	ByPlan    map[string]int `json:"by_plan"`
	ByStatus  map[string]int `json:"by_status"`
}

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	var totals struct {
		Total     int `db:"total"`
		Locked    int `db:"locked"`
		NearQuota int `db:"near_quota"`
		OverQuota int `db:"over_quota"`
	}

	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE locked_until > NOW()) AS locked,
			COUNT(*) FILTER (
				WHERE request_limit > 0
				AND monthly_requests < request_limit
				AND monthly_requests * 10 >= request_limit * 9
			) AS near_quota,
			COUNT(*) FILTER (
				WHERE request_limit > 0 AND monthly_requests >= request_limit
			) AS over_quota
		FROM tenants
		WHERE deleted_at IS NULL`

	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("tenant totals: %w", err)
	}

	var groups []struct {
		Plan   string `db:"plan"`
		Status string `db:"subscription_status"`
		Count  int    `db:"count"`
	}

	query = `
		SELECT plan, subscription_status, COUNT(*) AS count
		FROM tenants
		WHERE deleted_at IS NULL
		GROUP BY plan, subscription_status`

	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("tenant breakdown: %w", err)
	}

	stats := &Stats{
		Total:     totals.Total,
		Locked:    totals.Locked,
		NearQuota: totals.NearQuota,
		OverQuota: totals.OverQuota,
		ByPlan:    map[string]int{},
		ByStatus:  map[string]int{},
	}
	for _, g := range groups {
		stats.ByPlan[g.Plan] += g.Count
		stats.ByStatus[g.Status] += g.Count
	}

	return stats, nil
}

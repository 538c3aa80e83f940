// AngelaMos | 2026
// repository.go

package configurator

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/templates/configurator-api/internal/access"
	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

type Repository interface {
	access.Resolver

	CreateConfigurator(ctx context.Context, c *Configurator) error
	GetConfigurator(ctx context.Context, id string) (*Configurator, error)
	ListConfigurators(ctx context.Context, tenantID string) ([]Configurator, error)
	UpdateConfigurator(ctx context.Context, c *Configurator) error
	DeleteConfigurator(ctx context.Context, id string) error

	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id string) (*Category, error)
	ListCategories(ctx context.Context, configuratorID string) ([]Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id string) error

	CreateOption(ctx context.Context, o *Option) error
	GetOption(ctx context.Context, id string) (*Option, error)
	ListOptions(ctx context.Context, configuratorID string) ([]Option, error)
	UpdateOption(ctx context.Context, o *Option) error
	DeleteOption(ctx context.Context, id string) error

	CreateTheme(ctx context.Context, t *Theme) error
	GetTheme(ctx context.Context, id string) (*Theme, error)
	ListThemes(ctx context.Context, tenantID string) ([]Theme, error)
	UpdateTheme(ctx context.Context, t *Theme) error
	DeleteTheme(ctx context.Context, id string) error

	CreateQuote(ctx context.Context, q *Quote) error
	ListQuotes(ctx context.Context, configuratorID string) ([]Quote, error)
	UpdateQuoteStatus(ctx context.Context, id, status string) (*Quote, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	return core.RequireAffected(op, result, err)
}

const configuratorColumns = `
	id, tenant_id, name, description, currency, base_price, published,
	theme_id, created_at, updated_at`

func (r *repository) CreateConfigurator(ctx context.Context, c *Configurator) error {
	query := `
		INSERT INTO configurators (id, tenant_id, name, description, currency, base_price, published, theme_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query,
		c.ID, c.TenantID, c.Name, c.Description, c.Currency, c.BasePrice, c.Published, c.ThemeID)
	return core.MapNoRows("create configurator", row.Scan(&c.CreatedAt, &c.UpdatedAt))
}

func (r *repository) GetConfigurator(ctx context.Context, id string) (*Configurator, error) {
	query := `SELECT ` + configuratorColumns + ` FROM configurators WHERE id = $1`

	var c Configurator
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, core.MapNoRows("get configurator", err)
	}
	return &c, nil
}

func (r *repository) ListConfigurators(ctx context.Context, tenantID string) ([]Configurator, error) {
	query := `
		SELECT ` + configuratorColumns + `
		FROM configurators
		WHERE tenant_id = $1
		ORDER BY created_at DESC`

	out := []Configurator{}
	if err := r.db.SelectContext(ctx, &out, query, tenantID); err != nil {
		return nil, fmt.Errorf("list configurators: %w", err)
	}
	return out, nil
}

func (r *repository) UpdateConfigurator(ctx context.Context, c *Configurator) error {
	query := `
		UPDATE configurators
		SET name = $2, description = $3, currency = $4, base_price = $5,
			published = $6, theme_id = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &c.UpdatedAt, query,
		c.ID, c.Name, c.Description, c.Currency, c.BasePrice, c.Published, c.ThemeID)
	return core.MapNoRows("update configurator", err)
}

func (r *repository) DeleteConfigurator(ctx context.Context, id string) error {
	return r.exec(ctx, "delete configurator", `DELETE FROM configurators WHERE id = $1`, id)
}

const categoryColumns = `
	id, configurator_id, name, description, sort_order, required,
	created_at, updated_at`

func (r *repository) CreateCategory(ctx context.Context, c *Category) error {
	query := `
		INSERT INTO categories (id, configurator_id, name, description, sort_order, required)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query,
		c.ID, c.ConfiguratorID, c.Name, c.Description, c.SortOrder, c.Required)
	return core.MapNoRows("create category", row.Scan(&c.CreatedAt, &c.UpdatedAt))
}

func (r *repository) GetCategory(ctx context.Context, id string) (*Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	var c Category
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, core.MapNoRows("get category", err)
	}
	return &c, nil
}

func (r *repository) ListCategories(ctx context.Context, configuratorID string) ([]Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE configurator_id = $1
		ORDER BY sort_order, created_at`

	out := []Category{}
	if err := r.db.SelectContext(ctx, &out, query, configuratorID); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (r *repository) UpdateCategory(ctx context.Context, c *Category) error {
	query := `
		UPDATE categories
		SET name = $2, description = $3, sort_order = $4, required = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &c.UpdatedAt, query,
		c.ID, c.Name, c.Description, c.SortOrder, c.Required)
	return core.MapNoRows("update category", err)
}

func (r *repository) DeleteCategory(ctx context.Context, id string) error {
	return r.exec(ctx, "delete category", `DELETE FROM categories WHERE id = $1`, id)
}

const optionColumns = `
	o.id, o.category_id, o.name, o.description, o.price, o.sort_order,
	o.image_url, o.dependency_ids, o.incompatible_ids, o.created_at, o.updated_at`

func (r *repository) CreateOption(ctx context.Context, o *Option) error {
	query := `
		INSERT INTO options (
			id, category_id, name, description, price, sort_order,
			image_url, dependency_ids, incompatible_ids
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query,
		o.ID, o.CategoryID, o.Name, o.Description, o.Price, o.SortOrder,
		o.ImageURL, o.DependencyIDs, o.IncompatibleIDs)
	return core.MapNoRows("create option", row.Scan(&o.CreatedAt, &o.UpdatedAt))
}

func (r *repository) GetOption(ctx context.Context, id string) (*Option, error) {
	query := `SELECT ` + optionColumns + ` FROM options o WHERE o.id = $1`

	var o Option
	if err := r.db.GetContext(ctx, &o, query, id); err != nil {
		return nil, core.MapNoRows("get option", err)
	}
	return &o, nil
}

func (r *repository) ListOptions(ctx context.Context, configuratorID string) ([]Option, error) {
	query := `
		SELECT ` + optionColumns + `
		FROM options o
		JOIN categories c ON c.id = o.category_id
		WHERE c.configurator_id = $1
		ORDER BY o.sort_order, o.created_at`

	out := []Option{}
	if err := r.db.SelectContext(ctx, &out, query, configuratorID); err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	return out, nil
}

func (r *repository) UpdateOption(ctx context.Context, o *Option) error {
	query := `
		UPDATE options
		SET name = $2, description = $3, price = $4, sort_order = $5,
			image_url = $6, dependency_ids = $7, incompatible_ids = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &o.UpdatedAt, query,
		o.ID, o.Name, o.Description, o.Price, o.SortOrder,
		o.ImageURL, o.DependencyIDs, o.IncompatibleIDs)
	return core.MapNoRows("update option", err)
}

func (r *repository) DeleteOption(ctx context.Context, id string) error {
	return r.exec(ctx, "delete option", `DELETE FROM options WHERE id = $1`, id)
}

const themeColumns = `
	id, tenant_id, configurator_id, name, primary_color, accent_color,
	font_family, logo_url, created_at, updated_at`

func (r *repository) CreateTheme(ctx context.Context, t *Theme) error {
	query := `
		INSERT INTO themes (id, tenant_id, configurator_id, name, primary_color, accent_color, font_family)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query,
		t.ID, t.TenantID, t.ConfiguratorID, t.Name, t.PrimaryColor, t.AccentColor, t.FontFamily)
	return core.MapNoRows("create theme", row.Scan(&t.CreatedAt, &t.UpdatedAt))
}

func (r *repository) GetTheme(ctx context.Context, id string) (*Theme, error) {
	query := `SELECT ` + themeColumns + ` FROM themes WHERE id = $1`

	var t Theme
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		return nil, core.MapNoRows("get theme", err)
	}
	return &t, nil
}

func (r *repository) ListThemes(ctx context.Context, tenantID string) ([]Theme, error) {
	query := `
		SELECT ` + themeColumns + `
		FROM themes
		WHERE tenant_id = $1
		ORDER BY created_at DESC`

	out := []Theme{}
	if err := r.db.SelectContext(ctx, &out, query, tenantID); err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	return out, nil
}

func (r *repository) UpdateTheme(ctx context.Context, t *Theme) error {
	query := `
		UPDATE themes
		SET name = $2, primary_color = $3, accent_color = $4, font_family = $5,
			logo_url = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &t.UpdatedAt, query,
		t.ID, t.Name, t.PrimaryColor, t.AccentColor, t.FontFamily, t.LogoURL)
	return core.MapNoRows("update theme", err)
}

func (r *repository) DeleteTheme(ctx context.Context, id string) error {
	return r.exec(ctx, "delete theme", `DELETE FROM themes WHERE id = $1`, id)
}

const quoteColumns = `
	id, configurator_id, customer_name, customer_email, notes,
	selected_option_ids, total, currency, status, created_at, updated_at`

func (r *repository) CreateQuote(ctx context.Context, q *Quote) error {
	query := `
		INSERT INTO quotes (
			id, configurator_id, customer_name, customer_email, notes,
			selected_option_ids, total, currency, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query,
		q.ID, q.ConfiguratorID, q.CustomerName, q.CustomerEmail, q.Notes,
		q.SelectedOptionIDs, q.Total, q.Currency, q.Status)
	return core.MapNoRows("create quote", row.Scan(&q.CreatedAt, &q.UpdatedAt))
}

func (r *repository) ListQuotes(ctx context.Context, configuratorID string) ([]Quote, error) {
	query := `
		SELECT ` + quoteColumns + `
		FROM quotes
		WHERE configurator_id = $1
		ORDER BY created_at DESC`

	out := []Quote{}
	if err := r.db.SelectContext(ctx, &out, query, configuratorID); err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	return out, nil
}

func (r *repository) UpdateQuoteStatus(ctx context.Context, id, status string) (*Quote, error) {
	query := `
		UPDATE quotes
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + quoteColumns

	var q Quote
	if err := r.db.GetContext(ctx, &q, query, id, status); err != nil {
		return nil, core.MapNoRows("update quote status", err)
	}
	return &q, nil
}

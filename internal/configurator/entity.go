// AngelaMos | 2026
// entity.go

package configurator

import (
	"time"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

// Prices are integer minor units of Currency.
type Configurator struct {
	ID          string    `db:"id"          json:"id"`
	TenantID    string    `db:"tenant_id"   json:"-"`
	Name        string    `db:"name"        json:"name"`
	Description string    `db:"description" json:"description"`
	Currency    string    `db:"currency"    json:"currency"`
	BasePrice   int64     `db:"base_price"  json:"base_price"`
	Published   bool      `db:"published"   json:"published"`
	ThemeID     *string   `db:"theme_id"    json:"theme_id,omitempty"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
}

type Category struct {
	ID             string    `db:"id"              json:"id"`
	ConfiguratorID string    `db:"configurator_id" json:"configurator_id"`
	Name           string    `db:"name"            json:"name"`
	Description    string    `db:"description"     json:"description"`
	SortOrder      int       `db:"sort_order"      json:"sort_order"`
	Required       bool      `db:"required"        json:"required"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}

// Option carries dependency and incompatibility id lists. They are
// stored and returned as given; rule evaluation happens in the embed.
type Option struct {
	ID              string          `db:"id"                json:"id"`
	CategoryID      string          `db:"category_id"       json:"category_id"`
	Name            string          `db:"name"              json:"name"`
	Description     string          `db:"description"       json:"description"`
	Price           int64           `db:"price"             json:"price"`
	SortOrder       int             `db:"sort_order"        json:"sort_order"`
	ImageURL        *string         `db:"image_url"         json:"image_url,omitempty"`
	DependencyIDs   core.StringList `db:"dependency_ids"    json:"dependency_ids"`
	IncompatibleIDs core.StringList `db:"incompatible_ids"  json:"incompatible_ids"`
	CreatedAt       time.Time       `db:"created_at"        json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"        json:"updated_at"`
}

// Theme belongs to a tenant and optionally to one configurator.
type Theme struct {
	ID             string    `db:"id"              json:"id"`
	TenantID       string    `db:"tenant_id"       json:"-"`
	ConfiguratorID *string   `db:"configurator_id" json:"configurator_id,omitempty"`
	Name           string    `db:"name"            json:"name"`
	PrimaryColor   string    `db:"primary_color"   json:"primary_color"`
	AccentColor    string    `db:"accent_color"    json:"accent_color"`
	FontFamily     string    `db:"font_family"     json:"font_family"`
	LogoURL        *string   `db:"logo_url"        json:"logo_url,omitempty"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}

type Quote struct {
	ID                string          `db:"id"                  json:"id"`
	ConfiguratorID    string          `db:"configurator_id"     json:"configurator_id"`
	CustomerName      string          `db:"customer_name"       json:"customer_name"`
	CustomerEmail     string          `db:"customer_email"      json:"customer_email"`
	Notes             string          `db:"notes"               json:"notes"`
	SelectedOptionIDs core.StringList `db:"selected_option_ids" json:"selected_option_ids"`
	Total             int64           `db:"total"               json:"total"`
	Currency          string          `db:"currency"            json:"currency"`
	Status            string          `db:"status"              json:"status"`
	CreatedAt         time.Time       `db:"created_at"          json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"          json:"updated_at"`
}

const (
	QuoteNew      = "new"
	QuoteSent     = "sent"
	QuoteAccepted = "accepted"
	QuoteRejected = "rejected"
)

// Document is the published, read-only view served to embeds.
type Document struct {
	Configurator Configurator  `json:"configurator"`
	Theme        *Theme        `json:"theme,omitempty"`
	Categories   []CategoryDoc `json:"categories"`
}

type CategoryDoc struct {
	Category
	Options []Option `json:"options"`
}

func (d *Document) option(id string) (*Option, bool) {
	for i := range d.Categories {
		for j := range d.Categories[i].Options {
			if d.Categories[i].Options[j].ID == id {
				return &d.Categories[i].Options[j], true
			}
		}
	}
	return nil, false
}

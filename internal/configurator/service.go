// AngelaMos | 2026
// service.go

package configurator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/configurator-api/internal/access"
	"github.com/carterperez-dev/templates/configurator-api/internal/auth"
	"github.com/carterperez-dev/templates/configurator-api/internal/core"
	"github.com/carterperez-dev/templates/configurator-api/internal/middleware"
	"github.com/carterperez-dev/templates/configurator-api/internal/notify"
	"github.com/carterperez-dev/templates/configurator-api/internal/storage"
)

type Guard interface {
	AssertOwned(
		ctx context.Context,
		identity *middleware.Identity,
		ref access.ResourceRef,
	) (access.Owner, error)
	AssertTenantWide(identity *middleware.Identity) error
}

type Deps struct {
	Repo    Repository
	Guard   Guard
	Cache   *DocumentCache
	Store   storage.Store
	Mailer  notify.Mailer
	Tenants auth.TenantLookup
	Logger  *slog.Logger
}

type Service struct {
	repo    Repository
	guard   Guard
	cache   *DocumentCache
	store   storage.Store
	mailer  notify.Mailer
	tenants auth.TenantLookup
	logger  *slog.Logger
}

func NewService(deps Deps) *Service {
	return &Service{
		repo:    deps.Repo,
		guard:   deps.Guard,
		cache:   deps.Cache,
		store:   deps.Store,
		mailer:  deps.Mailer,
		tenants: deps.Tenants,
		logger:  deps.Logger,
	}
}

const defaultCurrency = "USD"

// ListConfigurators returns only the scoped configurator for an edit
// token.
func (s *Service) ListConfigurators(
	ctx context.Context,
	identity *middleware.Identity,
) ([]Configurator, error) {
	if identity.ScopedToConfigurator() {
		c, err := s.GetConfigurator(ctx, identity, identity.ConfiguratorID)
		if err != nil {
			return nil, err
		}
		return []Configurator{*c}, nil
	}

	return s.repo.ListConfigurators(ctx, identity.TenantID)
}

func (s *Service) CreateConfigurator(
	ctx context.Context,
	identity *middleware.Identity,
	req CreateConfiguratorRequest,
) (*Configurator, error) {
	if err := s.guard.AssertTenantWide(identity); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	if req.ThemeID != nil {
		if err := s.assertTheme(ctx, identity, *req.ThemeID, id); err != nil {
			return nil, err
		}
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	c := &Configurator{
		ID:          id,
		TenantID:    identity.TenantID,
		Name:        req.Name,
		Description: req.Description,
		Currency:    currency,
		BasePrice:   req.BasePrice,
		ThemeID:     req.ThemeID,
	}

	if err := s.repo.CreateConfigurator(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) GetConfigurator(
	ctx context.Context,
	identity *middleware.Identity,
	id string,
) (*Configurator, error) {
	if _, err := s.guard.AssertOwned(ctx, identity, access.Configurator(id)); err != nil {
		return nil, err
	}
	return s.repo.GetConfigurator(ctx, id)
}

func (s *Service) UpdateConfigurator(
	ctx context.Context,
	identity *middleware.Identity,
	id string,
	req UpdateConfiguratorRequest,
) (*Configurator, error) {
	c, err := s.GetConfigurator(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	if req.ThemeID != nil {
		if err := s.assertTheme(ctx, identity, *req.ThemeID, id); err != nil {
			return nil, err
		}
		c.ThemeID = req.ThemeID
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Currency != nil {
		c.Currency = strings.ToUpper(*req.Currency)
	}
	if req.BasePrice != nil {
		c.BasePrice = *req.BasePrice
	}
	if req.Published != nil {
		c.Published = *req.Published
	}

	if err := s.repo.UpdateConfigurator(ctx, c); err != nil {
		return nil, err
	}

	s.cache.Invalidate(id)
	return c, nil
}

// assertTheme lets a configurator reference the caller's tenant-level
// themes or a theme scoped to that same configurator.
func (s *Service) assertTheme(
	ctx context.Context,
	identity *middleware.Identity,
	themeID, configuratorID string,
) error {
	owner, err := s.guard.AssertOwned(ctx, identity, access.Theme(themeID))
	if err != nil {
		return err
	}
	if owner.ConfiguratorID != "" && owner.ConfiguratorID != configuratorID {
		return fmt.Errorf("assign theme %s: scoped to another configurator: %w", themeID, core.ErrInvalidInput)
	}
	return nil
}

func (s *Service) DeleteConfigurator(
	ctx context.Context,
	identity *middleware.Identity,
	id string,
) error {
	if err := s.guard.AssertTenantWide(identity); err != nil {
		return err
	}
	if _, err := s.guard.AssertOwned(ctx, identity, access.Configurator(id)); err != nil {
		return err
	}

	if err := s.repo.DeleteConfigurator(ctx, id); err != nil {
		return err
	}

	s.cache.Invalidate(id)
	return nil
}

func (s *Service) CreateCategory(
	ctx context.Context,
	identity *middleware.Identity,
	configuratorID string,
	req CategoryRequest,
) (*Category, error) {
	if _, err := s.guard.AssertOwned(ctx, identity, access.Configurator(configuratorID)); err != nil {
		return nil, err
	}

	c := &Category{
		ID:             uuid.New().String(),
		ConfiguratorID: configuratorID,
		Name:           req.Name,
		Description:    req.Description,
		SortOrder:      req.SortOrder,
		Required:       req.Required,
	}

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	s.cache.Invalidate(configuratorID)
	return c, nil
}

func (s *Service) ListCategories(
	ctx context.Context,
	identity *middleware.Identity,
	configuratorID string,
) ([]Category, error) {
	if _, err := s.guard.AssertOwned(ctx, identity, access.Configurator(configuratorID)); err != nil {
		return nil, err
	}
	return s.repo.ListCategories(ctx, configuratorID)
}

func (s *Service) UpdateCategory(
	ctx context.Context,
	identity *middleware.Identity,
	id string,
	req CategoryRequest,
) (*Category, error) {
	owner, err := s.guard.AssertOwned(ctx, identity, access.Category(id))
	if err != nil {
		return nil, err
	}

	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Name = req.Name
	c.Description = req.Description
	c.SortOrder = req.SortOrder
	c.Required = req.Required

	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}

	s.cache.Invalidate(owner.ConfiguratorID)
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, identity *middleware.Identity, id string) error {
	owner, err := s.guard.AssertOwned(ctx, identity, access.Category(id))
	if err != nil {
		return err
	}

	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}

	s.cache.Invalidate(owner.ConfiguratorID)
	return nil
}

func (s *Service) CreateOption(
	ctx context.Context,
	identity *middleware.Identity,
	categoryID string,
	req OptionRequest,
) (*Option, error) {
	owner, err := s.guard.AssertOwned(ctx, identity, access.Category(categoryID))
	if err != nil {
		return nil, err
	}

	o := &Option{
		ID:              uuid.New().String(),
		CategoryID:      categoryID,
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		SortOrder:       req.SortOrder,
		ImageURL:        req.ImageURL,
		DependencyIDs:   core.StringList(req.DependencyIDs),
		IncompatibleIDs: core.StringList(req.IncompatibleIDs),
	}

	if err := s.repo.CreateOption(ctx, o); err != nil {
		return nil, err
	}

	s.cache.Invalidate(owner.ConfiguratorID)
	return o, nil
}

func (s *Service) ListOptions(
	ctx context.Context,
	identity *middleware.Identity,
	configuratorID string,
) ([]Option, error) {
	if _, err := s.guard.AssertOwned(ctx, identity, access.Configurator(configuratorID)); err != nil {
		return nil, err
	}
	return s.repo.ListOptions(ctx, configuratorID)
}

func (s *Service) UpdateOption(
	ctx context.Context,
	identity *middleware.Identity,
	id string,
	req OptionRequest,
) (*Option, error) {
	owner, err := s.guard.AssertOwned(ctx, identity, access.Option(id))
	if err != nil {
		return nil, err
	}

	o, err := s.repo.GetOption(ctx, id)
	if err != nil {
		return nil, err
	}

	o.Name = req.Name
	o.Description = req.Description
	o.Price = req.Price
	o.SortOrder = req.SortOrder
	o.ImageURL = req.ImageURL
	o.DependencyIDs = core.StringList(req.DependencyIDs)
	o.IncompatibleIDs = core.StringList(req.IncompatibleIDs)

	if err := s.repo.UpdateOption(ctx, o); err != nil {
		return nil, err
	}

	s.cache.Invalidate(owner.ConfiguratorID)
	return o, nil
}

func (s *Service) DeleteOption(ctx context.Context, identity *middleware.Identity, id string) error {
	owner, err := s.guard.AssertOwned(ctx, identity, access.Option(id))
	if err != nil {
		return err
	}

	if err := s.repo.DeleteOption(ctx, id); err != nil {
		return err
	}

	s.cache.Invalidate(owner.ConfiguratorID)
	return nil
}

func (s *Service) ListThemes(ctx context.Context, identity *middleware.Identity) ([]Theme, error) {
	if err := s.guard.AssertTenantWide(identity); err != nil {
		return nil, err
	}
	return s.repo.ListThemes(ctx, identity.TenantID)
}

// CreateTheme makes a tenant-level theme unless a configurator is named,
// in which case that configurator must be owned and in scope.
func (s *Service) CreateTheme(
	ctx context.Context,
	identity *middleware.Identity,
	req ThemeRequest,
) (*Theme, error) {
	if req.ConfiguratorID != nil {
		if _, err := s.guard.AssertOwned(ctx, identity, access.Configurator(*req.ConfiguratorID)); err != nil {
			return nil, err
		}
	} else if err := s.guard.AssertTenantWide(identity); err != nil {
		return nil, err
	}

	t := &Theme{
		ID:             uuid.New().String(),
		TenantID:       identity.TenantID,
		ConfiguratorID: req.ConfiguratorID,
		Name:           req.Name,
		PrimaryColor:   req.PrimaryColor,
		AccentColor:    req.AccentColor,
		FontFamily:     req.FontFamily,
	}

	if err := s.repo.CreateTheme(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) UpdateTheme(
	ctx context.Context,
	identity *middleware.Identity,
	id string,
	req ThemeRequest,
) (*Theme, error) {
	owner, err := s.guard.AssertOwned(ctx, identity, access.Theme(id))
	if err != nil {
		return nil, err
	}

	t, err := s.repo.GetTheme(ctx, id)
	if err != nil {
		return nil, err
	}

	t.Name = req.Name
	t.PrimaryColor = req.PrimaryColor
	t.AccentColor = req.AccentColor
	t.FontFamily = req.FontFamily

	if err := s.repo.UpdateTheme(ctx, t); err != nil {
		return nil, err
	}

	s.invalidateTheme(owner)
	return t, nil
}

var logoTypes = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/svg+xml": ".svg",
	"image/webp":    ".webp",
}

func (s *Service) UploadLogo(
	ctx context.Context,
	identity *middleware.Identity,
	id string,
	body io.Reader,
	contentType string,
) (*Theme, error) {
	ext, ok := logoTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("upload logo: content type %q: %w", contentType, core.ErrInvalidInput)
	}

	owner, err := s.guard.AssertOwned(ctx, identity, access.Theme(id))
	if err != nil {
		return nil, err
	}

	t, err := s.repo.GetTheme(ctx, id)
	if err != nil {
		return nil, err
	}

	key := path.Join("themes", owner.TenantID, id, uuid.New().String()+ext)
	url, err := s.store.Put(ctx, key, body, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload logo: %w", err)
	}

	previous := t.LogoURL
	t.LogoURL = &url
	if err := s.repo.UpdateTheme(ctx, t); err != nil {
		return nil, err
	}

	s.invalidateTheme(owner)
	s.removeLogo(ctx, previous)
	return t, nil
}

func (s *Service) DeleteTheme(ctx context.Context, identity *middleware.Identity, id string) error {
	owner, err := s.guard.AssertOwned(ctx, identity, access.Theme(id))
	if err != nil {
		return err
	}

	t, err := s.repo.GetTheme(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteTheme(ctx, id); err != nil {
		return err
	}

	s.invalidateTheme(owner)
	s.removeLogo(ctx, t.LogoURL)
	return nil
}

// removeLogo deletes a replaced or orphaned logo object. Failures only
// leave garbage in the bucket, so they are logged.
func (s *Service) removeLogo(ctx context.Context, logoURL *string) {
	if logoURL == nil {
		return
	}

	i := strings.Index(*logoURL, "/themes/")
	if i < 0 {
		return
	}

	if err := s.store.Delete(ctx, (*logoURL)[i+1:]); err != nil {
		s.logger.WarnContext(ctx, "logo cleanup failed", "url", *logoURL, "error", err)
	}
}

func (s *Service) invalidateTheme(owner access.Owner) {
	if owner.ConfiguratorID == "" {
		s.cache.Purge()
		return
	}
	s.cache.Invalidate(owner.ConfiguratorID)
}

func (s *Service) ListQuotes(
	ctx context.Context,
	identity *middleware.Identity,
	configuratorID string,
) ([]Quote, error) {
	if _, err := s.guard.AssertOwned(ctx, identity, access.Configurator(configuratorID)); err != nil {
		return nil, err
	}
	return s.repo.ListQuotes(ctx, configuratorID)
}

func (s *Service) UpdateQuoteStatus(
	ctx context.Context,
	identity *middleware.Identity,
	id, status string,
) (*Quote, error) {
	if _, err := s.guard.AssertOwned(ctx, identity, access.Quote(id)); err != nil {
		return nil, err
	}
	return s.repo.UpdateQuoteStatus(ctx, id, status)
}

// PublishedDocument serves the embed. The configurator must belong to the
// tenant resolved from the public key and be published; anything else is
// not found.
func (s *Service) PublishedDocument(
	ctx context.Context,
	tenantID, configuratorID string,
) (*Document, error) {
	doc, ok := s.cache.Get(configuratorID)
	if !ok {
		generation := s.cache.Generation()
		loaded, err := s.loadDocument(ctx, configuratorID)
		if err != nil {
			return nil, err
		}
		doc = loaded
		if doc.Configurator.Published {
			s.cache.Add(generation, doc)
		}
	}

	if doc.Configurator.TenantID != tenantID || !doc.Configurator.Published {
		return nil, fmt.Errorf("published document %s: %w", configuratorID, core.ErrNotFound)
	}

	return doc, nil
}

func (s *Service) loadDocument(ctx context.Context, configuratorID string) (*Document, error) {
	if _, err := uuid.Parse(configuratorID); err != nil {
		return nil, fmt.Errorf("load document: %w", core.ErrNotFound)
	}

	c, err := s.repo.GetConfigurator(ctx, configuratorID)
	if err != nil {
		return nil, err
	}

	categories, err := s.repo.ListCategories(ctx, configuratorID)
	if err != nil {
		return nil, err
	}

	options, err := s.repo.ListOptions(ctx, configuratorID)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string][]Option, len(categories))
	for _, o := range options {
		byCategory[o.CategoryID] = append(byCategory[o.CategoryID], o)
	}

	doc := &Document{Configurator: *c, Categories: make([]CategoryDoc, 0, len(categories))}
	for _, cat := range categories {
		opts := byCategory[cat.ID]
		if opts == nil {
			opts = []Option{}
		}
		doc.Categories = append(doc.Categories, CategoryDoc{Category: cat, Options: opts})
	}

	if c.ThemeID != nil {
		theme, err := s.repo.GetTheme(ctx, *c.ThemeID)
		switch {
		case err == nil:
			doc.Theme = theme
		case !errors.Is(err, core.ErrNotFound):
			return nil, err
		}
	}

	return doc, nil
}

// SubmitQuote prices the selection server-side from the published
// document. Unknown option ids are rejected rather than ignored.
func (s *Service) SubmitQuote(
	ctx context.Context,
	tenantID, configuratorID string,
	req SubmitQuoteRequest,
) (*Quote, error) {
	doc, err := s.PublishedDocument(ctx, tenantID, configuratorID)
	if err != nil {
		return nil, err
	}

	total := doc.Configurator.BasePrice
	selected := make(core.StringList, 0, len(req.SelectedOptionIDs))
	seen := make(map[string]struct{}, len(req.SelectedOptionIDs))
	for _, id := range req.SelectedOptionIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("submit quote: option %q selected twice: %w", id, core.ErrInvalidInput)
		}
		seen[id] = struct{}{}

		opt, ok := doc.option(id)
		if !ok {
			return nil, fmt.Errorf("submit quote: unknown option %q: %w", id, core.ErrInvalidInput)
		}
		total += opt.Price
		selected = append(selected, id)
	}

	q := &Quote{
		ID:                uuid.New().String(),
		ConfiguratorID:    configuratorID,
		CustomerName:      req.CustomerName,
		CustomerEmail:     strings.ToLower(req.CustomerEmail),
		Notes:             req.Notes,
		SelectedOptionIDs: selected,
		Total:             total,
		Currency:          doc.Configurator.Currency,
		Status:            QuoteNew,
	}

	if err := s.repo.CreateQuote(ctx, q); err != nil {
		return nil, err
	}

	s.notifyQuote(ctx, tenantID, doc, q)
	return q, nil
}

func (s *Service) notifyQuote(ctx context.Context, tenantID string, doc *Document, q *Quote) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		s.logger.WarnContext(ctx, "quote notification skipped", "tenant_id", tenantID, "error", err)
		return
	}

	body := fmt.Sprintf(
		"A new quote request arrived for %s.\n\nCustomer: %s <%s>\nTotal: %s %s\nItems: %d\n\n%s\n",
		doc.Configurator.Name,
		q.CustomerName,
		q.CustomerEmail,
		formatMinor(q.Total),
		q.Currency,
		len(q.SelectedOptionIDs),
		q.Notes,
	)

	err = s.mailer.Send(ctx, notify.Message{
		To:      tenant.Email,
		Subject: "New quote request: " + doc.Configurator.Name,
		Body:    body,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "quote notification failed",
			"tenant_id", tenantID,
			"quote_id", q.ID,
			"error", err,
		)
	}
}

func formatMinor(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// AngelaMos | 2026
// handler.go

package tenant

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
	"github.com/carterperez-dev/templates/configurator-api/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the account endpoints. Credentials scoped to a
// single configurator are refused here.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/tenant", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(middleware.RequireUnscoped)

		r.Get("/", h.GetMe)
		r.Put("/", h.UpdateMe)
		r.Get("/usage", h.GetUsage)
		r.Put("/domains", h.UpdateDomains)
		r.Post("/api-key", h.RotateAPIKey)
		r.Post("/public-key", h.RotatePublicKey)
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetTenant(r.Context(), middleware.GetTenantID(r.Context()))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToTenantResponse(t))
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.service.UpdateProfile(r.Context(), middleware.GetTenantID(r.Context()), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToTenantResponse(t))
}

func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetUsage(r.Context(), middleware.GetTenantID(r.Context()))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) UpdateDomains(w http.ResponseWriter, r *http.Request) {
	var req UpdateDomainsRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.service.UpdateDomains(r.Context(), middleware.GetTenantID(r.Context()), req.Domains)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToTenantResponse(t))
}

func (h *Handler) RotateAPIKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.service.RotateAPIKey(r.Context(), middleware.GetTenantID(r.Context()))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, APIKeyResponse{APIKey: key})
}

func (h *Handler) RotatePublicKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.service.RotatePublicKey(r.Context(), middleware.GetTenantID(r.Context()))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, PublicKeyResponse{PublicKey: key})
}

// RegisterAdminRoutes registers operator-only tenant management endpoints.
func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/tenants", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListTenants)
		r.Get("/{tenantID}", h.GetTenant)
		r.Post("/{tenantID}/lock", h.LockTenant)
		r.Delete("/{tenantID}/lock", h.UnlockTenant)
		r.Put("/{tenantID}/subscription", h.UpdateSubscription)
		r.Post("/{tenantID}/usage/reset", h.ResetUsage)
		r.Delete("/{tenantID}", h.DeleteTenant)
	})
}

func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	params := ListTenantsParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Search:   r.URL.Query().Get("search"),
		Plan:     r.URL.Query().Get("plan"),
		Status:   r.URL.Query().Get("status"),
	}

	tenants, total, err := h.service.ListTenants(r.Context(), params)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	params.Normalize()
	core.Paginated(w, ToTenantResponseList(tenants), params.Page, params.PageSize, total)
}

func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetTenant(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToTenantResponse(t))
}

func (h *Handler) LockTenant(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.service.Lock(r.Context(), chi.URLParam(r, "tenantID"), req.Duration)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToTenantResponse(t))
}

func (h *Handler) UnlockTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Unlock(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToTenantResponse(t))
}

func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var req UpdateSubscriptionRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.service.UpdateSubscription(r.Context(), chi.URLParam(r, "tenantID"), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToTenantResponse(t))
}

func (h *Handler) ResetUsage(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.ResetUsage(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToUsageResponse(t))
}

func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteTenant(
		r.Context(),
		middleware.GetTenantID(r.Context()),
		chi.URLParam(r, "tenantID"),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}

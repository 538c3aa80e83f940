// AngelaMos | 2026
// handler.go

package configurator

import (
	"encoding/json"
	"mime"
	"net/http"

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

// RegisterRoutes mounts the dashboard content API. Ownership is enforced
// per resource in the service, so edit tokens may reach these routes.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Route("/configurators", func(r chi.Router) {
			r.Get("/", h.ListConfigurators)
			r.Post("/", h.CreateConfigurator)
			r.Get("/{configuratorID}", h.GetConfigurator)
			r.Put("/{configuratorID}", h.UpdateConfigurator)
			r.Delete("/{configuratorID}", h.DeleteConfigurator)
			r.Get("/{configuratorID}/categories", h.ListCategories)
			r.Post("/{configuratorID}/categories", h.CreateCategory)
			r.Get("/{configuratorID}/options", h.ListOptions)
			r.Get("/{configuratorID}/quotes", h.ListQuotes)
		})

		r.Route("/categories/{categoryID}", func(r chi.Router) {
			r.Put("/", h.UpdateCategory)
			r.Delete("/", h.DeleteCategory)
			r.Post("/options", h.CreateOption)
		})

		r.Route("/options/{optionID}", func(r chi.Router) {
			r.Put("/", h.UpdateOption)
			r.Delete("/", h.DeleteOption)
		})

		r.Route("/themes", func(r chi.Router) {
			r.Get("/", h.ListThemes)
			r.Post("/", h.CreateTheme)
			r.Put("/{themeID}", h.UpdateTheme)
			r.Delete("/{themeID}", h.DeleteTheme)
			r.Put("/{themeID}/logo", h.UploadLogo)
		})

		r.Put("/quotes/{quoteID}/status", h.UpdateQuoteStatus)
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

func respond(w http.ResponseWriter, status int, data any, err error) {
	if err != nil {
		core.JSONError(w, err)
		return
	}
	core.JSON(w, status, core.SuccessResponse{Success: true, Data: data})
}

func (h *Handler) ListConfigurators(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListConfigurators(r.Context(), middleware.GetIdentity(r.Context()))
	respond(w, http.StatusOK, out, err)
}

func (h *Handler) CreateConfigurator(w http.ResponseWriter, r *http.Request) {
	var req CreateConfiguratorRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.service.CreateConfigurator(r.Context(), middleware.GetIdentity(r.Context()), req)
	respond(w, http.StatusCreated, out, err)
}

func (h *Handler) GetConfigurator(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.GetConfigurator(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "configuratorID"),
	)
	respond(w, http.StatusOK, out, err)
}

func (h *Handler) UpdateConfigurator(w http.ResponseWriter, r *http.Request) {
	var req UpdateConfiguratorRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.service.UpdateConfigurator(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "configuratorID"),
		req,
	)
	respond(w, http.StatusOK, out, err)
}

func (h *Handler) DeleteConfigurator(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteConfigurator(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "configuratorID"),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	core.NoContent(w)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListCategories(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "configuratorID"),
	)
	respond(w, http.StatusOK, out, err)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.service.CreateCategory(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "configuratorID"),
		req,
	)
	respond(w, http.StatusCreated, out, err)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.service.UpdateCategory(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "categoryID"),
		req,
	)
	respond(w, http.StatusOK, out, err)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteCategory(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "categoryID"),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	core.NoContent(w)
}

func (h *Handler) ListOptions(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListOptions(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "configuratorID"),
	)
	respond(w, http.StatusOK, out, err)
}

func (h *Handler) CreateOption(w http.ResponseWriter, r *http.Request) {
	var req OptionRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.service.CreateOption(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "categoryID"),
		req,
	)
	respond(w, http.StatusCreated, out, err)
}

func (h *Handler) UpdateOption(w http.ResponseWriter, r *http.Request) {
	var req OptionRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.service.UpdateOption(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "optionID"),
		req,
	)
	respond(w, http.StatusOK, out, err)
}

func (h *Handler) DeleteOption(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteOption(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "optionID"),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	core.NoContent(w)
}

func (h *Handler) ListThemes(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListThemes(r.Context(), middleware.GetIdentity(r.Context()))
	respond(w, http.StatusOK, out, err)
}

func (h *Handler) CreateTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.service.CreateTheme(r.Context(), middleware.GetIdentity(r.Context()), req)
	respond(w, http.StatusCreated, out, err)
}

func (h *Handler) UpdateTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.service.UpdateTheme(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "themeID"),
		req,
	)
	respond(w, http.StatusOK, out, err)
}

func (h *Handler) DeleteTheme(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteTheme(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "themeID"),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	core.NoContent(w)
}

// UploadLogo takes the raw image as the request body.
func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	contentType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		core.BadRequest(w, "content type required")
		return
	}

	out, err := h.service.UploadLogo(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "themeID"),
		r.Body,
		contentType,
	)
	respond(w, http.StatusOK, out, err)
}

func (h *Handler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListQuotes(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "configuratorID"),
	)
	respond(w, http.StatusOK, out, err)
}

func (h *Handler) UpdateQuoteStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuoteStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.service.UpdateQuoteStatus(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "quoteID"),
		req.Status,
	)
	respond(w, http.StatusOK, out, err)
}

// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/configurator-api/internal/config"
	"github.com/carterperez-dev/templates/configurator-api/internal/core"
	"github.com/carterperez-dev/templates/configurator-api/internal/middleware"
)

type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

func NewCookieConfig(cfg config.AuthConfig) CookieConfig {
	return CookieConfig{
		Name:   cfg.SessionCookieName,
		Domain: cfg.CookieDomain,
		Secure: cfg.CookieSecure,
	}
}

// Routes carries the middleware stacks the auth endpoints are mounted
// behind.
type Routes struct {
	LoginLimit     func(http.Handler) http.Handler
	SessionOrToken func(http.Handler) http.Handler
	OAuthRedirect  string
}

type Handler struct {
	service   *Service
	cookie    CookieConfig
	validator *validator.Validate
}

func NewHandler(service *Service, cookie CookieConfig) *Handler {
	return &Handler{
		service:   service,
		cookie:    cookie,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router, routes Routes) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(routes.LoginLimit)
			r.Post("/login", h.Login)
			r.Post("/register", h.Register)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/reset-password", h.ResetPassword)
		})

		r.Get("/oauth/start", h.OAuthStart)
		r.Get("/oauth/callback", h.oauthCallback(routes.OAuthRedirect))

		r.Group(func(r chi.Router) {
			r.Use(routes.SessionOrToken)
			r.Get("/me", h.GetMe)
			r.Post("/logout", h.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireUnscoped)
				r.Post("/edit-token", h.IssueEditToken)
				r.Post("/api-token", h.IssueAPIToken)
				r.Post("/logout-all", h.LogoutAll)
				r.Get("/sessions", h.GetSessions)
				r.Delete("/sessions/{sessionID}", h.RevokeSession)
				r.Post("/change-password", h.ChangePassword)
			})
		})
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

func (h *Handler) setSessionCookie(w http.ResponseWriter, value string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookie.Domain,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req, r.UserAgent(), middleware.ClientIP(r))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	h.setSessionCookie(w, result.SessionToken, result.ExpiresAt)
	core.OK(w, result.Response)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, result, err := h.service.Register(r.Context(), req, r.UserAgent(), middleware.ClientIP(r))
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			core.JSONError(w, core.DuplicateError("email"))
			return
		}
		core.JSONError(w, err)
		return
	}

	h.setSessionCookie(w, result.SessionToken, result.ExpiresAt)
	core.Created(w, resp)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		core.JSONError(w, err)
		return
	}

	core.OKWithMessage(w, nil, "if the account exists, a reset link has been sent")
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	target, err := h.service.StartOAuth(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) oauthCallback(successRedirect string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("error") != "" {
			core.JSONError(w, core.UnauthorizedError("oauth login was not completed"))
			return
		}

		state, code := q.Get("state"), q.Get("code")
		if state == "" || code == "" {
			core.BadRequest(w, "state and code are required")
			return
		}

		result, err := h.service.CompleteOAuth(
			r.Context(),
			state,
			code,
			r.UserAgent(),
			middleware.ClientIP(r),
		)
		if err != nil {
			core.JSONError(w, err)
			return
		}

		h.setSessionCookie(w, result.SessionToken, result.ExpiresAt)

		if successRedirect != "" {
			http.Redirect(w, r, successRedirect, http.StatusFound)
			return
		}
		core.OK(w, result.Response)
	}
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	me, err := h.service.GetMe(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, me)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), middleware.GetIdentity(r.Context())); err != nil {
		core.JSONError(w, err)
		return
	}

	h.clearSessionCookie(w)
	core.NoContent(w)
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.LogoutAll(r.Context(), middleware.GetIdentity(r.Context())); err != nil {
		core.JSONError(w, err)
		return
	}

	h.clearSessionCookie(w)
	core.NoContent(w)
}

func (h *Handler) GetSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.GetActiveSessions(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, SessionsResponse{Sessions: sessions})
}

func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		core.BadRequest(w, "session ID required")
		return
	}

	err := h.service.RevokeSession(r.Context(), middleware.GetTenantID(r.Context()), sessionID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.ChangePassword(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		req.CurrentPassword,
		req.NewPassword,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	h.clearSessionCookie(w)
	core.NoContent(w)
}

func (h *Handler) IssueEditToken(w http.ResponseWriter, r *http.Request) {
	var req EditTokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.IssueEditToken(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		req.ConfiguratorID,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, resp)
}

func (h *Handler) IssueAPIToken(w http.ResponseWriter, r *http.Request) {
	var req APITokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.IssueAPIToken(r.Context(), middleware.GetIdentity(r.Context()), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	if resp.QuotaWarning {
		w.Header().Set("X-Quota-Warning", "true")
	}
	core.Created(w, resp)
}

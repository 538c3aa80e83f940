// AngelaMos | 2026
// dispatcher.go

package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
	"github.com/carterperez-dev/templates/configurator-api/internal/middleware"
)

// Dispatcher tries strategies in order. The first identity wins, the first
// hard failure ends the chain, and a chain of soft failures is a generic
// "authentication required".
type Dispatcher struct {
	strategies []Strategy
	logger     *slog.Logger
}

func NewDispatcher(logger *slog.Logger, strategies ...Strategy) *Dispatcher {
	return &Dispatcher{strategies: strategies, logger: logger}
}

// NewFlexibleDispatcher accepts session cookies, signed tokens, and static
// API keys, in that order.
func NewFlexibleDispatcher(
	logger *slog.Logger,
	session *SessionStrategy,
	token *TokenStrategy,
	apiKey *APIKeyStrategy,
) *Dispatcher {
	return NewDispatcher(logger, session, token, apiKey)
}

// NewSessionOrTokenDispatcher never accepts static API keys.
func NewSessionOrTokenDispatcher(
	logger *slog.Logger,
	session *SessionStrategy,
	token *TokenStrategy,
) *Dispatcher {
	return NewDispatcher(logger, session, token)
}

func (d *Dispatcher) Authenticate(r *http.Request) (*middleware.Identity, error) {
	for _, s := range d.strategies {
		identity, err := s.Authenticate(r)
		if err == nil {
			core.AuthAttempts.WithLabelValues(s.Name(), "success").Inc()
			core.AddSpanEvent(r.Context(), "authenticated",
				core.AttrAuthStrategy.String(s.Name()),
				core.AttrTenantID.String(identity.TenantID),
			)
			return identity, nil
		}

		if errors.Is(err, ErrNoCredentials) {
			core.AuthAttempts.WithLabelValues(s.Name(), "skip").Inc()
			d.logger.DebugContext(r.Context(), "auth strategy skipped",
				"strategy", s.Name(),
				"reason", err.Error(),
			)
			continue
		}

		core.AuthAttempts.WithLabelValues(s.Name(), "reject").Inc()
		d.logger.InfoContext(r.Context(), "auth strategy rejected request",
			"strategy", s.Name(),
			"error", err,
		)
		return nil, err
	}

	core.AuthAttempts.WithLabelValues("dispatcher", "reject").Inc()
	return nil, core.ErrAuthenticationRequired
}

// Middleware is the chi form of the dispatcher.
func (d *Dispatcher) Middleware() func(http.Handler) http.Handler {
	return middleware.Authenticate(d)
}

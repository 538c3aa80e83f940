// AngelaMos | 2026
// login_limit.go

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

// LoginLimitConfig throttles unauthenticated credential endpoints per
// client IP. Counter nil means an in-process sliding window that is lost
// on restart.
type LoginLimitConfig struct {
	Requests int
	Window   time.Duration
	Counter  httprate.LimitCounter
	KeyFunc  httprate.KeyFunc
}

func LoginLimiter(cfg LoginLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(r *http.Request) (string, error) {
			return ClientIP(r), nil
		}
	}

	retryAfter := strconv.Itoa(int(cfg.Window.Seconds()))

	opts := []httprate.Option{
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			core.AccessDenials.WithLabelValues("login_rate_limit").Inc()
			w.Header().Set("Retry-After", retryAfter)
			core.JSON(w, http.StatusTooManyRequests, core.ErrorResponse{
				Success: false,
				Error:   "too many attempts, please try again later",
				Code:    "RATE_LIMITED",
			})
		}),
	}

	if cfg.Counter != nil {
		opts = append(opts, httprate.WithLimitCounter(cfg.Counter))
	}

	return httprate.Limit(cfg.Requests, cfg.Window, opts...)
}

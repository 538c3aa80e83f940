// AngelaMos | 2026
// origin.go

package embed

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

// CheckOrigin admits origin when its host equals an allowed domain or is a
// subdomain of one. An empty allow list admits everything. Matching is
// case-sensitive.
func CheckOrigin(origin string, allowed []string) error {
	if len(allowed) == 0 {
		return nil
	}

	host := hostOf(origin)
	if host == "" {
		return fmt.Errorf("origin %q: %w", origin, core.ErrOriginNotAllowed)
	}

	for _, domain := range allowed {
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return nil
		}
	}

	return fmt.Errorf("origin %q: %w", origin, core.ErrOriginNotAllowed)
}

// RequestOrigin prefers the Origin header and falls back to Referer.
func RequestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" && origin != "null" {
		return origin
	}
	return r.Header.Get("Referer")
}

func hostOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Hostname()
}

// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/configurator-api/internal/middleware"
	"github.com/carterperez-dev/templates/configurator-api/internal/tenant"
)

type staticStats struct {
	stats *tenant.Stats
	err   error
}

func (s staticStats) Stats(context.Context) (*tenant.Stats, error) {
	return s.stats, s.err
}

type fakeCache struct {
	entries int
}

func (c *fakeCache) Len() int { return c.entries }

func (c *fakeCache) Purge() { c.entries = 0 }

func asAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := &middleware.Identity{TenantID: "admin-1", Role: tenant.RoleAdmin}
		next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), identity)))
	})
}

func passThrough(next http.Handler) http.Handler { return next }

func newRouter(cfg HandlerConfig) http.Handler {
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	NewHandler(cfg).RegisterRoutes(r, asAdmin, passThrough)
	return r
}

func call(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestSystemStats(t *testing.T) {
	cache := &fakeCache{entries: 4}
	h := newRouter(HandlerConfig{
		DBStats:   func() sql.DBStats { return sql.DBStats{OpenConnections: 3} },
		DBPing:    func(context.Context) error { return nil },
		RedisPing: func(context.Context) error { return errors.New("down") },
		Tenants:   staticStats{stats: &tenant.Stats{Total: 9}},
		Cache:     cache,
	})

	rec := call(h, http.MethodGet, "/admin/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data SystemStatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Database.Healthy)
	assert.Equal(t, 3, body.Data.Database.Stats.OpenConnections)
	assert.False(t, body.Data.Redis.Healthy)
	assert.Nil(t, body.Data.Redis.Stats)
	require.NotNil(t, body.Data.Tenants)
	assert.Equal(t, 9, body.Data.Tenants.Total)
	assert.Equal(t, 4, body.Data.EmbedCache.Entries)
}

func TestSystemStatsSurvivesTenantStatsFailure(t *testing.T) {
	h := newRouter(HandlerConfig{Tenants: staticStats{err: errors.New("timeout")}})

	rec := call(h, http.MethodGet, "/admin/stats")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"tenants"`)

	rec = call(h, http.MethodGet, "/admin/stats/tenants")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMaintenanceJobs(t *testing.T) {
	var resets, purges int
	cache := &fakeCache{entries: 2}
	h := newRouter(HandlerConfig{
		ResetUsage: func(context.Context) (int64, error) {
			resets++
			return 12, nil
		},
		PurgeSessions: func(context.Context) (int64, error) {
			purges++
			return 0, nil
		},
		Cache: cache,
	})

	rec := call(h, http.MethodPost, "/admin/usage/reset")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data JobResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, JobResult{Job: "usage_reset", Affected: 12}, body.Data)

	assert.Equal(t, http.StatusOK, call(h, http.MethodPost, "/admin/sessions/purge").Code)
	assert.Equal(t, http.StatusNoContent, call(h, http.MethodDelete, "/admin/embed/cache").Code)

	assert.Equal(t, 1, resets)
	assert.Equal(t, 1, purges)
	assert.Zero(t, cache.Len())
}

func TestMissingJobIsMisconfiguration(t *testing.T) {
	h := newRouter(HandlerConfig{})

	rec := call(h, http.MethodPost, "/admin/usage/reset")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "SERVER_MISCONFIGURATION")
}

func TestEditTokenCannotReachAdminRoutes(t *testing.T) {
	var resets int
	asEditToken := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := &middleware.Identity{
				TenantID:       "admin-1",
				Role:           tenant.RoleAdmin,
				Method:         middleware.MethodToken,
				Purpose:        "configurator_edit",
				ConfiguratorID: "cfg-1",
			}
			next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), identity)))
		})
	}

	r := chi.NewRouter()
	NewHandler(HandlerConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ResetUsage: func(context.Context) (int64, error) {
			resets++
			return 0, nil
		},
	}).RegisterRoutes(r, asEditToken, middleware.RequireAdmin)

	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "/admin/usage/reset").Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/admin/stats").Code)
	assert.Zero(t, resets)
}

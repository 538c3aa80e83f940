// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
	"github.com/carterperez-dev/templates/configurator-api/internal/middleware"
	"github.com/carterperez-dev/templates/configurator-api/internal/tenant"
)

type TenantStats interface {
	Stats(ctx context.Context) (*tenant.Stats, error)
}

// EmbedCache is the published document cache.
type EmbedCache interface {
	Len() int
	Purge()
}

type Handler struct {
	dbStats       func() sql.DBStats
	redisStats    func() *redis.PoolStats
	redisPing     func(ctx context.Context) error
	dbPing        func(ctx context.Context) error
	tenants       TenantStats
	cache         EmbedCache
	resetUsage    func(ctx context.Context) (int64, error)
	purgeSessions func(ctx context.Context) (int64, error)
	logger        *slog.Logger
}

type HandlerConfig struct {
	DBStats       func() sql.DBStats
	RedisStats    func() *redis.PoolStats
	RedisPing     func(ctx context.Context) error
	DBPing        func(ctx context.Context) error
	Tenants       TenantStats
	Cache         EmbedCache
	ResetUsage    func(ctx context.Context) (int64, error)
	PurgeSessions func(ctx context.Context) (int64, error)
	Logger        *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		dbStats:       cfg.DBStats,
		redisStats:    cfg.RedisStats,
		redisPing:     cfg.RedisPing,
		dbPing:        cfg.DBPing,
		tenants:       cfg.Tenants,
		cache:         cfg.Cache,
		resetUsage:    cfg.ResetUsage,
		purgeSessions: cfg.PurgeSessions,
		logger:        logger,
	}
}

// RegisterRoutes uses full paths rather than a mounted /admin subrouter so
// tenant administration can live beside it.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/admin/stats", h.GetSystemStats)
		r.Get("/admin/stats/db", h.GetDatabaseStats)
		r.Get("/admin/stats/redis", h.GetRedisStats)
		r.Get("/admin/stats/runtime", h.GetRuntimeStats)
		r.Get("/admin/stats/tenants", h.GetTenantStats)

		r.Post("/admin/usage/reset", h.ResetAllUsage)
		r.Post("/admin/sessions/purge", h.PurgeSessions)
		r.Delete("/admin/embed/cache", h.PurgeEmbedCache)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := SystemStatsResponse{
		Database: DatabaseStatus{
			Healthy: pingOK(ctx, h.dbPing),
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: pingOK(ctx, h.redisPing),
			Stats:   h.getRedisStats(),
		},
		Runtime: readRuntime(),
	}

	if h.cache != nil {
		response.EmbedCache = &CacheStats{Entries: h.cache.Len()}
	}

	if h.tenants != nil {
		stats, err := h.tenants.Stats(ctx)
		if err != nil {
			h.logger.WarnContext(ctx, "tenant stats unavailable", "error", err)
		} else {
			response.Tenants = stats
		}
	}

	core.OK(w, response)
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.getDBStats())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.getRedisStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, readRuntime())
}

func (h *Handler) GetTenantStats(w http.ResponseWriter, r *http.Request) {
	if h.tenants == nil {
		core.JSONError(w, core.ErrServerMisconfigured)
		return
	}

	stats, err := h.tenants.Stats(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}
	core.OK(w, stats)
}

// ResetAllUsage runs the monthly reset out of schedule.
func (h *Handler) ResetAllUsage(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, r, "usage_reset", h.resetUsage)
}

func (h *Handler) PurgeSessions(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, r, "session_purge", h.purgeSessions)
}

func (h *Handler) PurgeEmbedCache(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		h.cache.Purge()
	}
	h.logger.InfoContext(r.Context(), "embed cache purged",
		"admin_id", middleware.GetTenantID(r.Context()),
	)
	core.NoContent(w)
}

func (h *Handler) runJob(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	job func(ctx context.Context) (int64, error),
) {
	if job == nil {
		core.JSONError(w, core.ErrServerMisconfigured)
		return
	}

	rows, err := job(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "admin job run",
		"job", name,
		"rows", rows,
		"admin_id", middleware.GetTenantID(r.Context()),
	)
	core.OK(w, JobResult{Job: name, Affected: rows})
}

func pingOK(ctx context.Context, ping func(ctx context.Context) error) bool {
	if ping == nil {
		return false
	}
	return ping(ctx) == nil
}

func readRuntime() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

type SystemStatsResponse struct {
	Database   DatabaseStatus `json:"database"`
	Redis      RedisStatus    `json:"redis"`
	Runtime    RuntimeStats   `json:"runtime"`
	Tenants    *tenant.Stats  `json:"tenants,omitempty"`
	EmbedCache *CacheStats    `json:"embed_cache,omitempty"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type CacheStats struct {
	Entries int `json:"entries"`
}

type JobResult struct {
	Job      string `json:"job"`
	Affected int64  `json:"affected"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
	MaxIdleClosed      int64  `json:"max_idle_closed"`
	MaxIdleTimeClosed  int64  `json:"max_idle_time_closed"`
	MaxLifetimeClosed  int64  `json:"max_lifetime_closed"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	StaleConns uint32 `json:"stale_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}

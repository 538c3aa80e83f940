// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

// LimitFunc picks the limit for a request. The returned tier name is
// echoed in X-RateLimit-Tier when non-empty.
type LimitFunc func(*http.Request) (tier string, limit redis_rate.Limit)

type RateLimitConfig struct {
	// Limit applies when LimitFunc is nil.
	Limit     redis_rate.Limit
	LimitFunc LimitFunc
	KeyFunc   func(*http.Request) string
	// FailOpen admits requests when neither redis nor the local fallback
	// can answer.
	FailOpen   bool
	BypassFunc func(*http.Request) bool
	Logger     *slog.Logger
}

// RateLimiter is a GCRA limiter shared across replicas through redis. When
// redis is unreachable each replica falls back to an in-process token
// bucket per key, so the effective limit multiplies by the replica count.
type RateLimiter struct {
	limiter  *redis_rate.Limiter
	fallback *localLimiter
	config   RateLimitConfig
	logger   *slog.Logger
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}
	if cfg.LimitFunc == nil {
		limit := cfg.Limit
		cfg.LimitFunc = func(*http.Request) (string, redis_rate.Limit) {
			return "", limit
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RateLimiter{
		limiter:  redis_rate.NewLimiter(rdb),
		fallback: newLocalLimiter(),
		config:   cfg,
		logger:   logger,
	}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.config.BypassFunc != nil && rl.config.BypassFunc(r) {
			next.ServeHTTP(w, r)
			return
		}

		tier, limit := rl.config.LimitFunc(r)
		key := rl.config.KeyFunc(r)

		res, err := rl.allow(r.Context(), key, limit)
		if err != nil {
			if rl.config.FailOpen {
				rl.logger.WarnContext(r.Context(), "rate limiter error, failing open",
					"error", err,
					"key", key,
				)
				next.ServeHTTP(w, r)
				return
			}
			core.JSON(w, http.StatusServiceUnavailable, core.ErrorResponse{
				Error: "rate limiter unavailable",
				Code:  "SERVICE_UNAVAILABLE",
			})
			return
		}

		if tier != "" {
			w.Header().Set("X-RateLimit-Tier", tier)
		}
		setRateLimitHeaders(w, res, limit)

		if res.Allowed == 0 {
			core.AccessDenials.WithLabelValues("rate_limit").Inc()
			writeRateLimitExceeded(w, res)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(
	ctx context.Context,
	key string,
	limit redis_rate.Limit,
) (*redis_rate.Result, error) {
	res, err := rl.limiter.Allow(ctx, key, limit)
	if err != nil {
		return rl.fallback.allow(key, limit)
	}
	return res, nil
}

// ClientIP prefers the proxy-appended X-Forwarded-For entry, then
// X-Real-IP, then the socket address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func KeyByIP(r *http.Request) string {
	return core.RedisKey("ratelimit", "ip", ClientIP(r))
}

// KeyByTenant keys authenticated callers by tenant and everyone else by
// client IP.
func KeyByTenant(r *http.Request) string {
	if tenantID := GetTenantID(r.Context()); tenantID != "" {
		return core.RedisKey("ratelimit", "tenant", tenantID)
	}
	return KeyByIP(r)
}

func KeyByTenantAndEndpoint(r *http.Request) string {
	return KeyByTenant(r) + ":endpoint:" + normalizeEndpoint(r.URL.Path)
}

func normalizeEndpoint(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if isUUID(part) || isNumeric(part) {
			parts[i] = "{id}"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	return s[8] == '-' && s[13] == '-' && s[18] == '-' && s[23] == '-'
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

func setRateLimitHeaders(
	w http.ResponseWriter,
	res *redis_rate.Result,
	limit redis_rate.Limit,
) {
	h := w.Header()

	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(
		time.Now().Add(res.ResetAfter).Unix(), 10))
	h.Set("RateLimit-Policy", fmt.Sprintf(`%d;w=%d`, limit.Rate, int(limit.Period.Seconds())))
	h.Set("RateLimit", fmt.Sprintf(`%d;t=%d`, res.Remaining, int(res.ResetAfter.Seconds())))
}

func writeRateLimitExceeded(w http.ResponseWriter, res *redis_rate.Result) {
	retryAfter := max(int(res.RetryAfter.Seconds()), 1)

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	core.JSON(w, http.StatusTooManyRequests, core.ErrorResponse{
		Error: fmt.Sprintf("rate limit exceeded, retry after %d seconds", retryAfter),
		Code:  "RATE_LIMITED",
	})
}

const (
	localLimiterSize = 10_000
	localLimiterTTL  = 10 * time.Minute
)

// localLimiter holds one token bucket per key and limit. Idle buckets age
// out of the LRU, so no sweeper goroutine is needed.
type localLimiter struct {
	buckets *lru.LRU[string, *rate.Limiter]
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{
		buckets: lru.NewLRU[string, *rate.Limiter](localLimiterSize, nil, localLimiterTTL),
	}
}

func (l *localLimiter) allow(
	key string,
	limit redis_rate.Limit,
) (*redis_rate.Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil, fmt.Errorf("invalid limit %d/%s", limit.Rate, limit.Period)
	}

	perSecond := float64(limit.Rate) / limit.Period.Seconds()
	interval := time.Duration(float64(time.Second) / perSecond)

	// a plan change yields a fresh bucket instead of reusing the old rate
	bucketKey := fmt.Sprintf("%s|%d/%s/%d", key, limit.Rate, limit.Period, limit.Burst)
	bucket, ok := l.buckets.Get(bucketKey)
	if !ok {
		bucket = rate.NewLimiter(rate.Limit(perSecond), limit.Burst)
		l.buckets.Add(bucketKey, bucket)
	}

	res := &redis_rate.Result{
		Limit:      limit,
		Remaining:  max(int(bucket.Tokens())-1, 0),
		RetryAfter: -1,
		ResetAfter: interval,
	}
	if bucket.Allow() {
		res.Allowed = 1
	} else {
		res.Remaining = 0
		res.RetryAfter = interval
	}
	return res, nil
}

type TierConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// DefaultTiers keys on subscription plan.
var DefaultTiers = map[string]TierConfig{
	"trial":   {RequestsPerMinute: 60, BurstSize: 10},
	"monthly": {RequestsPerMinute: 600, BurstSize: 100},
	"annual":  {RequestsPerMinute: 1200, BurstSize: 200},
}

// PlanLimit maps the caller's plan onto tiers. Unknown plans get the
// trial tier.
func PlanLimit(tiers map[string]TierConfig) LimitFunc {
	return func(r *http.Request) (string, redis_rate.Limit) {
		plan := GetPlan(r.Context())
		tier, ok := tiers[plan]
		if !ok {
			plan = "trial"
			tier = tiers[plan]
		}
		return plan, PerMinute(tier.RequestsPerMinute, tier.BurstSize)
	}
}

// TieredRateLimiter throttles authenticated tenants by plan. It must run
// after Authenticate so the identity is in the context.
func TieredRateLimiter(
	rdb *redis.Client,
	tiers map[string]TierConfig,
	logger *slog.Logger,
) func(http.Handler) http.Handler {
	return NewRateLimiter(rdb, RateLimitConfig{
		LimitFunc: PlanLimit(tiers),
		KeyFunc:   KeyByTenant,
		FailOpen:  true,
		Logger:    logger,
	}).Handler
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: time.Minute}
}

func PerHour(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: time.Hour}
}

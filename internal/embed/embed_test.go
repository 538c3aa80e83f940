// AngelaMos | 2026
// embed_test.go

package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/configurator-api/internal/configurator"
	"github.com/carterperez-dev/templates/configurator-api/internal/core"
	"github.com/carterperez-dev/templates/configurator-api/internal/tenant"
	"github.com/carterperez-dev/templates/configurator-api/internal/usage"
)

const testKey = "pk_live_test"

type tenantsByKey map[string]*tenant.Tenant

func (m tenantsByKey) GetByPublicKey(_ context.Context, key string) (*tenant.Tenant, error) {
	t, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("tenant by public key: %w", core.ErrNotFound)
	}
	return t, nil
}

type countingUsage struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingUsage) Increment(_ context.Context, tenantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[tenantID]++
	return nil
}

func (c *countingUsage) ResetAll(context.Context) (int64, error) { return 0, nil }

func (c *countingUsage) ResetTenant(context.Context, string) error { return nil }

func (c *countingUsage) count(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[id]
}

type stubPublisher struct {
	doc      *configurator.Document
	err      error
	received configurator.SubmitQuoteRequest
}

func (s *stubPublisher) PublishedDocument(
	_ context.Context,
	tenantID, configuratorID string,
) (*configurator.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.doc.Configurator.ID != configuratorID {
		return nil, core.ErrNotFound
	}
	return s.doc, nil
}

func (s *stubPublisher) SubmitQuote(
	_ context.Context,
	tenantID, configuratorID string,
	req configurator.SubmitQuoteRequest,
) (*configurator.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.received = req
	return &configurator.Quote{
		ID:       "q-1",
		Total:    4200,
		Currency: "USD",
		Status:   configurator.QuoteNew,
	}, nil
}

type env struct {
	router    http.Handler
	tenant    *tenant.Tenant
	usage     *countingUsage
	publisher *stubPublisher
}

func newEnv(t *testing.T, domains ...string) *env {
	t.Helper()

	ten := &tenant.Tenant{
		ID:             "tenant-1",
		PublicKey:      testKey,
		AllowedDomains: core.StringList(domains),
		RequestLimit:   1000,
	}
	if ten.AllowedDomains == nil {
		ten.AllowedDomains = core.StringList{}
	}

	e := &env{
		tenant: ten,
		usage:  &countingUsage{},
		publisher: &stubPublisher{doc: &configurator.Document{
			Configurator: configurator.Configurator{ID: "cfg-1", Name: "Bikes", Published: true},
			Categories:   []configurator.CategoryDoc{},
		}},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := NewGate(tenantsByKey{testKey: ten}, usage.NewGovernor(), e.usage, logger)

	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		NewHandler(e.publisher, gate).RegisterRoutes(r, nil)
	})
	e.router = r
	return e
}

func (e *env) do(method, path string, headers map[string]string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body core.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestCheckOrigin(t *testing.T) {
	allowed := []string{"example.com"}

	tests := []struct {
		name    string
		origin  string
		allowed []string
		wantErr bool
	}{
		{"empty list admits anything", "https://evil.com", nil, false},
		{"empty list admits missing origin", "", nil, false},
		{"exact match", "https://example.com", allowed, false},
		{"subdomain", "https://app.example.com", allowed, false},
		{"port ignored", "https://app.example.com:8443", allowed, false},
		{"deep subdomain", "https://a.b.example.com", allowed, false},
		{"other domain", "https://evil.com", allowed, true},
		{"suffix without dot", "https://notexample.com", allowed, true},
		{"domain as subdomain of attacker", "https://example.com.evil.com", allowed, true},
		{"case sensitive", "https://Example.com", allowed, true},
		{"missing origin with list", "", allowed, true},
		{"not a url", "example.com", allowed, true},
		{"referer with path", "https://shop.example.com/products/1?x=y", allowed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckOrigin(tt.origin, tt.allowed)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrOriginNotAllowed)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRequestOriginFallsBackToReferer(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Referer", "https://app.example.com/page")
	assert.Equal(t, "https://app.example.com/page", RequestOrigin(r))

	r.Header.Set("Origin", "https://example.com")
	assert.Equal(t, "https://example.com", RequestOrigin(r))
}

func TestPreflightSkipsAuthentication(t *testing.T) {
	e := newEnv(t, "example.com")

	rec := e.do(http.MethodOptions, "/v1/embed/configurators/cfg-1", map[string]string{
		"Origin":                        "https://app.example.com",
		"Access-Control-Request-Method": "POST",
	}, "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Public-Key")
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
	assert.Zero(t, e.usage.count(e.tenant.ID))
}

func TestPublicKeyRequired(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/v1/embed/configurators/cfg-1", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))

	rec = e.do(http.MethodGet, "/v1/embed/configurators/cfg-1", map[string]string{
		PublicKeyHeader: "pk_unknown",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
}

func TestPublicKeyFromQuery(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/v1/embed/configurators/cfg-1?publicKey="+testKey, nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 1, e.usage.count(e.tenant.ID))
}

func TestAllowedOriginIsEchoedAndMetered(t *testing.T) {
	e := newEnv(t, "example.com")

	rec := e.do(http.MethodGet, "/v1/embed/configurators/cfg-1", map[string]string{
		PublicKeyHeader: testKey,
		"Origin":        "https://app.example.com",
	}, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Empty(t, rec.Header().Get(QuotaWarningHeader))
	assert.Equal(t, "1000", rec.Header().Get("X-Quota-Remaining"))
	assert.Equal(t, 1, e.usage.count(e.tenant.ID))

	var body core.SuccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
}

func TestDisallowedOriginIsRejected(t *testing.T) {
	e := newEnv(t, "example.com")

	rec := e.do(http.MethodGet, "/v1/embed/configurators/cfg-1", map[string]string{
		PublicKeyHeader: testKey,
		"Origin":        "https://evil.com",
	}, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "ORIGIN_NOT_ALLOWED", errorCode(t, rec))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotContains(t, rec.Body.String(), "evil.com")
	assert.Zero(t, e.usage.count(e.tenant.ID))
}

func TestMissingOriginWithAllowListIsRejected(t *testing.T) {
	e := newEnv(t, "example.com")

	rec := e.do(http.MethodGet, "/v1/embed/configurators/cfg-1", map[string]string{
		PublicKeyHeader: testKey,
	}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodGet, "/v1/embed/configurators/cfg-1", map[string]string{
		PublicKeyHeader: testKey,
		"Referer":       "https://www.example.com/shop",
	}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOpaqueOriginNeverGetsCredentials(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodOptions, "/v1/embed/configurators/cfg-1", map[string]string{
		"Origin":                        "null",
		"Access-Control-Request-Method": "GET",
	}, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = e.do(http.MethodGet, "/v1/embed/configurators/cfg-1", map[string]string{
		PublicKeyHeader: testKey,
		"Origin":        "null",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	restricted := newEnv(t, "example.com")
	rec = restricted.do(http.MethodGet, "/v1/embed/configurators/cfg-1", map[string]string{
		PublicKeyHeader: testKey,
		"Origin":        "null",
		"Referer":       "https://www.example.com/shop",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestGovernorDecisions(t *testing.T) {
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name     string
		mutate   func(*tenant.Tenant)
		wantCode int
		wantErr  string
		warning  bool
	}{
		{
			name:     "locked",
			mutate:   func(t *tenant.Tenant) { t.LockedUntil = &future; t.MonthlyRequests = 1000 },
			wantCode: http.StatusForbidden,
			wantErr:  "ACCOUNT_LOCKED",
		},
		{
			name:     "quota exhausted",
			mutate:   func(t *tenant.Tenant) { t.MonthlyRequests = 1000 },
			wantCode: http.StatusTooManyRequests,
			wantErr:  "QUOTA_EXCEEDED",
		},
		{
			name:     "near quota",
			mutate:   func(t *tenant.Tenant) { t.MonthlyRequests = 899 },
			wantCode: http.StatusOK,
			warning:  true,
		},
		{
			name:     "unmetered",
			mutate:   func(t *tenant.Tenant) { t.RequestLimit = 0; t.MonthlyRequests = 1 << 20 },
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			tt.mutate(e.tenant)

			rec := e.do(http.MethodGet, "/v1/embed/configurators/cfg-1", map[string]string{
				PublicKeyHeader: testKey,
			}, "")

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, errorCode(t, rec))
				assert.Zero(t, e.usage.count(e.tenant.ID))
				return
			}
			assert.Equal(t, tt.warning, rec.Header().Get(QuotaWarningHeader) == "true")
			assert.Equal(t, 1, e.usage.count(e.tenant.ID))
		})
	}
}

func TestFailedCallIsNotMetered(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/v1/embed/configurators/missing", map[string]string{
		PublicKeyHeader: testKey,
	}, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, e.usage.count(e.tenant.ID))
}

func TestSubmitQuote(t *testing.T) {
	e := newEnv(t)
	headers := map[string]string{PublicKeyHeader: testKey, "Content-Type": "application/json"}

	rec := e.do(http.MethodPost, "/v1/embed/configurators/cfg-1/quotes", headers,
		`{"customer_name":"Ada","customer_email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, e.usage.count(e.tenant.ID))

	rec = e.do(http.MethodPost, "/v1/embed/configurators/cfg-1/quotes", headers,
		`{"customer_name":"Ada","customer_email":"ada@example.com","selected_option_ids":["o1"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"o1"}, e.publisher.received.SelectedOptionIDs)
	assert.Equal(t, 1, e.usage.count(e.tenant.ID))

	var body struct {
		Data QuoteReceipt `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(4200), body.Data.Total)
}

func TestLookupFailureIsInternal(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := NewGate(failingSource{}, usage.NewGovernor(), &countingUsage{}, logger)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(PublicKeyHeader, testKey)
	gate.Handler(http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type failingSource struct{}

func (failingSource) GetByPublicKey(context.Context, string) (*tenant.Tenant, error) {
	return nil, errors.New("connection reset")
}

// AngelaMos | 2026
// response_test.go

package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestJSONErrorMapsSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"locked", fmt.Errorf("session: %w", ErrAccountLocked), http.StatusForbidden, "ACCOUNT_LOCKED"},
		{"cross tenant hidden as not found", fmt.Errorf("guard: %w", ErrOwnershipMismatch), http.StatusNotFound, "NOT_FOUND"},
		{"absent", ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"scope", ErrScopeMismatch, http.StatusForbidden, "FORBIDDEN"},
		{"origin", ErrOriginNotAllowed, http.StatusForbidden, "ORIGIN_NOT_ALLOWED"},
		{"quota", ErrQuotaExceeded, http.StatusTooManyRequests, "QUOTA_EXCEEDED"},
		{"validation", ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conflict", ErrDuplicateKey, http.StatusConflict, "CONFLICT"},
		{"auth required", ErrAuthenticationRequired, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"misconfigured", fmt.Errorf("issue: %w", ErrServerMisconfigured), http.StatusInternalServerError, "SERVER_MISCONFIGURATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			JSONError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestOwnershipAndAbsenceLookIdentical(t *testing.T) {
	a := httptest.NewRecorder()
	JSONError(a, fmt.Errorf("option 7 belongs to tenant x: %w", ErrOwnershipMismatch))
	b := httptest.NewRecorder()
	JSONError(b, fmt.Errorf("option 7: %w", ErrNotFound))

	assert.Equal(t, a.Code, b.Code)
	assert.Equal(t, a.Body.String(), b.Body.String())
}

func TestInternalErrorMessageSuppression(t *testing.T) {
	err := errors.New("pq: relation tenants does not exist")

	SetExposeInternalErrors(false)
	rec := httptest.NewRecorder()
	JSONError(rec, err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeError(t, rec).Error)

	SetExposeInternalErrors(true)
	defer SetExposeInternalErrors(false)
	rec = httptest.NewRecorder()
	JSONError(rec, err)
	assert.Contains(t, decodeError(t, rec).Error, "relation tenants")
}

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	OKWithMessage(rec, map[string]string{"id": "c1"}, "saved")

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "saved", body["message"])
	assert.Equal(t, map[string]any{"id": "c1"}, body["data"])
}

func TestPaginatedTotalPages(t *testing.T) {
	rec := httptest.NewRecorder()
	Paginated(rec, []int{1, 2}, 1, 20, 41)

	var body struct {
		Data PaginatedData `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 3, body.Data.Meta.TotalPages)
}

func TestIsAccessDenial(t *testing.T) {
	assert.True(t, IsAccessDenial(fmt.Errorf("gate: %w", ErrOriginNotAllowed)))
	assert.True(t, IsAccessDenial(ErrQuotaExceeded))
	assert.True(t, IsAccessDenial(ErrOwnershipMismatch))
	assert.False(t, IsAccessDenial(ErrServerMisconfigured))
	assert.False(t, IsAccessDenial(errors.New("connection reset")))
}

func TestSpanHelpersWithoutProvider(t *testing.T) {
	ctx, span := StartTenantSpan(context.Background(), "test", "t1", AttrOrigin.String("https://a.example"))
	defer span.End()

	SetSpanError(ctx, ErrOriginNotAllowed)
	SetSpanError(ctx, nil)
	AddSpanEvent(ctx, "noop")
	assert.Empty(t, TraceIDFromContext(ctx))
}

// AngelaMos | 2026
// guard_test.go

package access

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
	"github.com/carterperez-dev/templates/configurator-api/internal/middleware"
)

type mapResolver map[ResourceRef]Owner

func (m mapResolver) ResolveOwner(_ context.Context, ref ResourceRef) (Owner, error) {
	owner, ok := m[ref]
	if !ok {
		return Owner{}, core.ErrNotFound
	}
	return owner, nil
}

type failingResolver struct{ err error }

func (f failingResolver) ResolveOwner(context.Context, ResourceRef) (Owner, error) {
	return Owner{}, f.err
}

func newTestGuard(t *testing.T, r Resolver) (*Guard, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewGuard(r, logger), &buf
}

var fixtures = mapResolver{
	Configurator("c1"): {TenantID: "tenant-a", ConfiguratorID: "c1"},
	Configurator("c2"): {TenantID: "tenant-a", ConfiguratorID: "c2"},
	Category("cat1"):   {TenantID: "tenant-a", ConfiguratorID: "c1"},
	Option("opt1"):     {TenantID: "tenant-a", ConfiguratorID: "c1"},
	Option("opt2"):     {TenantID: "tenant-a", ConfiguratorID: "c2"},
	Option("optB"):     {TenantID: "tenant-b", ConfiguratorID: "cb"},
	Theme("shared"):    {TenantID: "tenant-a"},
}

func TestAssertOwned(t *testing.T) {
	session := &middleware.Identity{TenantID: "tenant-a", Method: middleware.MethodSession}
	editC1 := &middleware.Identity{
		TenantID:       "tenant-a",
		Method:         middleware.MethodToken,
		Purpose:        "configurator_edit",
		ConfiguratorID: "c1",
	}

	tests := []struct {
		name     string
		identity *middleware.Identity
		ref      ResourceRef
		wantErr  error
	}{
		{"session owns option", session, Option("opt1"), nil},
		{"session owns other configurator", session, Option("opt2"), nil},
		{"session owns tenant theme", session, Theme("shared"), nil},
		{"absent resource", session, Option("nope"), core.ErrNotFound},
		{"foreign resource", session, Option("optB"), core.ErrOwnershipMismatch},
		{"edit token in scope", editC1, Category("cat1"), nil},
		{"edit token on own configurator", editC1, Configurator("c1"), nil},
		{"edit token on sibling configurator", editC1, Option("opt2"), core.ErrScopeMismatch},
		{"edit token on tenant-level theme", editC1, Theme("shared"), core.ErrScopeMismatch},
		{"edit token on foreign resource", editC1, Option("optB"), core.ErrOwnershipMismatch},
		{"no identity", nil, Option("opt1"), core.ErrAuthenticationRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGuard(t, fixtures)
			owner, err := g.AssertOwned(context.Background(), tt.identity, tt.ref)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, fixtures[tt.ref], owner)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAssertOwnedAuditLogsBothTenants(t *testing.T) {
	g, buf := newTestGuard(t, fixtures)
	identity := &middleware.Identity{TenantID: "tenant-a", Method: middleware.MethodAPIKey}

	_, err := g.AssertOwned(context.Background(), identity, Option("optB"))
	require.ErrorIs(t, err, core.ErrOwnershipMismatch)

	logged := buf.String()
	assert.Contains(t, logged, `"caller_tenant_id":"tenant-a"`)
	assert.Contains(t, logged, `"owner_tenant_id":"tenant-b"`)
	assert.Contains(t, logged, `"level":"WARN"`)
}

func TestAssertOwnedAbsentLogsAtDebug(t *testing.T) {
	g, buf := newTestGuard(t, fixtures)
	identity := &middleware.Identity{TenantID: "tenant-a"}

	_, err := g.AssertOwned(context.Background(), identity, Quote("missing"))
	require.ErrorIs(t, err, core.ErrNotFound)
	assert.NotErrorIs(t, err, core.ErrOwnershipMismatch)
	assert.Contains(t, buf.String(), `"level":"DEBUG"`)
}

func TestAssertOwnedPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection refused")
	g, _ := newTestGuard(t, failingResolver{err: boom})

	_, err := g.AssertOwned(context.Background(), &middleware.Identity{TenantID: "t"}, Option("x"))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, core.ErrNotFound)
}

func TestAssertTenantWide(t *testing.T) {
	g, _ := newTestGuard(t, fixtures)

	assert.NoError(t, g.AssertTenantWide(&middleware.Identity{TenantID: "t"}))
	assert.ErrorIs(t,
		g.AssertTenantWide(&middleware.Identity{TenantID: "t", ConfiguratorID: "c1"}),
		core.ErrScopeMismatch,
	)
	assert.ErrorIs(t, g.AssertTenantWide(nil), core.ErrAuthenticationRequired)
}

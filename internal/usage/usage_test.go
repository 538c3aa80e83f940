// AngelaMos | 2026
// usage_test.go

package usage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestGovernor() *Governor {
	return NewGovernorWithClock(func() time.Time { return fixedNow })
}

func ptr(t time.Time) *time.Time { return &t }

func TestAdmit(t *testing.T) {
	tests := []struct {
		name      string
		snap      Snapshot
		wantErr   error
		nearQuota bool
		remaining int
	}{
		{
			name:    "at quota",
			snap:    Snapshot{TenantID: "a", MonthlyRequests: 100, RequestLimit: 100},
			wantErr: core.ErrQuotaExceeded,
		},
		{
			name:    "over quota",
			snap:    Snapshot{TenantID: "a", MonthlyRequests: 150, RequestLimit: 100},
			wantErr: core.ErrQuotaExceeded,
		},
		{
			name:      "89 of 100 admitted and flagged",
			snap:      Snapshot{TenantID: "a", MonthlyRequests: 89, RequestLimit: 100},
			nearQuota: true,
			remaining: 11,
		},
		{
			name:      "88 of 100 not flagged",
			snap:      Snapshot{TenantID: "a", MonthlyRequests: 88, RequestLimit: 100},
			remaining: 12,
		},
		{
			name:      "unmetered",
			snap:      Snapshot{TenantID: "a", MonthlyRequests: 1_000_000, RequestLimit: 0},
			remaining: Unmetered,
		},
		{
			name: "lock takes precedence over quota",
			snap: Snapshot{
				TenantID:        "a",
				MonthlyRequests: 100,
				RequestLimit:    100,
				LockedUntil:     ptr(fixedNow.Add(time.Minute)),
			},
			wantErr: core.ErrAccountLocked,
		},
		{
			name: "expired lock is ignored",
			snap: Snapshot{
				TenantID:        "a",
				MonthlyRequests: 1,
				RequestLimit:    100,
				LockedUntil:     ptr(fixedNow.Add(-time.Second)),
			},
			remaining: 99,
		},
	}

	g := newTestGovernor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := g.Admit(tt.snap)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.nearQuota, d.NearQuota)
			assert.Equal(t, tt.remaining, d.Remaining)
		})
	}
}

func TestCheckLockIndependentOfQuota(t *testing.T) {
	g := newTestGovernor()
	snap := Snapshot{TenantID: "a", LockedUntil: ptr(fixedNow.Add(time.Hour))}

	assert.ErrorIs(t, g.CheckLock(snap), core.ErrAccountLocked)
	assert.NoError(t, g.CheckQuota(snap))
}

func TestNearQuota(t *testing.T) {
	assert.True(t, NearQuota(89, 100))
	assert.True(t, NearQuota(99, 100))
	assert.False(t, NearQuota(10, 100))
	assert.False(t, NearQuota(5, 0))
	assert.True(t, NearQuota(8, 10))
}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestRepositoryIncrement(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRepository(db)

	mock.ExpectExec(`UPDATE tenants\s+SET monthly_requests = monthly_requests \+ 1`).
		WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Increment(context.Background(), "t-1"))

	mock.ExpectExec(`UPDATE tenants`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Increment(context.Background(), "missing"), core.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulerRunOnce(t *testing.T) {
	db, mock := newMock(t)
	s := NewScheduler(NewRepository(db), slog.New(slog.NewTextHandler(io.Discard, nil)))

	mock.ExpectExec(`SET monthly_requests = 0`).
		WillReturnResult(sqlmock.NewResult(0, 7))

	rows, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	db, _ := newMock(t)
	s := NewScheduler(NewRepository(db), slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Error(t, s.Start("not a cron line"))
}

func TestSchedulerEvery(t *testing.T) {
	db, _ := newMock(t)
	s := NewScheduler(NewRepository(db), slog.New(slog.NewTextHandler(io.Discard, nil)))
	noop := func(context.Context) (int64, error) { return 0, nil }

	require.NoError(t, s.Every("session_purge", "@hourly", noop))
	require.NoError(t, s.Every("disabled", "", noop))
	assert.Error(t, s.Every("broken", "every tuesday", noop))
	assert.Len(t, s.cron.Entries(), 1)
}

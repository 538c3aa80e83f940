// AngelaMos | 2026
// governor.go

package usage

import (
	"fmt"
	"time"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

// Snapshot is the slice of tenant state the governor decides on.
type Snapshot struct {
	TenantID        string
	MonthlyRequests int
	RequestLimit    int
	LockedUntil     *time.Time
}

type Decision struct {
	NearQuota bool
	Remaining int
}

// Unmetered is reported as Remaining for tenants without a limit.
const Unmetered = -1

// Governor admits or denies metered calls. It only decides; the caller
// increments usage after the governed call succeeds.
type Governor struct {
	now func() time.Time
}

func NewGovernor() *Governor {
	return &Governor{now: time.Now}
}

func NewGovernorWithClock(now func() time.Time) *Governor {
	return &Governor{now: now}
}

func (g *Governor) CheckLock(s Snapshot) error {
	if s.LockedUntil != nil && s.LockedUntil.After(g.now()) {
		return fmt.Errorf(
			"tenant %s locked until %s: %w",
			s.TenantID,
			s.LockedUntil.Format(time.RFC3339),
			core.ErrAccountLocked,
		)
	}
	return nil
}

// CheckQuota denies once usage reaches the limit. A limit of zero or less
// means the tenant is not metered.
func (g *Governor) CheckQuota(s Snapshot) error {
	if s.RequestLimit > 0 && s.MonthlyRequests >= s.RequestLimit {
		return fmt.Errorf(
			"tenant %s used %d of %d: %w",
			s.TenantID,
			s.MonthlyRequests,
			s.RequestLimit,
			core.ErrQuotaExceeded,
		)
	}
	return nil
}

// Admit applies the lock check before the quota check so a locked tenant
// always sees AccountLocked.
func (g *Governor) Admit(s Snapshot) (Decision, error) {
	if err := g.CheckLock(s); err != nil {
		return Decision{}, err
	}

	if err := g.CheckQuota(s); err != nil {
		return Decision{}, err
	}

	if s.RequestLimit <= 0 {
		return Decision{Remaining: Unmetered}, nil
	}

	return Decision{
		NearQuota: NearQuota(s.MonthlyRequests, s.RequestLimit),
		Remaining: s.RequestLimit - s.MonthlyRequests,
	}, nil
}

// NearQuota reports whether admitting one more call puts usage at or above
// 90% of limit.
func NearQuota(used, limit int) bool {
	if limit <= 0 {
		return false
	}
	return (used+1)*10 >= limit*9
}

package lease

import (
	"context"
	"time"

	"github.com/lysyi3m/job-agent/app/database"
)

// ScrapeLeaseName guards the job scrape against overlapping runs.
const ScrapeLeaseName = "job-scrape"

// Locker hands out named, expiring leases. A lease is held by one holder at a
// time until it is released or its TTL passes.
type Locker interface {
	Acquire(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, holder string) error
}

var (
	_ Locker = (*database.LeaseRepo)(nil)
	_ Locker = (*RedisLocker)(nil)
)

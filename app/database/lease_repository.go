package database

import (
	"context"
	"fmt"
	"time"
)

var _ LeaseRepository = (*LeaseRepo)(nil)

// LeaseRepo implements named, expiring locks on top of the task_leases table.
type LeaseRepo struct {
	db  *DB
	now func() time.Time
}

func NewLeaseRepository(db *DB) *LeaseRepo {
	return &LeaseRepo{db: db, now: time.Now}
}

// Acquire takes the lease if it is free, expired, or already held by the same
// holder, extending it by ttl. It reports false when someone else holds it.
func (r *LeaseRepo) Acquire(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	now := r.now()
	expiresAt := now.Add(ttl).Unix()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO task_leases (name, holder, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			holder = excluded.holder,
			expires_at = excluded.expires_at
		WHERE task_leases.expires_at <= ? OR task_leases.holder = excluded.holder
	`), name, holder, expiresAt, now.Unix())
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return n == 1, nil
}

func (r *LeaseRepo) Release(ctx context.Context, name, holder string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM task_leases WHERE name = ? AND holder = ?`), name, holder)
	if err != nil {
		return fmt.Errorf("failed to release lease %s: %w", name, err)
	}
	return nil
}

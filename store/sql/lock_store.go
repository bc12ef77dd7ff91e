package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-payments/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DrainLockStore hands out persisted drain leases. A lease is a single row
// keyed by lock name; whoever inserts the row or steals an expired one owns
// the drain until the ttl elapses or the handle is released. Ownership is
// tracked by an opaque token so a release cannot clear somebody else's lease.
type DrainLockStore struct {
	db *bun.DB

	// Now is injectable for expiry tests.
	Now func() time.Time
}

func NewDrainLockStore(db *bun.DB) (*DrainLockStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &DrainLockStore{
		db: db,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *DrainLockStore) Acquire(ctx context.Context, name string, ttl time.Duration) (core.LockHandle, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, fmt.Errorf("sqlstore: drain lock store is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, fmt.Errorf("sqlstore: lock name is required")
	}
	if ttl <= 0 {
		return nil, false, fmt.Errorf("sqlstore: lock ttl must be positive")
	}

	now := s.now()
	owner := uuid.NewString()
	record := &drainLockRecord{
		Name:      name,
		Owner:     owner,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	_, err := s.db.NewInsert().Model(record).Exec(ctx)
	if err == nil {
		return &drainLockHandle{store: s, name: name, owner: owner}, true, nil
	}
	if !isUniqueViolation(err) {
		return nil, false, err
	}

	// The row exists. Steal it only if the current lease has expired; a
	// losing race leaves zero rows affected.
	result, err := s.db.NewUpdate().
		Model((*drainLockRecord)(nil)).
		Set("owner = ?", owner).
		Set("expires_at = ?", now.Add(ttl)).
		Where("?TableAlias.name = ?", name).
		Where("?TableAlias.expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return nil, false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if affected == 0 {
		return nil, false, nil
	}
	return &drainLockHandle{store: s, name: name, owner: owner}, true, nil
}

func (s *DrainLockStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

type drainLockHandle struct {
	store *DrainLockStore
	name  string
	owner string
}

func (h *drainLockHandle) Release(ctx context.Context) error {
	if h == nil || h.store == nil || h.store.db == nil {
		return fmt.Errorf("sqlstore: drain lock handle is not configured")
	}
	_, err := h.store.db.NewDelete().
		Model((*drainLockRecord)(nil)).
		Where("?TableAlias.name = ?", h.name).
		Where("?TableAlias.owner = ?", h.owner).
		Exec(ctx)
	return err
}

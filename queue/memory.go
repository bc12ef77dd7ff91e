package queue

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-payments/core"
)

// MemoryBatchStore is an in-process batch store for tests and single-node
// deployments. Insertion order is preserved through a monotonic sequence.
type MemoryBatchStore struct {
	mu      sync.Mutex
	seq     int
	batches map[string]memoryBatch
}

type memoryBatch struct {
	seq   int
	items []core.QueueItem
}

func NewMemoryBatchStore() *MemoryBatchStore {
	return &MemoryBatchStore{batches: map[string]memoryBatch{}}
}

func (s *MemoryBatchStore) SaveBatch(_ context.Context, key string, items []core.QueueItem) error {
	if s == nil {
		return fmt.Errorf("queue: memory batch store is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("queue: batch key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.batches[key]; exists {
		return fmt.Errorf("queue: batch key already exists: %s", key)
	}
	s.seq++
	s.batches[key] = memoryBatch{
		seq:   s.seq,
		items: append([]core.QueueItem(nil), items...),
	}
	return nil
}

func (s *MemoryBatchStore) ListBatches(_ context.Context, prefix string) ([]core.Batch, error) {
	if s == nil {
		return nil, fmt.Errorf("queue: memory batch store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	type keyed struct {
		seq   int
		batch core.Batch
	}
	matched := make([]keyed, 0, len(s.batches))
	for key, entry := range s.batches {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		matched = append(matched, keyed{
			seq: entry.seq,
			batch: core.Batch{
				Key:   key,
				Items: append([]core.QueueItem(nil), entry.items...),
			},
		})
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].seq < matched[j].seq
	})

	batches := make([]core.Batch, 0, len(matched))
	for _, entry := range matched {
		batches = append(batches, entry.batch)
	}
	return batches, nil
}

func (s *MemoryBatchStore) UpdateBatch(_ context.Context, key string, items []core.QueueItem) error {
	if s == nil {
		return fmt.Errorf("queue: memory batch store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, exists := s.batches[key]
	if !exists {
		return fmt.Errorf("queue: batch not found: %s", key)
	}
	entry.items = append([]core.QueueItem(nil), items...)
	s.batches[key] = entry
	return nil
}

func (s *MemoryBatchStore) DeleteBatch(_ context.Context, key string) error {
	if s == nil {
		return fmt.Errorf("queue: memory batch store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.batches, key)
	return nil
}

// MemoryDrainLock is an in-process lease for tests and single-node
// deployments. Expired leases may be stolen.
type MemoryDrainLock struct {
	mu     sync.Mutex
	leases map[string]time.Time
	Now    func() time.Time
}

func NewMemoryDrainLock() *MemoryDrainLock {
	return &MemoryDrainLock{
		leases: map[string]time.Time{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (l *MemoryDrainLock) Acquire(_ context.Context, name string, ttl time.Duration) (core.LockHandle, bool, error) {
	if l == nil {
		return nil, false, fmt.Errorf("queue: memory drain lock is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, fmt.Errorf("queue: lock name is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if expiresAt, held := l.leases[name]; held && now.Before(expiresAt) {
		return nil, false, nil
	}
	l.leases[name] = now.Add(ttl)
	return &memoryLockHandle{lock: l, name: name}, true, nil
}

func (l *MemoryDrainLock) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

type memoryLockHandle struct {
	lock *MemoryDrainLock
	name string
}

func (h *memoryLockHandle) Release(context.Context) error {
	if h == nil || h.lock == nil {
		return nil
	}
	h.lock.mu.Lock()
	defer h.lock.mu.Unlock()
	delete(h.lock.leases, h.name)
	return nil
}

var (
	_ core.BatchStore = (*MemoryBatchStore)(nil)
	_ core.DrainLock  = (*MemoryDrainLock)(nil)
	_ core.LockHandle = (*memoryLockHandle)(nil)
)

package queue

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-payments/core"
	"github.com/google/uuid"
)

// Queue buffers inbound webhook payloads per process and persists them as
// durable batches. The tenant prefix keeps queues of different deployments
// apart when they share one storage table.
type Queue struct {
	store  core.BatchStore
	tenant string
	name   string
	logger glog.Logger

	mu      sync.Mutex
	pending []core.QueueItem
	order   int
}

func New(store core.BatchStore, cfg core.QueueConfig, logger glog.Logger) (*Queue, error) {
	if store == nil {
		return nil, fmt.Errorf("queue: batch store is required")
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, fmt.Errorf("queue: queue name is required")
	}
	tenant := strings.TrimSpace(cfg.Tenant)
	if tenant == "" {
		tenant = "default"
	}
	return &Queue{
		store:  store,
		tenant: tenant,
		name:   name,
		logger: glog.Ensure(logger),
	}, nil
}

// Prefix is the durable key namespace for this queue's batches.
func (q *Queue) Prefix() string {
	if q == nil {
		return ""
	}
	return fmt.Sprintf("%s_%s_batch_", q.tenant, q.name)
}

// LockName identifies this queue's drain lease.
func (q *Queue) LockName() string {
	if q == nil {
		return ""
	}
	return fmt.Sprintf("%s_%s_drain", q.tenant, q.name)
}

// Enqueue appends a payload to the process-local pending buffer. The payload
// is opaque here; its ordering key is extracted at retrieval time.
func (q *Queue) Enqueue(payload map[string]any) {
	if q == nil || payload == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.order++
	q.pending = append(q.pending, core.QueueItem{
		Payload:       copyPayload(payload),
		EnqueuedOrder: q.order,
	})
}

// PendingCount reports buffered items not yet dispatched.
func (q *Queue) PendingCount() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Dispatch persists the pending buffer as one new batch and clears it.
// Returns the batch key, or "" when the buffer was empty.
func (q *Queue) Dispatch(ctx context.Context) (string, error) {
	if q == nil || q.store == nil {
		return "", fmt.Errorf("queue: queue is not configured")
	}
	q.mu.Lock()
	items := q.pending
	q.pending = nil
	q.mu.Unlock()

	if len(items) == 0 {
		return "", nil
	}

	key := q.Prefix() + uuid.NewString()
	if err := q.store.SaveBatch(ctx, key, items); err != nil {
		// Restore the buffer so a later dispatch can retry persisting it.
		q.mu.Lock()
		q.pending = append(items, q.pending...)
		q.mu.Unlock()
		return "", err
	}
	q.logger.Debug("dispatched webhook batch", "key", key, "items", len(items))
	return key, nil
}

// NextBatch returns the oldest pending batch, where "oldest" follows the
// provider-domain sort key: batches order ascending by the smallest
// transaction number found among their items, and the returned batch's items
// are sorted ascending by that key. Items whose payload cannot be parsed key
// as 0 and sort first; this preserves the lenient ordering the provider
// contract relies on and is not an error path.
func (q *Queue) NextBatch(ctx context.Context) (core.Batch, bool, error) {
	if q == nil || q.store == nil {
		return core.Batch{}, false, fmt.Errorf("queue: queue is not configured")
	}
	batches, err := q.store.ListBatches(ctx, q.Prefix())
	if err != nil {
		return core.Batch{}, false, err
	}
	if len(batches) == 0 {
		return core.Batch{}, false, nil
	}

	sort.SliceStable(batches, func(i, j int) bool {
		return batchSortKey(batches[i]) < batchSortKey(batches[j])
	})

	batch := batches[0]
	items := append([]core.QueueItem(nil), batch.Items...)
	sort.SliceStable(items, func(i, j int) bool {
		return itemSortKey(items[i]) < itemSortKey(items[j])
	})
	batch.Items = items
	return batch, true, nil
}

// UpdateBatch rewrites a claimed batch with its retained items.
func (q *Queue) UpdateBatch(ctx context.Context, key string, items []core.QueueItem) error {
	if q == nil || q.store == nil {
		return fmt.Errorf("queue: queue is not configured")
	}
	return q.store.UpdateBatch(ctx, key, items)
}

// DeleteBatch removes a fully processed batch from durable storage.
func (q *Queue) DeleteBatch(ctx context.Context, key string) error {
	if q == nil || q.store == nil {
		return fmt.Errorf("queue: queue is not configured")
	}
	return q.store.DeleteBatch(ctx, key)
}

func itemSortKey(item core.QueueItem) int64 {
	raw, ok := item.Payload["webhook_data"].(string)
	if !ok {
		return 0
	}
	return core.SortKey(raw)
}

func batchSortKey(batch core.Batch) int64 {
	if len(batch.Items) == 0 {
		return 0
	}
	min := itemSortKey(batch.Items[0])
	for _, item := range batch.Items[1:] {
		if key := itemSortKey(item); key < min {
			min = key
		}
	}
	return min
}

func copyPayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = value
	}
	return out
}

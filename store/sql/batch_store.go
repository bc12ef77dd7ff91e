package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-payments/core"
	"github.com/uptrace/bun"
)

// BatchStore persists queue batches as key-addressed rows. Rows are listed in
// insertion order; the queue applies its own per-item ordering on top.
type BatchStore struct {
	db *bun.DB
}

func NewBatchStore(db *bun.DB) (*BatchStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &BatchStore{db: db}, nil
}

func (s *BatchStore) SaveBatch(ctx context.Context, key string, items []core.QueueItem) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: batch store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("sqlstore: batch key is required")
	}
	if len(items) == 0 {
		return fmt.Errorf("sqlstore: batch items are required")
	}
	payload, err := encodeBatchItems(items)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	record := &queueBatchRecord{
		Key:       key,
		Items:     payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.NewInsert().Model(record).Exec(ctx)
	return err
}

func (s *BatchStore) ListBatches(ctx context.Context, prefix string) ([]core.Batch, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: batch store is not configured")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("sqlstore: batch prefix is required")
	}

	var records []queueBatchRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		OrderExpr("?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	batches := make([]core.Batch, 0, len(records))
	for _, record := range records {
		items, decodeErr := decodeBatchItems(record.Items)
		if decodeErr != nil {
			return nil, fmt.Errorf("sqlstore: decode batch %s: %w", record.Key, decodeErr)
		}
		batches = append(batches, core.Batch{Key: record.Key, Items: items})
	}
	return batches, nil
}

func (s *BatchStore) UpdateBatch(ctx context.Context, key string, items []core.QueueItem) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: batch store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("sqlstore: batch key is required")
	}
	payload, err := encodeBatchItems(items)
	if err != nil {
		return err
	}

	result, err := s.db.NewUpdate().
		Model((*queueBatchRecord)(nil)).
		Set("items = ?", payload).
		Set("updated_at = ?", time.Now().UTC()).
		Where("?TableAlias.key = ?", key).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("sqlstore: batch %s not found", key)
	}
	return nil
}

func (s *BatchStore) DeleteBatch(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: batch store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("sqlstore: batch key is required")
	}
	_, err := s.db.NewDelete().
		Model((*queueBatchRecord)(nil)).
		Where("?TableAlias.key = ?", key).
		Exec(ctx)
	return err
}

type storedQueueItem struct {
	Payload       map[string]any `json:"payload"`
	EnqueuedOrder int            `json:"enqueued_order"`
}

func encodeBatchItems(items []core.QueueItem) ([]byte, error) {
	stored := make([]storedQueueItem, 0, len(items))
	for _, item := range items {
		stored = append(stored, storedQueueItem{
			Payload:       item.Payload,
			EnqueuedOrder: item.EnqueuedOrder,
		})
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: encode batch items: %w", err)
	}
	return payload, nil
}

func decodeBatchItems(payload []byte) ([]core.QueueItem, error) {
	var stored []storedQueueItem
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}
	items := make([]core.QueueItem, 0, len(stored))
	for _, entry := range stored {
		items = append(items, core.QueueItem{
			Payload:       entry.Payload,
			EnqueuedOrder: entry.EnqueuedOrder,
		})
	}
	return items, nil
}

// escapeLike neutralizes LIKE wildcards in a literal prefix. Queue prefixes
// contain underscores, which LIKE would otherwise treat as a one-character
// wildcard across tenants.
func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

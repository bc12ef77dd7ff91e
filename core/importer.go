package core

import (
	"context"
	"fmt"
	"strconv"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Importer reconciles provider-reported transactions into the ledger.
type Importer struct {
	store   TransactionStore
	logger  glog.Logger
	metrics MetricsRecorder
	Now     func() time.Time
}

func NewImporter(store TransactionStore, logger glog.Logger) (*Importer, error) {
	if store == nil {
		return nil, fmt.Errorf("core: transaction store is required")
	}
	return &Importer{
		store:  store,
		logger: glog.Ensure(logger),
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// Import upserts one raw provider transaction: a row keyed by the same
// external id is updated in place, otherwise a new row is inserted. Returns
// the ledger row id either way.
func (i *Importer) Import(ctx context.Context, raw map[string]any, orderID int64) (int64, error) {
	if i == nil || i.store == nil {
		return 0, fmt.Errorf("core: importer is not configured")
	}
	tx, err := NormalizeTransaction(raw, orderID)
	if err != nil {
		return 0, err
	}

	existing, found, err := i.store.GetBy(ctx, TransactionFieldExternalID, tx.ExternalID)
	if err != nil {
		return 0, err
	}
	if found {
		if err := i.store.Update(ctx, existing.TransactionID, tx); err != nil {
			return 0, err
		}
		return existing.TransactionID, nil
	}

	id, err := i.store.Add(ctx, tx)
	if err == nil {
		return id, nil
	}

	// A concurrent import of the same external id can win the insert race;
	// fall back to update-in-place, last writer wins.
	existing, found, getErr := i.store.GetBy(ctx, TransactionFieldExternalID, tx.ExternalID)
	if getErr != nil || !found {
		return 0, err
	}
	if updateErr := i.store.Update(ctx, existing.TransactionID, tx); updateErr != nil {
		return 0, updateErr
	}
	return existing.TransactionID, nil
}

// ImportTransactions applies Import to each entry. A failed entry is logged
// and recorded as 0 at its index; the remaining entries still import. The
// result always has one element per input.
func (i *Importer) ImportTransactions(ctx context.Context, raws []map[string]any, orderID int64) []int64 {
	results := make([]int64, len(raws))
	var imported, failed int64
	for index, raw := range raws {
		id, err := i.Import(ctx, raw, orderID)
		if err != nil {
			failed++
			i.logWarn("transaction import failed", map[string]any{
				"order_id": orderID,
				"index":    index,
				"error":    err.Error(),
			})
			continue
		}
		imported++
		results[index] = id
	}

	tags := map[string]string{"order_id": strconv.FormatInt(orderID, 10)}
	i.recordCounter(ctx, "payments.transactions.imported.total", imported, tags)
	i.recordCounter(ctx, "payments.transactions.import_failures.total", failed, tags)
	return results
}

func (i *Importer) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if i == nil || i.metrics == nil || value == 0 {
		return
	}
	i.metrics.IncCounter(ctx, name, value, tags)
}

func (i *Importer) logWarn(message string, fields map[string]any) {
	if i == nil || i.logger == nil {
		return
	}
	logger := i.logger
	if fieldsLogger, ok := logger.(glog.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(fields)
	}
	logger.Warn(message, flattenFields(fields)...)
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}
	return args
}

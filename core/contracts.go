package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// TransactionStore is the persisted transaction ledger.
type TransactionStore interface {
	Add(ctx context.Context, tx Transaction) (int64, error)
	Update(ctx context.Context, transactionID int64, tx Transaction) error
	Delete(ctx context.Context, transactionID int64) error
	Get(ctx context.Context, transactionID int64) (Transaction, bool, error)
	GetBy(ctx context.Context, field TransactionField, value any) (Transaction, bool, error)
	Select(ctx context.Context, conditions []Condition) ([]Transaction, error)
}

// ProviderClient is the outbound payment-provider collaborator. Request
// performs a REST call against the provider API; ProcessTransaction applies
// a transaction's effect to an order (mark paid, mark refunded). Both are
// black boxes to the reconciliation core. ProcessTransaction must be safe to
// call repeatedly with the same transaction state.
type ProviderClient interface {
	Request(ctx context.Context, method string, path string) (map[string]any, error)
	ProcessTransaction(ctx context.Context, tx Transaction, order Order) error
}

// GatewayRegistry resolves a provider client by payment-method identifier.
type GatewayRegistry interface {
	Gateway(paymentMethodID string) (ProviderClient, bool)
}

// Order is the external order entity: mutable shared state the core may
// transition but does not own.
type Order interface {
	OrderID() int64
}

// OrderResolver looks up local orders from provider payment ids.
type OrderResolver interface {
	OrderIDByPaymentID(ctx context.Context, paymentID string) (int64, bool, error)
	Order(ctx context.Context, orderID int64) (Order, error)
}

// QueueItem is an opaque webhook payload held by the durable queue. The
// ordering key is extracted lazily at batch-retrieval time, never at enqueue.
type QueueItem struct {
	Payload       map[string]any
	EnqueuedOrder int
}

// Batch is the atomic unit claimed from durable storage: visible to at most
// one concurrent drain at a time.
type Batch struct {
	Key   string
	Items []QueueItem
}

// BatchStore persists queue batches as key-prefixed rows.
type BatchStore interface {
	SaveBatch(ctx context.Context, key string, items []QueueItem) error
	ListBatches(ctx context.Context, prefix string) ([]Batch, error)
	UpdateBatch(ctx context.Context, key string, items []QueueItem) error
	DeleteBatch(ctx context.Context, key string) error
}

// LockHandle releases a held drain lease.
type LockHandle interface {
	Release(ctx context.Context) error
}

// DrainLock is a persisted lock/lease preventing concurrent drains of the
// same queue. Acquire returns false without error when the lease is held
// elsewhere; expired leases may be stolen.
type DrainLock interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (LockHandle, bool, error)
}

// JobExecutionMessage is a background job submission routed through an
// external work queue.
type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

// JobNackOptions controls redelivery of a failed job.
type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

// JobEnqueuer submits execution messages to a background work queue.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

// JobDelivery is a claimed background job awaiting ack or nack.
type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

// JobDequeuer claims the next background job.
type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

// JobWorkerEvent mirrors the lifecycle notifications a queue worker emits.
type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// JobWorkerHook observes worker lifecycle events.
type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

// MetricsRecorder mirrors the counters the reconciliation service emits.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// RawConfigLoader supplies configuration values for cfgx resolution.
type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

// ConfigProvider loads typed configuration over defaults.
type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

// OptionsResolver merges defaults, loaded and runtime configuration layers.
type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// StoreProvider exposes the persisted stores a repository factory builds.
type StoreProvider interface {
	TransactionStore() TransactionStore
	BatchStore() BatchStore
	DrainLock() DrainLock
	OrderMappingStore() OrderMappingStore
}

// RepositoryStoreFactory builds stores from a persistence client.
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// OrderMappingStore persists the provider payment-id to local order-id
// mapping written at checkout and read during webhook resolution.
type OrderMappingStore interface {
	SaveMapping(ctx context.Context, paymentID string, orderID int64) error
	OrderIDByPaymentID(ctx context.Context, paymentID string) (int64, bool, error)
}

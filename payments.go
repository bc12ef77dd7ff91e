package payments

import "github.com/goliatone/go-payments/core"

type Config = core.Config

type QueueConfig = core.QueueConfig

type Option = core.Option

type Service = core.Service

type Transaction = core.Transaction
type TransactionField = core.TransactionField
type TransactionNumber = core.TransactionNumber
type WebhookEnvelope = core.WebhookEnvelope
type QueueItem = core.QueueItem
type Batch = core.Batch
type Condition = core.Condition

type TransactionStore = core.TransactionStore
type BatchStore = core.BatchStore
type DrainLock = core.DrainLock
type LockHandle = core.LockHandle
type OrderMappingStore = core.OrderMappingStore
type Order = core.Order
type OrderResolver = core.OrderResolver
type ProviderClient = core.ProviderClient
type GatewayRegistry = core.GatewayRegistry
type JobEnqueuer = core.JobEnqueuer
type JobExecutionMessage = core.JobExecutionMessage
type MetricsRecorder = core.MetricsRecorder
type RepositoryStoreFactory = core.RepositoryStoreFactory
type StoreProvider = core.StoreProvider

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithErrorMapper       = core.WithErrorMapper
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithTransactionStore  = core.WithTransactionStore
	WithBatchStore        = core.WithBatchStore
	WithDrainLock         = core.WithDrainLock
	WithOrderMappingStore = core.WithOrderMappingStore
	WithGatewayRegistry   = core.WithGatewayRegistry
	WithOrderResolver     = core.WithOrderResolver
	WithJobEnqueuer       = core.WithJobEnqueuer
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func NewPaymentGatewayRegistry() *core.PaymentGatewayRegistry {
	return core.NewPaymentGatewayRegistry()
}

func ParseWebhookData(raw string) (WebhookEnvelope, error) {
	return core.ParseWebhookData(raw)
}

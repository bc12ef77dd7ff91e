package core

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service resolves configuration and owns the reconciliation dependencies:
// the transaction ledger, the importer, and the collaborator handles the
// queue machinery consumes.
type Service struct {
	config          Config
	logger          glog.Logger
	errorMapper     func(error) *goerrors.Error
	metricsRecorder MetricsRecorder
	importer        *Importer

	transactionStore TransactionStore
	batchStore       BatchStore
	drainLock        DrainLock
	orderMappings    OrderMappingStore
	gateways         GatewayRegistry
	orders           OrderResolver
	jobEnqueuer      JobEnqueuer
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("payments", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("payments"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if needsStores(builder) && builder.repositoryFactory != nil {
		storeProvider, buildErr := builder.repositoryFactory.BuildStores(builder.persistenceClient)
		if buildErr != nil {
			return nil, mapBuildError(builder.errorMapper, buildErr)
		}
		if storeProvider != nil {
			if builder.transactionStore == nil {
				builder.transactionStore = storeProvider.TransactionStore()
			}
			if builder.batchStore == nil {
				builder.batchStore = storeProvider.BatchStore()
			}
			if builder.drainLock == nil {
				builder.drainLock = storeProvider.DrainLock()
			}
			if builder.orderMappings == nil {
				builder.orderMappings = storeProvider.OrderMappingStore()
			}
		}
	}
	if builder.transactionStore == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: transaction store is required"))
	}

	importer, err := NewImporter(builder.transactionStore, logger)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	importer.metrics = builder.metricsRecorder

	orders := builder.orders
	if orders == nil && builder.orderMappings != nil {
		orders = mappingOnlyOrderResolver{store: builder.orderMappings}
	}

	return &Service{
		config:           finalConfig,
		logger:           logger,
		errorMapper:      builder.errorMapper,
		metricsRecorder:  builder.metricsRecorder,
		importer:         importer,
		transactionStore: builder.transactionStore,
		batchStore:       builder.batchStore,
		drainLock:        builder.drainLock,
		orderMappings:    builder.orderMappings,
		gateways:         builder.gateways,
		orders:           orders,
		jobEnqueuer:      builder.jobEnqueuer,
	}, nil
}

func needsStores(builder serviceBuilder) bool {
	return builder.transactionStore == nil ||
		builder.batchStore == nil ||
		builder.drainLock == nil ||
		builder.orderMappings == nil
}

// ImportTransactions reconciles a fetched provider transaction list into the
// ledger for one order.
func (s *Service) ImportTransactions(ctx context.Context, raws []map[string]any, orderID int64) []int64 {
	if s == nil || s.importer == nil {
		return make([]int64, len(raws))
	}
	return s.importer.ImportTransactions(ctx, raws, orderID)
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Logger() glog.Logger {
	if s == nil {
		return glog.Nop()
	}
	return s.logger
}

func (s *Service) Importer() *Importer {
	if s == nil {
		return nil
	}
	return s.importer
}

func (s *Service) TransactionStore() TransactionStore {
	if s == nil {
		return nil
	}
	return s.transactionStore
}

func (s *Service) BatchStore() BatchStore {
	if s == nil {
		return nil
	}
	return s.batchStore
}

func (s *Service) DrainLock() DrainLock {
	if s == nil {
		return nil
	}
	return s.drainLock
}

func (s *Service) OrderMappingStore() OrderMappingStore {
	if s == nil {
		return nil
	}
	return s.orderMappings
}

func (s *Service) Gateways() GatewayRegistry {
	if s == nil {
		return nil
	}
	return s.gateways
}

func (s *Service) Orders() OrderResolver {
	if s == nil {
		return nil
	}
	return s.orders
}

func (s *Service) JobEnqueuer() JobEnqueuer {
	if s == nil {
		return nil
	}
	return s.jobEnqueuer
}

func (s *Service) MapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	if mapped := s.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}

func mapBuildError(mapper func(error) *goerrors.Error, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	if mapped := mapper(err); mapped != nil {
		return mapped
	}
	return err
}

// mappingOnlyOrderResolver satisfies order-id resolution from the persisted
// payment-id mapping when no full order backend is wired; order entity
// fetches report not-found.
type mappingOnlyOrderResolver struct {
	store OrderMappingStore
}

func (r mappingOnlyOrderResolver) OrderIDByPaymentID(ctx context.Context, paymentID string) (int64, bool, error) {
	if r.store == nil {
		return 0, false, fmt.Errorf("core: order mapping store is not configured")
	}
	return r.store.OrderIDByPaymentID(ctx, paymentID)
}

func (r mappingOnlyOrderResolver) Order(ctx context.Context, orderID int64) (Order, error) {
	return nil, newResolutionError(
		fmt.Sprintf("core: order %d not found", orderID),
		PaymentErrorOrderNotFound,
		map[string]any{"order_id": orderID},
	)
}

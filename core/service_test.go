package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func TestNewService_RequiresTransactionStore(t *testing.T) {
	if _, err := NewService(Config{}); err == nil {
		t.Fatalf("expected missing transaction store error")
	}
}

func TestNewService_ResolvesDefaultsAndDependencies(t *testing.T) {
	svc, err := NewService(Config{}, WithTransactionStore(newImportLedger()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if got := svc.Config().ServiceName; got != "payments" {
		t.Fatalf("expected default service name, got %q", got)
	}
	if got := svc.Config().Queue.Name; got != "payment_webhooks" {
		t.Fatalf("expected default queue name, got %q", got)
	}
	if svc.Logger() == nil {
		t.Fatalf("expected default logger")
	}
	if svc.Importer() == nil {
		t.Fatalf("expected importer to be constructed")
	}
}

func TestNewService_RuntimeConfigOverridesDefaults(t *testing.T) {
	cfg := Config{Queue: QueueConfig{Tenant: "shop-eu", LockTTL: 45 * time.Second}}

	svc, err := NewService(cfg, WithTransactionStore(newImportLedger()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if got := svc.Config().Queue.Tenant; got != "shop-eu" {
		t.Fatalf("expected runtime tenant, got %q", got)
	}
	if got := svc.Config().Queue.LockTTL; got != 45*time.Second {
		t.Fatalf("expected runtime lock ttl, got %v", got)
	}
}

func TestNewService_BuildsMissingStoresFromFactory(t *testing.T) {
	client := &struct{ Name string }{Name: "persistence"}
	provider := &stubStoreProvider{
		transactions: newImportLedger(),
		batches:      &stubBatchStore{},
		lock:         &stubDrainLock{},
		mappings:     &stubMappingStore{},
	}
	factory := &stubStoreFactory{provider: provider}

	svc, err := NewService(Config{},
		WithPersistenceClient(client),
		WithRepositoryFactory(factory),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if factory.calls != 1 {
		t.Fatalf("expected one factory build, got %d", factory.calls)
	}
	if factory.client != client {
		t.Fatalf("expected persistence client to reach the factory")
	}
	if svc.TransactionStore() != provider.transactions {
		t.Fatalf("expected factory transaction store")
	}
	if svc.BatchStore() != provider.batches || svc.DrainLock() != provider.lock {
		t.Fatalf("expected factory queue stores")
	}
	if svc.OrderMappingStore() != provider.mappings {
		t.Fatalf("expected factory order mapping store")
	}
}

func TestNewService_ExplicitStoresSkipFactory(t *testing.T) {
	factory := &stubStoreFactory{err: fmt.Errorf("factory must not run")}

	svc, err := NewService(Config{},
		WithRepositoryFactory(factory),
		WithTransactionStore(newImportLedger()),
		WithBatchStore(&stubBatchStore{}),
		WithDrainLock(&stubDrainLock{}),
		WithOrderMappingStore(&stubMappingStore{}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if factory.calls != 0 {
		t.Fatalf("factory must not build when all stores are wired, got %d calls", factory.calls)
	}
	if svc.BatchStore() == nil {
		t.Fatalf("expected explicit batch store")
	}
}

func TestNewService_MappingStoreBacksOrderResolution(t *testing.T) {
	mappings := &stubMappingStore{mapping: map[string]int64{"P1": 42}}

	svc, err := NewService(Config{},
		WithTransactionStore(newImportLedger()),
		WithOrderMappingStore(mappings),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	resolver := svc.Orders()
	if resolver == nil {
		t.Fatalf("expected mapping-backed order resolver")
	}

	orderID, found, err := resolver.OrderIDByPaymentID(context.Background(), "P1")
	if err != nil || !found || orderID != 42 {
		t.Fatalf("expected mapping lookup P1 -> 42, got %d found=%v err=%v", orderID, found, err)
	}

	if _, err := resolver.Order(context.Background(), 42); err == nil {
		t.Fatalf("mapping-only resolver cannot fetch order entities")
	}
}

func TestServiceForwardsMetricsToRecorder(t *testing.T) {
	recorder := &countingRecorder{}

	svc, err := NewService(Config{},
		WithTransactionStore(newImportLedger()),
		WithMetricsRecorder(recorder),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	svc.RecordCounter(context.Background(), " payments.test.total ", 3, map[string]string{"queue": "q"})
	svc.ObserveHistogram(context.Background(), "payments.test.duration_ms", 12.5, nil)

	if got := recorder.counters["payments.test.total"]; got != 3 {
		t.Fatalf("expected trimmed counter forward, recorded %d", got)
	}
	if got := recorder.histograms["payments.test.duration_ms"]; got != 1 {
		t.Fatalf("expected histogram forward, recorded %d", got)
	}
	if recorder.tags["payments.test.total"]["queue"] != "q" {
		t.Fatalf("expected tags to reach the recorder, got %v", recorder.tags)
	}

	svc.ImportTransactions(context.Background(), []map[string]any{
		{"id": "ext-1", "state": "Completed"},
	}, 42)
	if got := recorder.counters["payments.transactions.imported.total"]; got != 1 {
		t.Fatalf("expected service imports to hit the recorder, got %d", got)
	}

	var nilService *Service
	nilService.RecordCounter(context.Background(), "noop", 1, nil)
	nilService.ObserveHistogram(context.Background(), "noop", 1, nil)
}

func TestServiceMapError(t *testing.T) {
	svc, err := NewService(Config{}, WithTransactionStore(newImportLedger()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	mapped := svc.MapError(fmt.Errorf("core: order 42 not found"))
	var richErr *goerrors.Error
	if !goerrors.As(mapped, &richErr) {
		t.Fatalf("expected structured error, got %T", mapped)
	}
	if richErr.TextCode != PaymentErrorOrderNotFound {
		t.Fatalf("unexpected text code %q", richErr.TextCode)
	}
	if svc.MapError(nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}

type stubStoreFactory struct {
	provider StoreProvider
	err      error
	client   any
	calls    int
}

func (f *stubStoreFactory) BuildStores(persistenceClient any) (StoreProvider, error) {
	f.calls++
	f.client = persistenceClient
	if f.err != nil {
		return nil, f.err
	}
	return f.provider, nil
}

type stubStoreProvider struct {
	transactions TransactionStore
	batches      BatchStore
	lock         DrainLock
	mappings     OrderMappingStore
}

func (p *stubStoreProvider) TransactionStore() TransactionStore   { return p.transactions }
func (p *stubStoreProvider) BatchStore() BatchStore               { return p.batches }
func (p *stubStoreProvider) DrainLock() DrainLock                 { return p.lock }
func (p *stubStoreProvider) OrderMappingStore() OrderMappingStore { return p.mappings }

type stubBatchStore struct{}

func (*stubBatchStore) SaveBatch(context.Context, string, []QueueItem) error { return nil }
func (*stubBatchStore) ListBatches(context.Context, string) ([]Batch, error) { return nil, nil }
func (*stubBatchStore) UpdateBatch(context.Context, string, []QueueItem) error {
	return nil
}
func (*stubBatchStore) DeleteBatch(context.Context, string) error { return nil }

type stubDrainLock struct{}

func (*stubDrainLock) Acquire(context.Context, string, time.Duration) (LockHandle, bool, error) {
	return noopLockHandle{}, true, nil
}

type noopLockHandle struct{}

func (noopLockHandle) Release(context.Context) error { return nil }

type stubMappingStore struct {
	mapping map[string]int64
}

func (s *stubMappingStore) SaveMapping(_ context.Context, paymentID string, orderID int64) error {
	if s.mapping == nil {
		s.mapping = map[string]int64{}
	}
	s.mapping[paymentID] = orderID
	return nil
}

func (s *stubMappingStore) OrderIDByPaymentID(_ context.Context, paymentID string) (int64, bool, error) {
	orderID, ok := s.mapping[paymentID]
	return orderID, ok, nil
}

package sqlstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type stubOrderMappingStore struct {
	mu          sync.Mutex
	mappings    map[string]int64
	lookupCalls int
	saveCalls   int
	lookupErr   error
}

func newStubOrderMappingStore() *stubOrderMappingStore {
	return &stubOrderMappingStore{mappings: map[string]int64{}}
}

func (s *stubOrderMappingStore) SaveMapping(_ context.Context, paymentID string, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	s.mappings[paymentID] = orderID
	return nil
}

func (s *stubOrderMappingStore) OrderIDByPaymentID(_ context.Context, paymentID string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookupCalls++
	if s.lookupErr != nil {
		return 0, false, s.lookupErr
	}
	orderID, found := s.mappings[paymentID]
	return orderID, found, nil
}

func newTestMappingCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func TestCachedOrderMappingStore_LookupMissFetchThenHit(t *testing.T) {
	base := newStubOrderMappingStore()
	base.mappings["P1"] = 42

	store, err := NewCachedOrderMappingStore(base, newTestMappingCacheService(t))
	if err != nil {
		t.Fatalf("new cached order mapping store: %v", err)
	}

	orderID, found, err := store.OrderIDByPaymentID(context.Background(), "P1")
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	if !found || orderID != 42 {
		t.Fatalf("expected mapping P1 -> 42, got %d (found=%v)", orderID, found)
	}
	if base.lookupCalls != 1 {
		t.Fatalf("expected one base lookup, got %d", base.lookupCalls)
	}

	if _, _, err := store.OrderIDByPaymentID(context.Background(), "P1"); err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if base.lookupCalls != 1 {
		t.Fatalf("expected second lookup to be a cache hit, base lookups=%d", base.lookupCalls)
	}
}

func TestCachedOrderMappingStore_SaveInvalidatesCachedKey(t *testing.T) {
	base := newStubOrderMappingStore()
	base.mappings["P2"] = 7

	store, err := NewCachedOrderMappingStore(base, newTestMappingCacheService(t))
	if err != nil {
		t.Fatalf("new cached order mapping store: %v", err)
	}

	if _, _, err := store.OrderIDByPaymentID(context.Background(), "P2"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	if err := store.SaveMapping(context.Background(), "P2", 99); err != nil {
		t.Fatalf("save mapping: %v", err)
	}

	orderID, found, err := store.OrderIDByPaymentID(context.Background(), "P2")
	if err != nil {
		t.Fatalf("lookup after save: %v", err)
	}
	if !found || orderID != 99 {
		t.Fatalf("expected invalidated cache to serve the new mapping, got %d (found=%v)", orderID, found)
	}
	if base.lookupCalls != 2 {
		t.Fatalf("expected a fresh base lookup after invalidation, got %d", base.lookupCalls)
	}
}

func TestCachedOrderMappingStore_NegativeLookupIsCached(t *testing.T) {
	base := newStubOrderMappingStore()

	store, err := NewCachedOrderMappingStore(base, newTestMappingCacheService(t))
	if err != nil {
		t.Fatalf("new cached order mapping store: %v", err)
	}

	if _, found, err := store.OrderIDByPaymentID(context.Background(), "unknown"); err != nil || found {
		t.Fatalf("expected clean miss, got found=%v err=%v", found, err)
	}
	if _, found, err := store.OrderIDByPaymentID(context.Background(), "unknown"); err != nil || found {
		t.Fatalf("expected repeated miss, got found=%v err=%v", found, err)
	}
	if base.lookupCalls != 1 {
		t.Fatalf("expected the miss to be cached, base lookups=%d", base.lookupCalls)
	}
}

func TestOrderMappingCacheKey_EscapesSegments(t *testing.T) {
	key, err := OrderMappingCacheKey("pay/../1")
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	want := fmt.Sprintf("%s::%s", orderMappingCacheKeyPrefix, "pay%2F..%2F1")
	if key != want {
		t.Fatalf("expected %q, got %q", want, key)
	}

	if _, err := OrderMappingCacheKey("  "); err == nil {
		t.Fatal("expected error for blank payment id")
	}
}

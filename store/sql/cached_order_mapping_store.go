package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-payments/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const orderMappingCacheKeyPrefix = "go-payments::order_mapping::v1"

// CachedOrderMappingStore fronts an order mapping store with a read-through
// cache. Webhook bursts for one payment hit the mapping repeatedly; the
// mapping itself changes only when checkout rewrites it, at which point the
// cache entry is dropped.
type CachedOrderMappingStore struct {
	base  core.OrderMappingStore
	cache repositorycache.CacheService
}

func NewCachedOrderMappingStore(
	base core.OrderMappingStore,
	cacheService repositorycache.CacheService,
) (*CachedOrderMappingStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base order mapping store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: order mapping cache service is required")
	}
	return &CachedOrderMappingStore{base: base, cache: cacheService}, nil
}

// OrderMappingCacheKey returns the deterministic cache key for one payment id:
// go-payments::order_mapping::v1::<payment_id> with the id URL-path escaped.
func OrderMappingCacheKey(paymentID string) (string, error) {
	trimmed := strings.TrimSpace(paymentID)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: payment id is required")
	}
	return orderMappingCacheKeyPrefix + "::" + url.PathEscape(trimmed), nil
}

type cachedOrderMapping struct {
	OrderID int64
	Found   bool
}

func (s *CachedOrderMappingStore) SaveMapping(ctx context.Context, paymentID string, orderID int64) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached order mapping store is not configured")
	}
	if err := s.base.SaveMapping(ctx, paymentID, orderID); err != nil {
		return err
	}
	cacheKey, err := OrderMappingCacheKey(paymentID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func (s *CachedOrderMappingStore) OrderIDByPaymentID(ctx context.Context, paymentID string) (int64, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return 0, false, fmt.Errorf("sqlstore: cached order mapping store is not configured")
	}
	cacheKey, err := OrderMappingCacheKey(paymentID)
	if err != nil {
		return 0, false, err
	}

	mapping, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedOrderMapping, error) {
		orderID, found, fetchErr := s.base.OrderIDByPaymentID(ctx, paymentID)
		if fetchErr != nil {
			return cachedOrderMapping{}, fetchErr
		}
		return cachedOrderMapping{OrderID: orderID, Found: found}, nil
	})
	if err != nil {
		return 0, false, err
	}
	return mapping.OrderID, mapping.Found, nil
}

var _ core.OrderMappingStore = (*CachedOrderMappingStore)(nil)

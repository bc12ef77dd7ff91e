package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// PaymentGatewayRegistry maps payment-method identifiers to provider clients.
type PaymentGatewayRegistry struct {
	mu       sync.RWMutex
	gateways map[string]ProviderClient
}

func NewPaymentGatewayRegistry() *PaymentGatewayRegistry {
	return &PaymentGatewayRegistry{gateways: make(map[string]ProviderClient)}
}

func (r *PaymentGatewayRegistry) Register(paymentMethodID string, client ProviderClient) error {
	if r == nil {
		return fmt.Errorf("core: gateway registry is nil")
	}
	if client == nil {
		return fmt.Errorf("core: provider client is nil")
	}
	id := strings.TrimSpace(paymentMethodID)
	if id == "" {
		return fmt.Errorf("core: payment method id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.gateways[id]; exists {
		return fmt.Errorf("core: gateway already registered: %s", id)
	}
	r.gateways[id] = client
	return nil
}

func (r *PaymentGatewayRegistry) Gateway(paymentMethodID string) (ProviderClient, bool) {
	if r == nil {
		return nil, false
	}
	id := strings.TrimSpace(paymentMethodID)
	if id == "" {
		return nil, false
	}
	r.mu.RLock()
	client, ok := r.gateways[id]
	r.mu.RUnlock()
	return client, ok
}

func (r *PaymentGatewayRegistry) MethodIDs() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	ids := make([]string, 0, len(r.gateways))
	for id := range r.gateways {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OrderMappingStore persists the payment-id to order-id association written
// at checkout and consulted during webhook resolution.
type OrderMappingStore struct {
	db   *bun.DB
	repo repository.Repository[*orderMappingRecord]
}

func NewOrderMappingStore(db *bun.DB) (*OrderMappingStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*orderMappingRecord](db, orderMappingHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid order mapping repository wiring: %w", err)
		}
	}
	return &OrderMappingStore{db: db, repo: repo}, nil
}

func (s *OrderMappingStore) SaveMapping(ctx context.Context, paymentID string, orderID int64) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: order mapping store is not configured")
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return fmt.Errorf("sqlstore: payment id is required")
	}
	if orderID <= 0 {
		return fmt.Errorf("sqlstore: order id is required")
	}

	now := time.Now().UTC()
	existing, found, err := s.findByPaymentID(ctx, paymentID)
	if err != nil {
		return err
	}
	if found {
		existing.OrderID = orderID
		existing.UpdatedAt = now
		_, err = s.repo.Update(ctx, existing, repository.UpdateByID(existing.ID))
		return err
	}

	record := &orderMappingRecord{
		ID:        uuid.NewString(),
		PaymentID: paymentID,
		OrderID:   orderID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.repo.Create(ctx, record)
	return err
}

func (s *OrderMappingStore) OrderIDByPaymentID(ctx context.Context, paymentID string) (int64, bool, error) {
	if s == nil || s.repo == nil {
		return 0, false, fmt.Errorf("sqlstore: order mapping store is not configured")
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return 0, false, fmt.Errorf("sqlstore: payment id is required")
	}
	record, found, err := s.findByPaymentID(ctx, paymentID)
	if err != nil || !found {
		return 0, false, err
	}
	return record.OrderID, true, nil
}

func (s *OrderMappingStore) findByPaymentID(ctx context.Context, paymentID string) (*orderMappingRecord, bool, error) {
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("payment_id", "=", paymentID),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	return records[0], true, nil
}

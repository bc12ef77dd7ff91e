package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-payments/core"
	"github.com/uptrace/bun"
)

// TransactionStore persists the transaction ledger in payment_transactions.
// external_id carries a unique constraint; the importer relies on the insert
// failing for a duplicate so it can fall back to an update.
type TransactionStore struct {
	db *bun.DB
}

func NewTransactionStore(db *bun.DB) (*TransactionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &TransactionStore{db: db}, nil
}

func (s *TransactionStore) Add(ctx context.Context, tx core.Transaction) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: transaction store is not configured")
	}
	if strings.TrimSpace(tx.ExternalID) == "" {
		return 0, fmt.Errorf("sqlstore: transaction external id is required")
	}
	record := transactionToRecord(tx)
	record.ID = 0
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return 0, err
	}
	return record.ID, nil
}

func (s *TransactionStore) Update(ctx context.Context, transactionID int64, tx core.Transaction) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: transaction store is not configured")
	}
	if transactionID <= 0 {
		return fmt.Errorf("sqlstore: transaction id is required")
	}
	record := transactionToRecord(tx)
	record.ID = transactionID
	record.UpdatedAt = time.Now().UTC()

	result, err := s.db.NewUpdate().
		Model(record).
		Column(
			"external_id",
			"order_id",
			"type",
			"state",
			"number",
			"amount",
			"vat_amount",
			"description",
			"payee_reference",
			"created",
			"updated",
			"raw_data",
			"updated_at",
		).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("sqlstore: transaction %d not found", transactionID)
	}
	return nil
}

func (s *TransactionStore) Delete(ctx context.Context, transactionID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: transaction store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*paymentTransactionRecord)(nil)).
		Where("?TableAlias.id = ?", transactionID).
		Exec(ctx)
	return err
}

func (s *TransactionStore) Get(ctx context.Context, transactionID int64) (core.Transaction, bool, error) {
	return s.GetBy(ctx, core.TransactionFieldID, transactionID)
}

func (s *TransactionStore) GetBy(ctx context.Context, field core.TransactionField, value any) (core.Transaction, bool, error) {
	if s == nil || s.db == nil {
		return core.Transaction{}, false, fmt.Errorf("sqlstore: transaction store is not configured")
	}
	column, err := transactionColumn(field)
	if err != nil {
		return core.Transaction{}, false, err
	}

	record := &paymentTransactionRecord{}
	err = s.db.NewSelect().
		Model(record).
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		OrderExpr("?TableAlias.id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *TransactionStore) Select(ctx context.Context, conditions []core.Condition) ([]core.Transaction, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: transaction store is not configured")
	}

	query := s.db.NewSelect().Model((*paymentTransactionRecord)(nil))
	for _, condition := range conditions {
		column, err := transactionColumn(condition.Field)
		if err != nil {
			return nil, err
		}
		query = query.Where("?TableAlias.? = ?", bun.Ident(column), condition.Value)
	}

	var records []paymentTransactionRecord
	if err := query.OrderExpr("?TableAlias.id ASC").Scan(ctx, &records); err != nil {
		return nil, err
	}

	out := make([]core.Transaction, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

// transactionColumn maps a ledger field to its column. The field enum is the
// only path into query construction, so arbitrary column names never reach
// the database.
func transactionColumn(field core.TransactionField) (string, error) {
	if !field.Valid() {
		return "", fmt.Errorf("sqlstore: ledger field %q is not permitted", field)
	}
	if field == core.TransactionFieldID {
		return "id", nil
	}
	return field.String(), nil
}

func transactionToRecord(tx core.Transaction) *paymentTransactionRecord {
	return &paymentTransactionRecord{
		ID:             tx.TransactionID,
		ExternalID:     strings.TrimSpace(tx.ExternalID),
		OrderID:        tx.OrderID,
		Type:           tx.Type,
		State:          tx.State,
		Number:         tx.Number,
		Amount:         tx.Amount,
		VATAmount:      tx.VATAmount,
		Description:    tx.Description,
		PayeeReference: tx.PayeeReference,
		Created:        tx.Created,
		Updated:        tx.Updated,
		RawData:        tx.RawData,
	}
}

func (r *paymentTransactionRecord) toDomain() core.Transaction {
	if r == nil {
		return core.Transaction{}
	}
	return core.Transaction{
		TransactionID:  r.ID,
		ExternalID:     r.ExternalID,
		OrderID:        r.OrderID,
		Type:           r.Type,
		State:          r.State,
		Number:         r.Number,
		Amount:         r.Amount,
		VATAmount:      r.VATAmount,
		Description:    r.Description,
		PayeeReference: r.PayeeReference,
		Created:        r.Created,
		Updated:        r.Updated,
		RawData:        r.RawData,
	}
}

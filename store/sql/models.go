package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type paymentTransactionRecord struct {
	bun.BaseModel `bun:"table:payment_transactions,alias:pt"`

	ID             int64     `bun:"id,pk,autoincrement"`
	ExternalID     string    `bun:"external_id,notnull"`
	OrderID        int64     `bun:"order_id,notnull"`
	Type           string    `bun:"type"`
	State          string    `bun:"state"`
	Number         string    `bun:"number"`
	Amount         int64     `bun:"amount,notnull"`
	VATAmount      int64     `bun:"vat_amount,notnull"`
	Description    string    `bun:"description"`
	PayeeReference string    `bun:"payee_reference"`
	Created        time.Time `bun:"created,nullzero"`
	Updated        time.Time `bun:"updated,nullzero"`
	RawData        []byte    `bun:"raw_data"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type queueBatchRecord struct {
	bun.BaseModel `bun:"table:payment_queue_batches,alias:pqb"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Key       string    `bun:"key,notnull"`
	Items     []byte    `bun:"items,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type drainLockRecord struct {
	bun.BaseModel `bun:"table:payment_drain_locks,alias:pdl"`

	Name      string    `bun:"name,pk"`
	Owner     string    `bun:"owner,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type orderMappingRecord struct {
	bun.BaseModel `bun:"table:payment_order_mappings,alias:pom"`

	ID        string    `bun:"id,pk"`
	PaymentID string    `bun:"payment_id,notnull"`
	OrderID   int64     `bun:"order_id,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-payments/core"
)

const (
	TypeEnqueueWebhook     = "payments.command.webhook.enqueue"
	TypeDispatchBatches    = "payments.command.queue.dispatch"
	TypeDrainQueue         = "payments.command.queue.drain"
	TypeImportTransactions = "payments.command.transactions.import"
)

// EnqueueWebhookMessage stages a provider webhook notification for
// asynchronous processing.
type EnqueueWebhookMessage struct {
	PaymentMethodID string
	WebhookData     string
}

func (EnqueueWebhookMessage) Type() string { return TypeEnqueueWebhook }

func (m EnqueueWebhookMessage) Validate() error {
	if strings.TrimSpace(m.PaymentMethodID) == "" {
		return fmt.Errorf("command: payment method id is required")
	}
	if strings.TrimSpace(m.WebhookData) == "" {
		return fmt.Errorf("command: webhook data is required")
	}
	if _, err := core.ParseWebhookData(m.WebhookData); err != nil {
		return commandWrapValidation(err, "command: webhook data is not valid JSON")
	}
	return nil
}

// DispatchBatchesMessage flushes buffered queue items to durable storage.
type DispatchBatchesMessage struct{}

func (DispatchBatchesMessage) Type() string { return TypeDispatchBatches }

func (DispatchBatchesMessage) Validate() error { return nil }

// DrainQueueMessage runs one drain pass over the persisted queue.
type DrainQueueMessage struct{}

func (DrainQueueMessage) Type() string { return TypeDrainQueue }

func (DrainQueueMessage) Validate() error { return nil }

// ImportTransactionsMessage reconciles a provider transaction list into the
// ledger against one order.
type ImportTransactionsMessage struct {
	OrderID      int64
	Transactions []map[string]any
}

func (ImportTransactionsMessage) Type() string { return TypeImportTransactions }

func (m ImportTransactionsMessage) Validate() error {
	if m.OrderID <= 0 {
		return fmt.Errorf("command: order id is required")
	}
	if len(m.Transactions) == 0 {
		return fmt.Errorf("command: at least one transaction is required")
	}
	return nil
}

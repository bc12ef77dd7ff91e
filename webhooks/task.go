package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-payments/core"
	"github.com/goliatone/go-payments/queue"
)

// SourceLabel tags every log line emitted while processing queue items.
const SourceLabel = "payment_webhooks"

const (
	PayloadKeyPaymentMethodID = "payment_method_id"
	PayloadKeyWebhookData     = "webhook_data"
)

// Task processes one queued webhook item: it validates the payload, resolves
// the gateway and order, fetches the authoritative transaction list from the
// provider, bulk-imports it into the ledger, and applies the referenced
// transaction to the order.
type Task struct {
	gateways core.GatewayRegistry
	orders   core.OrderResolver
	importer *core.Importer
	logger   glog.Logger
}

func NewTask(
	gateways core.GatewayRegistry,
	orders core.OrderResolver,
	importer *core.Importer,
	logger glog.Logger,
) (*Task, error) {
	if gateways == nil {
		return nil, fmt.Errorf("webhooks: gateway registry is required")
	}
	if orders == nil {
		return nil, fmt.Errorf("webhooks: order resolver is required")
	}
	if importer == nil {
		return nil, fmt.Errorf("webhooks: importer is required")
	}
	return &Task{
		gateways: gateways,
		orders:   orders,
		importer: importer,
		logger:   glog.Ensure(logger),
	}, nil
}

// Run drives the item through its state machine to a terminal outcome.
//
// Validation and resolution failures discard the item without contacting the
// provider. Provider fetch failures are logged and also discard the item;
// redelivery from the provider or the fallback drain re-runs the whole pass.
// A failure applying the transaction to the order is logged as a warning and
// swallowed: the ledger import has already committed, and a later
// reconciliation pass recovers the order state.
func (t *Task) Run(ctx context.Context, item core.QueueItem) queue.TaskOutcome {
	if t == nil || t.importer == nil {
		return queue.OutcomeDone
	}
	t.logInfo("start webhook task", map[string]any{"payload": item.Payload})

	rawData, _ := item.Payload[PayloadKeyWebhookData].(string)
	envelope, err := core.ParseWebhookData(rawData)
	if err != nil {
		t.logError("invalid webhook data", map[string]any{"error": err.Error()})
		return queue.OutcomeDone
	}

	methodID, _ := item.Payload[PayloadKeyPaymentMethodID].(string)
	gateway, ok := t.gateways.Gateway(methodID)
	if !ok {
		t.logError("payment gateway not registered", map[string]any{
			"payment_method_id": methodID,
		})
		return queue.OutcomeDone
	}

	paymentID := strings.TrimSpace(envelope.Payment.ID)
	if paymentID == "" {
		t.logError("webhook payment id is missing", nil)
		return queue.OutcomeDone
	}
	number := strings.TrimSpace(envelope.Transaction.Number.String())
	if number == "" {
		t.logError("webhook transaction number is missing", map[string]any{
			"payment_id": paymentID,
		})
		return queue.OutcomeDone
	}

	orderID, found, err := t.orders.OrderIDByPaymentID(ctx, paymentID)
	if err != nil {
		t.logError("order id lookup failed", map[string]any{
			"payment_id": paymentID,
			"error":      err.Error(),
		})
		return queue.OutcomeDone
	}
	if !found {
		t.logError("no order mapped to payment id", map[string]any{
			"payment_id": paymentID,
		})
		return queue.OutcomeDone
	}

	order, err := t.orders.Order(ctx, orderID)
	if err != nil || order == nil {
		t.logError("order not found", map[string]any{
			"order_id":   orderID,
			"payment_id": paymentID,
		})
		return queue.OutcomeDone
	}

	result, err := gateway.Request(ctx, http.MethodGet, paymentID+"/transactions")
	if err != nil {
		t.logError("provider transaction fetch failed", map[string]any{
			"payment_id": paymentID,
			"error":      err.Error(),
		})
		return queue.OutcomeDone
	}

	transactions := transactionList(result)
	t.importer.ImportTransactions(ctx, transactions, orderID)

	raw, found := matchByNumber(transactions, number)
	if !found {
		t.logError("webhook referenced a transaction the provider no longer reports", map[string]any{
			"payment_id": paymentID,
			"number":     number,
		})
		return queue.OutcomeDone
	}

	tx, err := core.NormalizeTransaction(raw, orderID)
	if err != nil {
		t.logError("normalize matched transaction", map[string]any{
			"payment_id": paymentID,
			"number":     number,
			"error":      err.Error(),
		})
		return queue.OutcomeDone
	}

	if err := gateway.ProcessTransaction(ctx, tx, order); err != nil {
		t.logWarn("transaction processing failed", map[string]any{
			"order_id": orderID,
			"number":   number,
			"error":    err.Error(),
		})
	}
	return queue.OutcomeDone
}

func transactionList(result map[string]any) []map[string]any {
	container, ok := result["transactions"].(map[string]any)
	if !ok {
		return nil
	}
	entries, ok := container["transactionList"].([]any)
	if !ok {
		return nil
	}
	list := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		if record, ok := entry.(map[string]any); ok {
			list = append(list, record)
		}
	}
	return list
}

func matchByNumber(transactions []map[string]any, number string) (map[string]any, bool) {
	for _, raw := range transactions {
		var candidate core.TransactionNumber
		switch typed := raw["number"].(type) {
		case string:
			candidate = core.TransactionNumber(strings.TrimSpace(typed))
		case nil:
			continue
		default:
			candidate = core.TransactionNumber(strings.TrimSpace(fmt.Sprint(typed)))
		}
		if candidate.String() == number {
			return raw, true
		}
	}
	return nil, false
}

func (t *Task) logInfo(message string, fields map[string]any) {
	if logger := t.taggedLogger(fields); logger != nil {
		logger.Info(message)
	}
}

func (t *Task) logWarn(message string, fields map[string]any) {
	if logger := t.taggedLogger(fields); logger != nil {
		logger.Warn(message)
	}
}

func (t *Task) logError(message string, fields map[string]any) {
	if logger := t.taggedLogger(fields); logger != nil {
		logger.Error(message)
	}
}

func (t *Task) taggedLogger(fields map[string]any) glog.Logger {
	if t == nil || t.logger == nil {
		return nil
	}
	tagged := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		tagged[key] = value
	}
	tagged["source"] = SourceLabel
	if fieldsLogger, ok := t.logger.(glog.FieldsLogger); ok {
		return fieldsLogger.WithFields(tagged)
	}
	return t.logger
}

var _ queue.TaskFunc = (*Task)(nil).Run

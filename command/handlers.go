package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-payments/queue"
)

// PipelineService is the mutating surface of the webhook pipeline the
// command handlers delegate to.
type PipelineService interface {
	HandleWebhook(ctx context.Context, paymentMethodID string, webhookData string) error
	Dispatch(ctx context.Context) error
	Drain(ctx context.Context) (queue.DrainStats, error)
	ImportTransactions(ctx context.Context, transactions []map[string]any, orderID int64) []int64
}

type EnqueueWebhookCommand struct {
	service PipelineService
}

func NewEnqueueWebhookCommand(service PipelineService) *EnqueueWebhookCommand {
	return &EnqueueWebhookCommand{service: service}
}

func (c *EnqueueWebhookCommand) Execute(ctx context.Context, msg EnqueueWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	return c.service.HandleWebhook(ctx, msg.PaymentMethodID, msg.WebhookData)
}

type DispatchBatchesCommand struct {
	service PipelineService
}

func NewDispatchBatchesCommand(service PipelineService) *DispatchBatchesCommand {
	return &DispatchBatchesCommand{service: service}
}

func (c *DispatchBatchesCommand) Execute(ctx context.Context, msg DispatchBatchesMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: dispatch service is required")
	}
	return c.service.Dispatch(ctx)
}

type DrainQueueCommand struct {
	service PipelineService
}

func NewDrainQueueCommand(service PipelineService) *DrainQueueCommand {
	return &DrainQueueCommand{service: service}
}

func (c *DrainQueueCommand) Execute(ctx context.Context, msg DrainQueueMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: drain service is required")
	}
	stats, err := c.service.Drain(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, stats)
	return nil
}

type ImportTransactionsCommand struct {
	service PipelineService
}

func NewImportTransactionsCommand(service PipelineService) *ImportTransactionsCommand {
	return &ImportTransactionsCommand{service: service}
}

func (c *ImportTransactionsCommand) Execute(ctx context.Context, msg ImportTransactionsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: import service is required")
	}
	ids := c.service.ImportTransactions(ctx, msg.Transactions, msg.OrderID)
	storeResult(ctx, ids)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}

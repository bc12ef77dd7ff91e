package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-payments/adapters/gojob"
	"github.com/goliatone/go-payments/core"
	"github.com/goliatone/go-payments/queue"
	"github.com/goliatone/go-payments/webhooks"
)

// Pipeline wires the resolved service, the durable batch queue, the webhook
// task, and the drain loop into one mutating surface. Webhook ingestion is
// synchronous and cheap; reconciliation happens later inside a drain pass.
type Pipeline struct {
	service *core.Service
	queue   *queue.Queue
	task    *webhooks.Task
	drainer *queue.Drainer
	logger  glog.Logger
}

// NewPipeline resolves the service from cfg and opts and assembles the queue
// machinery around it. The batch store, drain lock, and gateway registry must
// be available, either directly or through a repository factory.
func NewPipeline(cfg Config, opts ...Option) (*Pipeline, error) {
	service, err := core.NewService(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return NewPipelineFromService(service)
}

// NewPipelineFromService assembles the queue machinery around an already
// resolved service.
func NewPipelineFromService(service *core.Service) (*Pipeline, error) {
	if service == nil {
		return nil, fmt.Errorf("payments: service is required")
	}
	if service.BatchStore() == nil {
		return nil, service.MapError(fmt.Errorf("payments: batch store is required"))
	}
	if service.DrainLock() == nil {
		return nil, service.MapError(fmt.Errorf("payments: drain lock is required"))
	}
	if service.Gateways() == nil {
		return nil, service.MapError(fmt.Errorf("payments: gateway registry is required"))
	}
	if service.Orders() == nil {
		return nil, service.MapError(fmt.Errorf("payments: order resolver is required"))
	}

	logger := service.Logger()
	cfg := service.Config()

	q, err := queue.New(service.BatchStore(), cfg.Queue, logger)
	if err != nil {
		return nil, service.MapError(err)
	}
	task, err := webhooks.NewTask(service.Gateways(), service.Orders(), service.Importer(), logger)
	if err != nil {
		return nil, service.MapError(err)
	}
	drainer, err := queue.NewDrainer(q, task.Run, service.DrainLock(), cfg.Queue, logger)
	if err != nil {
		return nil, service.MapError(err)
	}

	return &Pipeline{
		service: service,
		queue:   q,
		task:    task,
		drainer: drainer,
		logger:  logger,
	}, nil
}

// HandleWebhook buffers one inbound webhook, persists the pending buffer,
// and requests an asynchronous drain. The payload blob is opaque at
// ingestion; malformed data is discarded when the item is processed. The
// provider's delivery is acknowledged once the payload is durable.
func (p *Pipeline) HandleWebhook(ctx context.Context, paymentMethodID string, webhookData string) error {
	if p == nil || p.queue == nil {
		return fmt.Errorf("payments: pipeline is not configured")
	}
	methodID := strings.TrimSpace(paymentMethodID)
	if methodID == "" {
		return p.service.MapError(fmt.Errorf("payments: payment method id is required"))
	}

	p.queue.Enqueue(map[string]any{
		webhooks.PayloadKeyPaymentMethodID: methodID,
		webhooks.PayloadKeyWebhookData:     webhookData,
	})
	if err := p.Dispatch(ctx); err != nil {
		return err
	}
	p.requestDrain(ctx)
	return nil
}

// Dispatch persists the pending buffer as a durable batch. A webhook is only
// acknowledged to the provider after its batch is saved.
func (p *Pipeline) Dispatch(ctx context.Context) error {
	if p == nil || p.queue == nil {
		return fmt.Errorf("payments: pipeline is not configured")
	}
	if _, err := p.queue.Dispatch(ctx); err != nil {
		return p.service.MapError(err)
	}
	return nil
}

// Drain claims the queue lease and processes pending batches to completion.
func (p *Pipeline) Drain(ctx context.Context) (queue.DrainStats, error) {
	if p == nil || p.drainer == nil {
		return queue.DrainStats{}, fmt.Errorf("payments: pipeline is not configured")
	}
	startedAt := time.Now()
	stats, err := p.drainer.Drain(ctx)

	status := "success"
	if err != nil {
		status = "failure"
	}
	tags := map[string]string{"queue": p.queue.LockName(), "status": status}
	p.service.RecordCounter(ctx, "payments.queue_drain.total", 1, tags)
	p.service.ObserveHistogram(ctx, "payments.queue_drain.duration_ms",
		float64(time.Since(startedAt).Milliseconds()), tags)
	if stats.Items > 0 {
		p.service.RecordCounter(ctx, "payments.queue_drain.items.total", int64(stats.Items), tags)
	}
	if stats.Retained > 0 {
		p.service.RecordCounter(ctx, "payments.queue_drain.retained.total", int64(stats.Retained), tags)
	}

	if err != nil {
		return stats, p.service.MapError(err)
	}
	return stats, nil
}

// ImportTransactions reconciles a provider transaction list into the ledger
// for one order, outside the queue path.
func (p *Pipeline) ImportTransactions(ctx context.Context, transactions []map[string]any, orderID int64) []int64 {
	if p == nil || p.service == nil {
		return make([]int64, len(transactions))
	}
	return p.service.ImportTransactions(ctx, transactions, orderID)
}

// Run starts the drain loop and blocks until ctx is done. It is the in-process
// fallback when no external job runner is wired.
func (p *Pipeline) Run(ctx context.Context) error {
	if p == nil || p.drainer == nil {
		return fmt.Errorf("payments: pipeline is not configured")
	}
	return p.drainer.Run(ctx)
}

// requestDrain hands the drain to the job runner when one is wired, where
// pending-dedup collapses bursts into a single job per queue. Otherwise it
// falls back to the in-process trigger.
func (p *Pipeline) requestDrain(ctx context.Context) {
	if enqueuer := p.service.JobEnqueuer(); enqueuer != nil {
		err := enqueuer.Enqueue(ctx, gojob.NewDrainMessage(p.queue.LockName()))
		if err == nil {
			return
		}
		p.logger.Warn("schedule queue drain job", "queue", p.queue.LockName(), "error", err)
	}
	p.drainer.Trigger()
}

func (p *Pipeline) Service() *core.Service {
	if p == nil {
		return nil
	}
	return p.service
}

func (p *Pipeline) Queue() *queue.Queue {
	if p == nil {
		return nil
	}
	return p.queue
}

func (p *Pipeline) Drainer() *queue.Drainer {
	if p == nil {
		return nil
	}
	return p.drainer
}

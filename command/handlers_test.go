package command

import (
	"context"
	"fmt"
	"testing"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-payments/queue"
)

type stubPipelineService struct {
	handleWebhookFn func(ctx context.Context, paymentMethodID string, webhookData string) error
	dispatchFn      func(ctx context.Context) error
	drainFn         func(ctx context.Context) (queue.DrainStats, error)
	importFn        func(ctx context.Context, transactions []map[string]any, orderID int64) []int64
}

func (s stubPipelineService) HandleWebhook(ctx context.Context, paymentMethodID string, webhookData string) error {
	if s.handleWebhookFn == nil {
		return fmt.Errorf("unexpected HandleWebhook call")
	}
	return s.handleWebhookFn(ctx, paymentMethodID, webhookData)
}

func (s stubPipelineService) Dispatch(ctx context.Context) error {
	if s.dispatchFn == nil {
		return fmt.Errorf("unexpected Dispatch call")
	}
	return s.dispatchFn(ctx)
}

func (s stubPipelineService) Drain(ctx context.Context) (queue.DrainStats, error) {
	if s.drainFn == nil {
		return queue.DrainStats{}, fmt.Errorf("unexpected Drain call")
	}
	return s.drainFn(ctx)
}

func (s stubPipelineService) ImportTransactions(ctx context.Context, transactions []map[string]any, orderID int64) []int64 {
	if s.importFn == nil {
		return nil
	}
	return s.importFn(ctx, transactions, orderID)
}

func TestEnqueueWebhookCommand_ExecuteDelegates(t *testing.T) {
	called := false
	svc := stubPipelineService{
		handleWebhookFn: func(_ context.Context, paymentMethodID string, webhookData string) error {
			called = true
			if paymentMethodID != "px" {
				t.Fatalf("expected payment method px, got %q", paymentMethodID)
			}
			if webhookData == "" {
				t.Fatal("expected webhook data to pass through")
			}
			return nil
		},
	}

	cmd := NewEnqueueWebhookCommand(svc)
	err := cmd.Execute(context.Background(), EnqueueWebhookMessage{
		PaymentMethodID: "px",
		WebhookData:     `{"payment":{"id":"P1"},"transaction":{"number":"T1"}}`,
	})
	if err != nil {
		t.Fatalf("execute enqueue: %v", err)
	}
	if !called {
		t.Fatal("expected webhook service invocation")
	}
}

func TestDrainQueueCommand_ExecuteStoresStats(t *testing.T) {
	expected := queue.DrainStats{Batches: 2, Items: 5}
	svc := stubPipelineService{
		drainFn: func(context.Context) (queue.DrainStats, error) {
			return expected, nil
		},
	}

	cmd := NewDrainQueueCommand(svc)
	collector := gocmd.NewResult[queue.DrainStats]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, DrainQueueMessage{}); err != nil {
		t.Fatalf("execute drain: %v", err)
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatal("expected drain stats to be stored")
	}
	if result.Batches != expected.Batches || result.Items != expected.Items {
		t.Fatalf("unexpected drain stats: %#v", result)
	}
}

func TestDispatchBatchesCommand_ExecuteDelegates(t *testing.T) {
	called := false
	svc := stubPipelineService{
		dispatchFn: func(context.Context) error {
			called = true
			return nil
		},
	}
	cmd := NewDispatchBatchesCommand(svc)
	if err := cmd.Execute(context.Background(), DispatchBatchesMessage{}); err != nil {
		t.Fatalf("execute dispatch: %v", err)
	}
	if !called {
		t.Fatal("expected dispatch invocation")
	}
}

func TestImportTransactionsCommand_ExecuteStoresIDs(t *testing.T) {
	svc := stubPipelineService{
		importFn: func(_ context.Context, transactions []map[string]any, orderID int64) []int64 {
			if orderID != 42 {
				t.Fatalf("expected order 42, got %d", orderID)
			}
			if len(transactions) != 1 {
				t.Fatalf("expected one transaction, got %d", len(transactions))
			}
			return []int64{7}
		},
	}

	cmd := NewImportTransactionsCommand(svc)
	collector := gocmd.NewResult[[]int64]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	msg := ImportTransactionsMessage{
		OrderID:      42,
		Transactions: []map[string]any{{"id": "ext-1", "number": "T1"}},
	}
	if err := cmd.Execute(ctx, msg); err != nil {
		t.Fatalf("execute import: %v", err)
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatal("expected imported ids to be stored")
	}
	if len(result) != 1 || result[0] != 7 {
		t.Fatalf("unexpected imported ids: %v", result)
	}
}

func TestCommandValidation(t *testing.T) {
	cases := []struct {
		name    string
		message interface{ Validate() error }
		wantErr bool
	}{
		{
			name: "valid webhook",
			message: EnqueueWebhookMessage{
				PaymentMethodID: "px",
				WebhookData:     `{"payment":{"id":"P1"},"transaction":{"number":1099}}`,
			},
		},
		{
			name:    "missing payment method",
			message: EnqueueWebhookMessage{WebhookData: `{"payment":{"id":"P1"}}`},
			wantErr: true,
		},
		{
			name:    "missing webhook data",
			message: EnqueueWebhookMessage{PaymentMethodID: "px"},
			wantErr: true,
		},
		{
			name:    "malformed webhook data",
			message: EnqueueWebhookMessage{PaymentMethodID: "px", WebhookData: "{broken"},
			wantErr: true,
		},
		{
			name: "valid import",
			message: ImportTransactionsMessage{
				OrderID:      1,
				Transactions: []map[string]any{{"id": "ext-1"}},
			},
		},
		{
			name:    "import without order",
			message: ImportTransactionsMessage{Transactions: []map[string]any{{"id": "ext-1"}}},
			wantErr: true,
		},
		{
			name:    "import without transactions",
			message: ImportTransactionsMessage{OrderID: 1},
			wantErr: true,
		},
		{name: "drain", message: DrainQueueMessage{}},
		{name: "dispatch", message: DispatchBatchesMessage{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.message.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

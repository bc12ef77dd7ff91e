package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/goliatone/go-payments/core"
	paymentmigrations "github.com/goliatone/go-payments/migrations"
	sqlstore "github.com/goliatone/go-payments/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-payments-tests"
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{
		"payment_transactions",
		"payment_queue_batches",
		"payment_drain_locks",
		"payment_order_mappings",
	} {
		var tableName string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &tableName); err != nil {
			t.Fatalf("query sqlite master for %s: %v", table, err)
		}
		if tableName != table {
			t.Fatalf("expected %s table, got %q", table, tableName)
		}
	}
}

func TestTransactionStore_UpsertByExternalID(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.TransactionStore()

	first, err := store.Add(ctx, core.Transaction{
		ExternalID: "ext-1",
		OrderID:    42,
		State:      "Initialized",
		Number:     "1000",
		Amount:     1500,
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	if first <= 0 {
		t.Fatalf("expected positive ledger id, got %d", first)
	}

	if _, err := store.Add(ctx, core.Transaction{
		ExternalID: "ext-1",
		OrderID:    42,
		State:      "Completed",
	}); err == nil {
		t.Fatal("expected unique external id violation")
	}

	if err := store.Update(ctx, first, core.Transaction{
		ExternalID: "ext-1",
		OrderID:    42,
		State:      "Completed",
		Number:     "1000",
		Amount:     1500,
	}); err != nil {
		t.Fatalf("update transaction: %v", err)
	}

	row, found, err := store.GetBy(ctx, core.TransactionFieldExternalID, "ext-1")
	if err != nil {
		t.Fatalf("get by external id: %v", err)
	}
	if !found {
		t.Fatal("expected ledger row for ext-1")
	}
	if row.TransactionID != first {
		t.Fatalf("expected row id %d to be stable across update, got %d", first, row.TransactionID)
	}
	if row.State != "Completed" {
		t.Fatalf("expected updated state, got %q", row.State)
	}

	rows, err := store.Select(ctx, []core.Condition{
		{Field: core.TransactionFieldOrderID, Value: int64(42)},
		{Field: core.TransactionFieldState, Value: "Completed"},
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one matching row, got %d", len(rows))
	}

	if _, _, err := store.GetBy(ctx, core.TransactionField("password"), "x"); err == nil {
		t.Fatal("expected rejection of a field outside the permitted set")
	}
}

func TestBatchStore_PrefixIsolationAndLifecycle(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.BatchStore()

	itemsA := []core.QueueItem{{Payload: map[string]any{"webhook_data": "a"}, EnqueuedOrder: 0}}
	itemsB := []core.QueueItem{{Payload: map[string]any{"webhook_data": "b"}, EnqueuedOrder: 1}}

	if err := store.SaveBatch(ctx, "default_payment_webhooks_batch_1", itemsA); err != nil {
		t.Fatalf("save batch 1: %v", err)
	}
	if err := store.SaveBatch(ctx, "default_payment_webhooks_batch_2", itemsB); err != nil {
		t.Fatalf("save batch 2: %v", err)
	}
	if err := store.SaveBatch(ctx, "otherXpayment_webhooks_batch_1", itemsA); err != nil {
		t.Fatalf("save foreign batch: %v", err)
	}

	if err := store.SaveBatch(ctx, "default_payment_webhooks_batch_1", itemsB); err == nil {
		t.Fatal("expected duplicate batch key rejection")
	}

	batches, err := store.ListBatches(ctx, "default_payment_webhooks_batch_")
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 tenant batches, got %d", len(batches))
	}
	if batches[0].Key != "default_payment_webhooks_batch_1" {
		t.Fatalf("expected insertion order listing, got %q first", batches[0].Key)
	}
	if batches[0].Items[0].Payload["webhook_data"] != "a" {
		t.Fatalf("expected items to round-trip, got %#v", batches[0].Items)
	}

	if err := store.UpdateBatch(ctx, "default_payment_webhooks_batch_1", itemsB); err != nil {
		t.Fatalf("update batch: %v", err)
	}
	if err := store.UpdateBatch(ctx, "missing_batch", itemsB); err == nil {
		t.Fatal("expected update of a missing batch to fail")
	}

	if err := store.DeleteBatch(ctx, "default_payment_webhooks_batch_1"); err != nil {
		t.Fatalf("delete batch: %v", err)
	}
	batches, err = store.ListBatches(ctx, "default_payment_webhooks_batch_")
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 remaining batch, got %d", len(batches))
	}
}

func TestDrainLockStore_ExclusionAndExpiry(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	db := client.DB()
	store, err := sqlstore.NewDrainLockStore(db)
	if err != nil {
		t.Fatalf("new drain lock store: %v", err)
	}

	handle, acquired, err := store.Acquire(ctx, "payment_webhooks_drain", 30*time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !acquired {
		t.Fatal("expected first acquire to succeed")
	}

	if _, acquiredAgain, err := store.Acquire(ctx, "payment_webhooks_drain", 30*time.Second); err != nil {
		t.Fatalf("second acquire: %v", err)
	} else if acquiredAgain {
		t.Fatal("expected held lease to block a second acquire")
	}

	if err := handle.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	handle, acquired, err = store.Acquire(ctx, "payment_webhooks_drain", 30*time.Second)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if !acquired {
		t.Fatal("expected released lease to be acquirable")
	}

	// Move the clock past the ttl so the held lease is stealable.
	store.Now = func() time.Time {
		return time.Now().UTC().Add(time.Minute)
	}
	_, stolen, err := store.Acquire(ctx, "payment_webhooks_drain", 30*time.Second)
	if err != nil {
		t.Fatalf("steal expired lease: %v", err)
	}
	if !stolen {
		t.Fatal("expected expired lease to be stolen")
	}

	// The original handle no longer owns the row, so its release is a no-op.
	if err := handle.Release(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if _, acquired, _ := store.Acquire(ctx, "payment_webhooks_drain", 30*time.Second); acquired {
		t.Fatal("expected stale release to leave the stolen lease in place")
	}
}

func TestOrderMappingStore_SaveAndRewrite(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.OrderMappingStore()

	if err := store.SaveMapping(ctx, "P1", 42); err != nil {
		t.Fatalf("save mapping: %v", err)
	}
	orderID, found, err := store.OrderIDByPaymentID(ctx, "P1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !found || orderID != 42 {
		t.Fatalf("expected P1 -> 42, got %d (found=%v)", orderID, found)
	}

	if err := store.SaveMapping(ctx, "P1", 43); err != nil {
		t.Fatalf("rewrite mapping: %v", err)
	}
	orderID, found, err = store.OrderIDByPaymentID(ctx, "P1")
	if err != nil {
		t.Fatalf("lookup after rewrite: %v", err)
	}
	if !found || orderID != 43 {
		t.Fatalf("expected rewritten mapping P1 -> 43, got %d (found=%v)", orderID, found)
	}

	if _, found, err := store.OrderIDByPaymentID(ctx, "P404"); err != nil || found {
		t.Fatalf("expected clean miss for unknown payment, found=%v err=%v", found, err)
	}
}

func TestMigrationSmokeApplyPostgres(t *testing.T) {
	dsn := os.Getenv("PAYMENTS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PAYMENTS_TEST_POSTGRES_DSN not set")
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open postgres db: %v", err)
	}

	cfg := testPersistenceConfig{driver: "postgres", server: dsn}
	client, err := persistence.New(cfg, sqlDB, pgdialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	_, err = paymentmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != paymentmigrations.DialectPostgres {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, paymentmigrations.WithValidationTargets(paymentmigrations.DialectPostgres))
	if err != nil {
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	if _, err := factory.TransactionStore().Add(ctx, core.Transaction{
		ExternalID: fmt.Sprintf("pg-smoke-%d", time.Now().UnixNano()),
		OrderID:    1,
	}); err != nil {
		t.Fatalf("postgres ledger insert: %v", err)
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:payments-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = paymentmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != paymentmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, paymentmigrations.WithValidationTargets(paymentmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

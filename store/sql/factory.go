package sqlstore

import (
	"fmt"

	"github.com/goliatone/go-payments/core"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

// RepositoryFactory builds the persisted stores once and hands them out
// through the core.StoreProvider surface.
type RepositoryFactory struct {
	db *bun.DB

	transactionStore  *TransactionStore
	batchStore        *BatchStore
	drainLockStore    *DrainLockStore
	orderMappingStore *OrderMappingStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.transactionStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) TransactionStore() core.TransactionStore {
	if f == nil {
		return nil
	}
	return f.transactionStore
}

func (f *RepositoryFactory) BatchStore() core.BatchStore {
	if f == nil {
		return nil
	}
	return f.batchStore
}

func (f *RepositoryFactory) DrainLock() core.DrainLock {
	if f == nil {
		return nil
	}
	return f.drainLockStore
}

func (f *RepositoryFactory) OrderMappingStore() core.OrderMappingStore {
	if f == nil {
		return nil
	}
	return f.orderMappingStore
}

func (f *RepositoryFactory) initStores() error {
	transactionStore, err := NewTransactionStore(f.db)
	if err != nil {
		return err
	}
	f.transactionStore = transactionStore

	batchStore, err := NewBatchStore(f.db)
	if err != nil {
		return err
	}
	f.batchStore = batchStore

	drainLockStore, err := NewDrainLockStore(f.db)
	if err != nil {
		return err
	}
	f.drainLockStore = drainLockStore

	orderMappingStore, err := NewOrderMappingStore(f.db)
	if err != nil {
		return err
	}
	f.orderMappingStore = orderMappingStore

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

package sqlstore

import "github.com/goliatone/go-payments/core"

var (
	_ core.TransactionStore       = (*TransactionStore)(nil)
	_ core.BatchStore             = (*BatchStore)(nil)
	_ core.DrainLock              = (*DrainLockStore)(nil)
	_ core.LockHandle             = (*drainLockHandle)(nil)
	_ core.OrderMappingStore      = (*OrderMappingStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)

package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[EnqueueWebhookMessage]     = (*EnqueueWebhookCommand)(nil)
	_ gocmd.Commander[DispatchBatchesMessage]    = (*DispatchBatchesCommand)(nil)
	_ gocmd.Commander[DrainQueueMessage]         = (*DrainQueueCommand)(nil)
	_ gocmd.Commander[ImportTransactionsMessage] = (*ImportTransactionsCommand)(nil)
)

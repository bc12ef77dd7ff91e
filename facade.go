package payments

import (
	"fmt"

	paymentscommand "github.com/goliatone/go-payments/command"
)

type Commands struct {
	EnqueueWebhook     *paymentscommand.EnqueueWebhookCommand
	DispatchBatches    *paymentscommand.DispatchBatchesCommand
	DrainQueue         *paymentscommand.DrainQueueCommand
	ImportTransactions *paymentscommand.ImportTransactionsCommand
}

// Facade bundles the command handlers around one pipeline so hosts can
// register them with a command bus in a single step.
type Facade struct {
	service  paymentscommand.PipelineService
	commands Commands
}

func NewFacade(service paymentscommand.PipelineService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("payments: pipeline service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		EnqueueWebhook:     paymentscommand.NewEnqueueWebhookCommand(service),
		DispatchBatches:    paymentscommand.NewDispatchBatchesCommand(service),
		DrainQueue:         paymentscommand.NewDrainQueueCommand(service),
		ImportTransactions: paymentscommand.NewImportTransactionsCommand(service),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Service() paymentscommand.PipelineService {
	if f == nil {
		return nil
	}
	return f.service
}

var _ paymentscommand.PipelineService = (*Pipeline)(nil)

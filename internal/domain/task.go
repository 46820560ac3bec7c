package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferTask carries the details of a bank transfer the user must make.
type TransferTask struct {
	Reference    string
	Amount       decimal.Decimal
	Source       Account
	Destination  Account
	CategoryCode string
}

// ToDoTask is a manual follow-up action raised by a reconciliation.
type ToDoTask struct {
	Description     string
	SystemGenerated bool
	CanDelete       bool
	Transfer        *TransferTask
}

// IsTransfer reports whether the task asks for a bank transfer.
func (t ToDoTask) IsTransfer() bool {
	return t.Transfer != nil
}

// AutoMatchConsumption records that a pending reference on a previous
// period's ledger transaction was matched to a statement transaction.
type AutoMatchConsumption struct {
	LineDate               time.Time
	CategoryCode           string
	LedgerTransactionID    string
	StatementTransactionID string
	Reference              string
}

// ReconciliationResult is the detached output of the reconciliation builder.
type ReconciliationResult struct {
	Reconciliation *LedgerEntryLine
	Tasks          []ToDoTask
	AutoMatches    []AutoMatchConsumption
}

// TransferTasks returns only the tasks that carry transfer details.
func (r *ReconciliationResult) TransferTasks() []ToDoTask {
	var out []ToDoTask
	for _, t := range r.Tasks {
		if t.IsTransfer() {
			out = append(out, t)
		}
	}
	return out
}

package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the single source of truth for accounts, transactions and
// scheduled transfers. Reads outside a unit of work see committed state
// only. Every balance mutation goes through a UnitOfWork so the balance
// write and its transaction record commit or roll back together.
type Store interface {
	// Accounts.
	Account(ctx context.Context, id string) (Account, error)
	AccountByNumber(ctx context.Context, number string) (Account, error)
	Accounts(ctx context.Context) ([]Account, error)
	AccountsByCustomer(ctx context.Context, customerID string) ([]Account, error)
	ActiveSavingsAccounts(ctx context.Context) ([]Account, error)
	CreateAccount(ctx context.Context, account Account) error
	// UpdateAccount is for administrative correction of type/balance only;
	// regular balance movement must go through a UnitOfWork.
	UpdateAccount(ctx context.Context, id string, accountType AccountType, balance decimal.Decimal) (Account, error)
	SetAccountActive(ctx context.Context, id string, active bool) (Account, error)
	// DeleteAccount removes the account and cascades its transactions.
	// The account service guards that the balance is exactly zero first.
	DeleteAccount(ctx context.Context, id string) error

	// Transactions (read side; writes happen via UnitOfWork only).
	Transaction(ctx context.Context, id string) (Transaction, error)
	TransactionsByAccount(ctx context.Context, accountID string) ([]Transaction, error)
	Transactions(ctx context.Context) ([]Transaction, error)

	// Scheduled transfers.
	CreateScheduledTransfer(ctx context.Context, st ScheduledTransfer) error
	PendingTransfers(ctx context.Context) ([]ScheduledTransfer, error)
	DueTransfers(ctx context.Context, now time.Time) ([]ScheduledTransfer, error)

	Begin(ctx context.Context) (UnitOfWork, error)
}

// UnitOfWork bounds the reads and writes of one logical operation. Commit
// persists everything staged since Begin; Rollback discards it. A unit of
// work is single-use: after Commit or Rollback every method fails.
type UnitOfWork interface {
	// AccountForUpdate loads an account and holds its write lock until the
	// unit of work ends. Callers lock multiple accounts in ascending id
	// order.
	AccountForUpdate(ctx context.Context, id string) (Account, error)
	SetBalance(ctx context.Context, accountID string, balance decimal.Decimal) error
	SetLastInterestAt(ctx context.Context, accountID string, at time.Time) error
	// AppendTransaction records one immutable ledger entry. A missing ID is
	// filled in; the stored entry is returned.
	AppendTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	// MarkProcessed flips a scheduled transfer to processed. Fails with
	// KindConflict if it was already processed.
	MarkProcessed(ctx context.Context, scheduledID string) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

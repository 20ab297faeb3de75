package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the closed set of account products.
type AccountType string

const (
	AccountSavings AccountType = "SAVINGS"
	AccountCurrent AccountType = "CURRENT"
	AccountLoan    AccountType = "LOAN"
)

// ValidAccountType reports whether t is one of the known account products.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountSavings, AccountCurrent, AccountLoan:
		return true
	}
	return false
}

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TypeDeposit    TransactionType = "DEPOSIT"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypePayment    TransactionType = "PAYMENT"
	TypeTransfer   TransactionType = "TRANSFER"
)

// TransactionStatus is the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
)

// Account is a customer account whose balance is justified by the
// transactions recorded against it.
type Account struct {
	ID             string
	Number         string
	CustomerID     string
	Type           AccountType
	Balance        decimal.Decimal
	Active         bool
	CreatedAt      time.Time
	LastInterestAt *time.Time
}

// Transaction is one immutable ledger entry. Amount is signed: positive
// credits the account, negative debits it. Entries are append-only; the
// store exposes no update or delete for them.
type Transaction struct {
	ID          string
	AccountID   string
	Amount      decimal.Decimal
	Type        TransactionType
	Status      TransactionStatus
	CreatedAt   time.Time
	Description string
}

// ScheduledTransfer is a transfer queued for future execution. Processed
// moves false to true exactly once.
type ScheduledTransfer struct {
	ID            string
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	ExecuteAt     time.Time
	Processed     bool
}

package payment

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-bank/atlas_core/internal/ledger"
)

// Service applies single-account mutations: deposits, withdrawals and bill
// payments. Each call writes the balance and its transaction record in one
// unit of work.
type Service struct {
	store ledger.Store
}

// NewService builds a payment processor.
func NewService(store ledger.Store) *Service {
	return &Service{store: store}
}

// Input captures one payment request.
type Input struct {
	AccountID   string
	Amount      decimal.Decimal
	Type        ledger.TransactionType
	Description string
}

// Process validates and applies the mutation, returning the recorded
// transaction. TRANSFER is not handled here; the transfer coordinator owns
// two-account movement.
func (s *Service) Process(ctx context.Context, input Input) (ledger.Transaction, error) {
	if !input.Amount.IsPositive() {
		return ledger.Transaction{}, ledger.Validationf("amount must be positive")
	}
	switch input.Type {
	case ledger.TypeDeposit, ledger.TypeWithdrawal, ledger.TypePayment:
	default:
		return ledger.Transaction{}, ledger.Validationf("unsupported type %q", input.Type)
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return ledger.Transaction{}, err
	}
	tx, err := s.apply(ctx, uow, input)
	if err != nil {
		_ = uow.Rollback(ctx)
		return ledger.Transaction{}, err
	}
	if err := uow.Commit(ctx); err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}

func (s *Service) apply(ctx context.Context, uow ledger.UnitOfWork, input Input) (ledger.Transaction, error) {
	account, err := uow.AccountForUpdate(ctx, input.AccountID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if !account.Active {
		return ledger.Transaction{}, ledger.Validationf("account %s is not active", account.Number)
	}

	amount := input.Amount
	if input.Type == ledger.TypeDeposit {
		if err := uow.SetBalance(ctx, account.ID, account.Balance.Add(amount)); err != nil {
			return ledger.Transaction{}, err
		}
	} else {
		if account.Balance.LessThan(amount) {
			return ledger.Transaction{}, ledger.InsufficientFundsf(
				"account %s balance %s is below requested amount %s", account.Number, account.Balance, amount)
		}
		if err := uow.SetBalance(ctx, account.ID, account.Balance.Sub(amount)); err != nil {
			return ledger.Transaction{}, err
		}
		amount = amount.Neg()
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = strings.ToLower(string(input.Type))
	}
	return uow.AppendTransaction(ctx, ledger.Transaction{
		AccountID:   account.ID,
		Amount:      amount,
		Type:        input.Type,
		Status:      ledger.StatusCompleted,
		CreatedAt:   time.Now().UTC(),
		Description: description,
	})
}

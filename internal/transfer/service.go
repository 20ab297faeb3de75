package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-bank/atlas_core/internal/ledger"
	"github.com/atlas-bank/atlas_core/internal/notification"
)

// Service coordinates atomic two-account transfers. Both balance writes
// and both transaction legs share one unit of work; a failure at any step
// rolls everything back.
type Service struct {
	store    ledger.Store
	notifier notification.Notifier
}

// NewService builds a transfer coordinator.
func NewService(store ledger.Store, notifier notification.Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// Transfer moves amount from one account to another and returns the debit
// leg. Validation failures and the insufficient-funds check leave both
// accounts untouched.
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (ledger.Transaction, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return ledger.Transaction{}, err
	}
	debit, to, err := s.execute(ctx, uow, fromID, toID, amount)
	if err != nil {
		_ = uow.Rollback(ctx)
		return ledger.Transaction{}, err
	}
	if err := uow.Commit(ctx); err != nil {
		return ledger.Transaction{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransfer,
			Destination: to.CustomerID,
			Body:        fmt.Sprintf("Account %s received %s", to.Number, amount.StringFixed(2)),
		})
	}
	return debit, nil
}

// ExecuteIn runs the transfer steps inside a caller-owned unit of work.
// The scheduled-transfer dispatcher uses this to commit the transfer and
// its processed flag together. The caller commits or rolls back.
func (s *Service) ExecuteIn(ctx context.Context, uow ledger.UnitOfWork, fromID, toID string, amount decimal.Decimal) (ledger.Transaction, error) {
	debit, _, err := s.execute(ctx, uow, fromID, toID, amount)
	return debit, err
}

func (s *Service) execute(ctx context.Context, uow ledger.UnitOfWork, fromID, toID string, amount decimal.Decimal) (ledger.Transaction, ledger.Account, error) {
	if !amount.IsPositive() {
		return ledger.Transaction{}, ledger.Account{}, ledger.Validationf("transfer amount must be positive")
	}
	if fromID == toID {
		return ledger.Transaction{}, ledger.Account{}, ledger.Validationf("cannot transfer to the same account")
	}

	// Accounts lock in ascending id order so two opposite transfers over
	// the same pair cannot deadlock.
	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}
	loaded := make(map[string]ledger.Account, 2)
	for _, id := range []string{first, second} {
		a, err := uow.AccountForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return ledger.Transaction{}, ledger.Account{}, ledger.NotFoundf("%s account %s not found", sideOf(id, fromID), id)
			}
			return ledger.Transaction{}, ledger.Account{}, err
		}
		loaded[id] = a
	}
	from, to := loaded[fromID], loaded[toID]

	if !from.Active {
		return ledger.Transaction{}, ledger.Account{}, ledger.Validationf("source account %s is not active", from.Number)
	}
	if !to.Active {
		return ledger.Transaction{}, ledger.Account{}, ledger.Validationf("destination account %s is not active", to.Number)
	}
	if from.Balance.LessThan(amount) {
		return ledger.Transaction{}, ledger.Account{}, ledger.InsufficientFundsf(
			"account %s balance %s is below transfer amount %s", from.Number, from.Balance, amount)
	}

	if err := uow.SetBalance(ctx, from.ID, from.Balance.Sub(amount)); err != nil {
		return ledger.Transaction{}, ledger.Account{}, err
	}
	if err := uow.SetBalance(ctx, to.ID, to.Balance.Add(amount)); err != nil {
		return ledger.Transaction{}, ledger.Account{}, err
	}

	now := time.Now().UTC()
	debit, err := uow.AppendTransaction(ctx, ledger.Transaction{
		AccountID:   from.ID,
		Amount:      amount.Neg(),
		Type:        ledger.TypeTransfer,
		Status:      ledger.StatusCompleted,
		CreatedAt:   now,
		Description: fmt.Sprintf("Transfer to account %s", to.Number),
	})
	if err != nil {
		return ledger.Transaction{}, ledger.Account{}, err
	}
	if _, err := uow.AppendTransaction(ctx, ledger.Transaction{
		AccountID:   to.ID,
		Amount:      amount,
		Type:        ledger.TypeTransfer,
		Status:      ledger.StatusCompleted,
		CreatedAt:   now,
		Description: fmt.Sprintf("Transfer from account %s", from.Number),
	}); err != nil {
		return ledger.Transaction{}, ledger.Account{}, err
	}
	return debit, to, nil
}

func sideOf(id, fromID string) string {
	if id == fromID {
		return "source"
	}
	return "destination"
}

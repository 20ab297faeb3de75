package interest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-bank/atlas_core/internal/ledger"
	"github.com/atlas-bank/atlas_core/internal/notification"
)

// Service computes and applies compound daily interest on savings
// accounts. Calculation is pure; application mutates the balance, records
// a DEPOSIT transaction and advances the last-interest timestamp in one
// unit of work.
type Service struct {
	store    ledger.Store
	rate     decimal.Decimal
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService builds an interest engine with the given daily rate.
func NewService(store ledger.Store, dailyRate decimal.Decimal, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, rate: dailyRate, notifier: notifier, logger: logger}
}

// CalculateAccrued returns the interest earned between the account's last
// interest application (or creation) and asOf. It has no side effect.
// Less than one whole day, or a non-positive balance, accrues zero.
func (s *Service) CalculateAccrued(ctx context.Context, accountID string, asOf time.Time) (decimal.Decimal, error) {
	account, err := s.store.Account(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := eligible(account); err != nil {
		return decimal.Zero, err
	}

	since := account.CreatedAt
	if account.LastInterestAt != nil {
		since = *account.LastInterestAt
	}
	days := wholeDays(since, asOf)
	if days <= 0 || !account.Balance.IsPositive() {
		return decimal.Zero, nil
	}
	return accrue(account.Balance, s.rate, days), nil
}

// accrue compounds day by day instead of using a closed-form power so the
// intermediate amounts match the statement line items; only the final
// total is rounded, half-up to cents.
func accrue(balance, rate decimal.Decimal, days int) decimal.Decimal {
	running := balance
	total := decimal.Zero
	for i := 0; i < days; i++ {
		interest := running.Mul(rate)
		total = total.Add(interest)
		running = running.Add(interest)
	}
	return total.Round(2)
}

// wholeDays counts calendar days between two instants, ignoring the
// time-of-day remainder.
func wholeDays(from, to time.Time) int {
	fy, fm, fd := from.UTC().Date()
	ty, tm, td := to.UTC().Date()
	start := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start) / (24 * time.Hour))
}

// ApplyAccrued credits a previously calculated amount to the account.
func (s *Service) ApplyAccrued(ctx context.Context, accountID string, amount decimal.Decimal) (ledger.Account, error) {
	if !amount.IsPositive() {
		return ledger.Account{}, ledger.Validationf("interest amount must be positive")
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return ledger.Account{}, err
	}
	account, err := s.applyIn(ctx, uow, accountID, amount)
	if err != nil {
		_ = uow.Rollback(ctx)
		return ledger.Account{}, err
	}
	if err := uow.Commit(ctx); err != nil {
		return ledger.Account{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindInterestCredit,
			Destination: account.CustomerID,
			Body:        fmt.Sprintf("Account %s earned %s interest", account.Number, amount.StringFixed(2)),
		})
	}
	return account, nil
}

func (s *Service) applyIn(ctx context.Context, uow ledger.UnitOfWork, accountID string, amount decimal.Decimal) (ledger.Account, error) {
	account, err := uow.AccountForUpdate(ctx, accountID)
	if err != nil {
		return ledger.Account{}, err
	}
	if err := eligible(account); err != nil {
		return ledger.Account{}, err
	}

	now := time.Now().UTC()
	newBalance := account.Balance.Add(amount)
	if err := uow.SetBalance(ctx, account.ID, newBalance); err != nil {
		return ledger.Account{}, err
	}
	if _, err := uow.AppendTransaction(ctx, ledger.Transaction{
		AccountID:   account.ID,
		Amount:      amount,
		Type:        ledger.TypeDeposit,
		Status:      ledger.StatusCompleted,
		CreatedAt:   now,
		Description: "Interest credit",
	}); err != nil {
		return ledger.Account{}, err
	}
	if err := uow.SetLastInterestAt(ctx, account.ID, now); err != nil {
		return ledger.Account{}, err
	}

	account.Balance = newBalance
	account.LastInterestAt = &now
	return account, nil
}

func eligible(account ledger.Account) error {
	if account.Type != ledger.AccountSavings {
		return ledger.Validationf("account %s is not a savings account", account.Number)
	}
	if !account.Active {
		return ledger.Validationf("account %s is not active", account.Number)
	}
	return nil
}

// RunDailyAccrual calculates and applies interest for every active
// savings account. One account failing does not stop the pass.
func (s *Service) RunDailyAccrual(ctx context.Context, asOf time.Time) error {
	accounts, err := s.store.ActiveSavingsAccounts(ctx)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		amount, err := s.CalculateAccrued(ctx, account.ID, asOf)
		if err != nil {
			s.logger.Error("interest calculation failed", "account_id", account.ID, "error", err)
			continue
		}
		if !amount.IsPositive() {
			continue
		}
		if _, err := s.ApplyAccrued(ctx, account.ID, amount); err != nil {
			s.logger.Error("interest application failed", "account_id", account.ID, "error", err)
			continue
		}
		s.logger.Info("interest applied", "account_id", account.ID, "amount", amount.StringFixed(2))
	}
	return nil
}

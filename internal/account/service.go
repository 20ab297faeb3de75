package account

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atlas-bank/atlas_core/internal/customer"
	"github.com/atlas-bank/atlas_core/internal/ledger"
)

const (
	numberLength   = 10
	numberAttempts = 5
)

// Service owns the account lifecycle. Balance movement is not done here;
// that belongs to the transfer, payment and interest components which all
// record a transaction alongside every balance write.
type Service struct {
	store     ledger.Store
	customers customer.Repository
}

// NewService builds an account service.
func NewService(store ledger.Store, customers customer.Repository) *Service {
	return &Service{store: store, customers: customers}
}

// CreateInput captures the data required to open an account.
type CreateInput struct {
	CustomerID     string
	Type           ledger.AccountType
	InitialBalance decimal.Decimal
}

// Create opens an account for an existing customer with a generated,
// collision-checked account number.
func (s *Service) Create(ctx context.Context, input CreateInput) (ledger.Account, error) {
	if !ledger.ValidAccountType(input.Type) {
		return ledger.Account{}, ledger.Validationf("unknown account type %q", input.Type)
	}
	if input.InitialBalance.IsNegative() {
		return ledger.Account{}, ledger.Validationf("initial balance must not be negative")
	}
	if _, err := s.customers.Get(ctx, input.CustomerID); err != nil {
		return ledger.Account{}, err
	}

	account := ledger.Account{
		ID:         uuid.NewString(),
		CustomerID: input.CustomerID,
		Type:       input.Type,
		Balance:    input.InitialBalance,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}

	// Random numbers collide rarely; the store's uniqueness check is the
	// arbiter. Bounded retries keep a pathological store from looping.
	for attempt := 0; attempt < numberAttempts; attempt++ {
		account.Number = randomNumber()
		err := s.store.CreateAccount(ctx, account)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, ledger.ErrConflict) {
			return ledger.Account{}, err
		}
	}
	return ledger.Account{}, ledger.Conflictf("account number generation exhausted after %d attempts", numberAttempts)
}

func randomNumber() string {
	digits := make([]byte, numberLength)
	for i := range digits {
		digits[i] = byte('0' + rand.IntN(10))
	}
	return string(digits)
}

// Get retrieves an account by id.
func (s *Service) Get(ctx context.Context, id string) (ledger.Account, error) {
	return s.store.Account(ctx, id)
}

// GetByNumber retrieves an account by its account number.
func (s *Service) GetByNumber(ctx context.Context, number string) (ledger.Account, error) {
	return s.store.AccountByNumber(ctx, number)
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]ledger.Account, error) {
	return s.store.Accounts(ctx)
}

// ListByCustomer returns the accounts owned by one customer.
func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]ledger.Account, error) {
	if _, err := s.customers.Get(ctx, customerID); err != nil {
		return nil, err
	}
	return s.store.AccountsByCustomer(ctx, customerID)
}

// Update applies an administrative correction to type and balance. It does
// not record a transaction; regular movement goes through the payment and
// transfer components.
func (s *Service) Update(ctx context.Context, id string, accountType ledger.AccountType, balance decimal.Decimal) (ledger.Account, error) {
	if !ledger.ValidAccountType(accountType) {
		return ledger.Account{}, ledger.Validationf("unknown account type %q", accountType)
	}
	if balance.IsNegative() {
		return ledger.Account{}, ledger.Validationf("balance must not be negative")
	}
	return s.store.UpdateAccount(ctx, id, accountType, balance)
}

// ChangeType switches the account product without touching the balance.
func (s *Service) ChangeType(ctx context.Context, id string, accountType ledger.AccountType) (ledger.Account, error) {
	if !ledger.ValidAccountType(accountType) {
		return ledger.Account{}, ledger.Validationf("unknown account type %q", accountType)
	}
	current, err := s.store.Account(ctx, id)
	if err != nil {
		return ledger.Account{}, err
	}
	return s.store.UpdateAccount(ctx, id, accountType, current.Balance)
}

// Deactivate soft-disables an account, keeping its history.
func (s *Service) Deactivate(ctx context.Context, id string) (ledger.Account, error) {
	return s.store.SetAccountActive(ctx, id, false)
}

// Activate re-enables a deactivated account.
func (s *Service) Activate(ctx context.Context, id string) (ledger.Account, error) {
	return s.store.SetAccountActive(ctx, id, true)
}

// Delete removes an account and its transactions. Only a zero-balance
// account may be deleted; anything else keeps its history.
func (s *Service) Delete(ctx context.Context, id string) error {
	account, err := s.store.Account(ctx, id)
	if err != nil {
		return err
	}
	if !account.Balance.IsZero() {
		return ledger.Validationf("account %s balance is %s, must be zero to delete", id, account.Balance)
	}
	return s.store.DeleteAccount(ctx, id)
}

// Describe formats a short human label used in notifications.
func Describe(a ledger.Account) string {
	return fmt.Sprintf("%s account %s", a.Type, a.Number)
}

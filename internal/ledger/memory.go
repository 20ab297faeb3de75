package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is a concurrency-safe in-memory Store used by tests and
// local runs without a database. One mutex serializes every unit of work,
// which gives the same per-account serialization the Postgres row locks
// provide. The mutex is held from Begin until Commit or Rollback, so a
// goroutine must finish its unit of work before issuing store-level reads.
type MemoryStore struct {
	mu        sync.Mutex
	accounts  map[string]*Account
	byNumber  map[string]string
	txs       []Transaction
	scheduled map[string]*ScheduledTransfer
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:  make(map[string]*Account),
		byNumber:  make(map[string]string),
		scheduled: make(map[string]*ScheduledTransfer),
	}
}

func cloneAccount(a *Account) Account {
	cp := *a
	if a.LastInterestAt != nil {
		t := *a.LastInterestAt
		cp.LastInterestAt = &t
	}
	return cp
}

func (s *MemoryStore) Account(_ context.Context, id string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountLocked(id)
}

func (s *MemoryStore) accountLocked(id string) (Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, NotFoundf("account %s not found", id)
	}
	return cloneAccount(a), nil
}

func (s *MemoryStore) AccountByNumber(_ context.Context, number string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byNumber[number]
	if !ok {
		return Account{}, NotFoundf("account number %s not found", number)
	}
	return cloneAccount(s.accounts[id]), nil
}

func (s *MemoryStore) Accounts(_ context.Context) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, cloneAccount(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) AccountsByCustomer(_ context.Context, customerID string) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Account
	for _, a := range s.accounts {
		if a.CustomerID == customerID {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ActiveSavingsAccounts(_ context.Context) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Account
	for _, a := range s.accounts {
		if a.Active && a.Type == AccountSavings {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateAccount(_ context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.ID]; exists {
		return Conflictf("account %s already exists", account.ID)
	}
	if _, exists := s.byNumber[account.Number]; exists {
		return Conflictf("account number %s already exists", account.Number)
	}
	cp := cloneAccount(&account)
	s.accounts[account.ID] = &cp
	s.byNumber[account.Number] = account.ID
	return nil
}

func (s *MemoryStore) UpdateAccount(_ context.Context, id string, accountType AccountType, balance decimal.Decimal) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, NotFoundf("account %s not found", id)
	}
	a.Type = accountType
	a.Balance = balance
	return cloneAccount(a), nil
}

func (s *MemoryStore) SetAccountActive(_ context.Context, id string, active bool) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, NotFoundf("account %s not found", id)
	}
	a.Active = active
	return cloneAccount(a), nil
}

func (s *MemoryStore) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return NotFoundf("account %s not found", id)
	}
	delete(s.byNumber, a.Number)
	delete(s.accounts, id)
	kept := s.txs[:0]
	for _, tx := range s.txs {
		if tx.AccountID != id {
			kept = append(kept, tx)
		}
	}
	s.txs = kept
	return nil
}

func (s *MemoryStore) Transaction(_ context.Context, id string) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.txs {
		if tx.ID == id {
			return tx, nil
		}
	}
	return Transaction{}, NotFoundf("transaction %s not found", id)
}

func (s *MemoryStore) TransactionsByAccount(_ context.Context, accountID string) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Transaction
	for _, tx := range s.txs {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *MemoryStore) Transactions(_ context.Context) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transaction, len(s.txs))
	copy(out, s.txs)
	return out, nil
}

func (s *MemoryStore) CreateScheduledTransfer(_ context.Context, st ScheduledTransfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.scheduled[st.ID]; exists {
		return Conflictf("scheduled transfer %s already exists", st.ID)
	}
	cp := st
	s.scheduled[st.ID] = &cp
	return nil
}

func (s *MemoryStore) PendingTransfers(_ context.Context) ([]ScheduledTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ScheduledTransfer
	for _, st := range s.scheduled {
		if !st.Processed {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecuteAt.Before(out[j].ExecuteAt) })
	return out, nil
}

func (s *MemoryStore) DueTransfers(_ context.Context, now time.Time) ([]ScheduledTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ScheduledTransfer
	for _, st := range s.scheduled {
		if !st.Processed && !st.ExecuteAt.After(now) {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecuteAt.Before(out[j].ExecuteAt) })
	return out, nil
}

// Begin locks the store and returns a unit of work staging its writes in
// memory. Commit applies the staged writes and releases the lock; Rollback
// just releases it, so nothing partial ever becomes visible.
func (s *MemoryStore) Begin(_ context.Context) (UnitOfWork, error) {
	s.mu.Lock()
	return &memoryUnitOfWork{
		store:        s,
		balances:     make(map[string]decimal.Decimal),
		lastInterest: make(map[string]time.Time),
		processed:    make(map[string]bool),
	}, nil
}

type memoryUnitOfWork struct {
	store        *MemoryStore
	done         bool
	balances     map[string]decimal.Decimal
	lastInterest map[string]time.Time
	appended     []Transaction
	processed    map[string]bool
}

func (u *memoryUnitOfWork) AccountForUpdate(_ context.Context, id string) (Account, error) {
	if u.done {
		return Account{}, Conflictf("unit of work already finished")
	}
	a, err := u.store.accountLocked(id)
	if err != nil {
		return Account{}, err
	}
	if bal, ok := u.balances[id]; ok {
		a.Balance = bal
	}
	if at, ok := u.lastInterest[id]; ok {
		t := at
		a.LastInterestAt = &t
	}
	return a, nil
}

func (u *memoryUnitOfWork) SetBalance(_ context.Context, accountID string, balance decimal.Decimal) error {
	if u.done {
		return Conflictf("unit of work already finished")
	}
	if _, ok := u.store.accounts[accountID]; !ok {
		return NotFoundf("account %s not found", accountID)
	}
	u.balances[accountID] = balance
	return nil
}

func (u *memoryUnitOfWork) SetLastInterestAt(_ context.Context, accountID string, at time.Time) error {
	if u.done {
		return Conflictf("unit of work already finished")
	}
	if _, ok := u.store.accounts[accountID]; !ok {
		return NotFoundf("account %s not found", accountID)
	}
	u.lastInterest[accountID] = at
	return nil
}

func (u *memoryUnitOfWork) AppendTransaction(_ context.Context, tx Transaction) (Transaction, error) {
	if u.done {
		return Transaction{}, Conflictf("unit of work already finished")
	}
	if _, ok := u.store.accounts[tx.AccountID]; !ok {
		return Transaction{}, NotFoundf("account %s not found", tx.AccountID)
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	u.appended = append(u.appended, tx)
	return tx, nil
}

func (u *memoryUnitOfWork) MarkProcessed(_ context.Context, scheduledID string) error {
	if u.done {
		return Conflictf("unit of work already finished")
	}
	st, ok := u.store.scheduled[scheduledID]
	if !ok {
		return NotFoundf("scheduled transfer %s not found", scheduledID)
	}
	if st.Processed || u.processed[scheduledID] {
		return Conflictf("scheduled transfer %s already processed", scheduledID)
	}
	u.processed[scheduledID] = true
	return nil
}

func (u *memoryUnitOfWork) Commit(_ context.Context) error {
	if u.done {
		return Conflictf("unit of work already finished")
	}
	for id, bal := range u.balances {
		u.store.accounts[id].Balance = bal
	}
	for id, at := range u.lastInterest {
		t := at
		u.store.accounts[id].LastInterestAt = &t
	}
	u.store.txs = append(u.store.txs, u.appended...)
	for id := range u.processed {
		u.store.scheduled[id].Processed = true
	}
	u.done = true
	u.store.mu.Unlock()
	return nil
}

func (u *memoryUnitOfWork) Rollback(_ context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	u.store.mu.Unlock()
	return nil
}

package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SeedAccount is a test helper that inserts an account directly into an
// in-memory store, bypassing number generation.
func SeedAccount(s *MemoryStore, a Account) Account {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Number == "" {
		a.Number = a.ID[:8]
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneAccount(&a)
	s.accounts[a.ID] = &cp
	s.byNumber[a.Number] = a.ID
	return a
}

// SeedBalance overwrites an account balance in an in-memory store without
// recording a transaction. Tests that exercise the ledger-consistency
// invariant should seed via the initial balance instead.
func SeedBalance(s *MemoryStore, accountID string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[accountID]; ok {
		a.Balance = balance
	}
}

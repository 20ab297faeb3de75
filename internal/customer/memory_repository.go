package customer

import (
	"context"
	"sort"
	"sync"

	"github.com/atlas-bank/atlas_core/internal/ledger"
)

type memoryRepository struct {
	mu        sync.RWMutex
	customers map[string]Customer
}

// NewMemoryRepository builds an in-memory customer store for tests and
// database-less local runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{customers: make(map[string]Customer)}
}

func (r *memoryRepository) Create(_ context.Context, c Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.customers[c.ID]; exists {
		return ledger.Conflictf("customer %s already exists", c.ID)
	}
	r.customers[c.ID] = c
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, ledger.NotFoundf("customer %s not found", id)
	}
	return c, nil
}

func (r *memoryRepository) List(_ context.Context) ([]Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

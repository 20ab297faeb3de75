package customer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atlas-bank/atlas_core/internal/ledger"
)

// Service exposes customer registry operations.
type Service struct {
	repo Repository
}

// NewService builds a customer service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput captures the data required to register a customer.
type RegisterInput struct {
	Name  string
	Email string
}

// Register creates a customer record.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Customer, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Customer{}, ledger.Validationf("customer name is required")
	}
	if strings.TrimSpace(input.Email) == "" {
		return Customer{}, ledger.Validationf("customer email is required")
	}
	c := Customer{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.TrimSpace(input.Email),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Customer{}, err
	}
	return c, nil
}

// Get retrieves a customer by id.
func (s *Service) Get(ctx context.Context, id string) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns all registered customers.
func (s *Service) List(ctx context.Context) ([]Customer, error) {
	return s.repo.List(ctx)
}

package customer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-bank/atlas_core/internal/ledger"
)

// Repository persists customers.
type Repository interface {
	Create(ctx context.Context, c Customer) error
	Get(ctx context.Context, id string) (Customer, error)
	List(ctx context.Context) ([]Customer, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed customer repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new customer.
func (r *PostgresRepository) Create(ctx context.Context, c Customer) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO customers (id, name, email, created_at)
        VALUES ($1, $2, $3, $4)`, id, c.Name, c.Email, c.CreatedAt.UTC())
	return err
}

// Get fetches a customer by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Customer, error) {
	custID, err := uuid.Parse(id)
	if err != nil {
		return Customer{}, ledger.NotFoundf("customer %s not found", id)
	}
	row := r.db.QueryRow(ctx, `SELECT id, name, email, created_at FROM customers WHERE id = $1`, custID)
	var (
		c         Customer
		idVal     uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&idVal, &c.Name, &c.Email, &createdAt); err != nil {
		if err == pgx.ErrNoRows {
			return Customer{}, ledger.NotFoundf("customer %s not found", id)
		}
		return Customer{}, err
	}
	c.ID = idVal.String()
	c.CreatedAt = createdAt.UTC()
	return c, nil
}

// List returns all customers ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]Customer, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, email, created_at FROM customers ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var (
			c         Customer
			idVal     uuid.UUID
			createdAt time.Time
		)
		if err := rows.Scan(&idVal, &c.Name, &c.Email, &createdAt); err != nil {
			return nil, err
		}
		c.ID = idVal.String()
		c.CreatedAt = createdAt.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

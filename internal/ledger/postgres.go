package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, number, customer_id, type, balance::text, active, created_at, last_interest_at`

const transactionColumns = `id, account_id, amount::text, type, status, created_at, description`

const scheduledColumns = `id, from_account_id, to_account_id, amount::text, execute_at, processed`

// PostgresStore persists the ledger in PostgreSQL. Explicit pgx
// transactions implement the unit of work; SELECT ... FOR UPDATE row locks
// serialize concurrent mutation of the same account.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var (
		a       Account
		id      uuid.UUID
		cust    uuid.UUID
		balance string
	)
	if err := row.Scan(&id, &a.Number, &cust, &a.Type, &balance, &a.Active, &a.CreatedAt, &a.LastInterestAt); err != nil {
		return Account{}, err
	}
	bal, err := decimal.NewFromString(balance)
	if err != nil {
		return Account{}, fmt.Errorf("parse balance: %w", err)
	}
	a.ID = id.String()
	a.CustomerID = cust.String()
	a.Balance = bal
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var (
		t      Transaction
		id     uuid.UUID
		acct   uuid.UUID
		amount string
	)
	if err := row.Scan(&id, &acct, &amount, &t.Type, &t.Status, &t.CreatedAt, &t.Description); err != nil {
		return Transaction{}, err
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	t.ID = id.String()
	t.AccountID = acct.String()
	t.Amount = amt
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func scanScheduled(row rowScanner) (ScheduledTransfer, error) {
	var (
		st     ScheduledTransfer
		id     uuid.UUID
		from   uuid.UUID
		to     uuid.UUID
		amount string
	)
	if err := row.Scan(&id, &from, &to, &amount, &st.ExecuteAt, &st.Processed); err != nil {
		return ScheduledTransfer{}, err
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return ScheduledTransfer{}, fmt.Errorf("parse amount: %w", err)
	}
	st.ID = id.String()
	st.FromAccountID = from.String()
	st.ToAccountID = to.String()
	st.Amount = amt
	st.ExecuteAt = st.ExecuteAt.UTC()
	return st, nil
}

func (s *PostgresStore) Account(ctx context.Context, id string) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, NotFoundf("account %s not found", id)
	}
	return a, err
}

func (s *PostgresStore) AccountByNumber(ctx context.Context, number string) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE number = $1`, number)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, NotFoundf("account number %s not found", number)
	}
	return a, err
}

func (s *PostgresStore) Accounts(ctx context.Context) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (s *PostgresStore) AccountsByCustomer(ctx context.Context, customerID string) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE customer_id = $1 ORDER BY created_at`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (s *PostgresStore) ActiveSavingsAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE active AND type = $1 ORDER BY created_at`, AccountSavings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func collectAccounts(rows pgx.Rows) ([]Account, error) {
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateAccount(ctx context.Context, account Account) error {
	_, err := s.db.Exec(ctx, `INSERT INTO accounts (id, number, customer_id, type, balance, active, created_at, last_interest_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.ID, account.Number, account.CustomerID, account.Type,
		account.Balance.String(), account.Active, account.CreatedAt.UTC(), account.LastInterestAt)
	if isUniqueViolation(err) {
		return Conflictf("account number %s already exists", account.Number)
	}
	return err
}

func (s *PostgresStore) UpdateAccount(ctx context.Context, id string, accountType AccountType, balance decimal.Decimal) (Account, error) {
	row := s.db.QueryRow(ctx, `UPDATE accounts SET type = $2, balance = $3 WHERE id = $1
        RETURNING `+accountColumns, id, accountType, balance.String())
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, NotFoundf("account %s not found", id)
	}
	return a, err
}

func (s *PostgresStore) SetAccountActive(ctx context.Context, id string, active bool) (Account, error) {
	row := s.db.QueryRow(ctx, `UPDATE accounts SET active = $2 WHERE id = $1 RETURNING `+accountColumns, id, active)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, NotFoundf("account %s not found", id)
	}
	return a, err
}

func (s *PostgresStore) DeleteAccount(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE account_id = $1`, id); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return NotFoundf("account %s not found", id)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Transaction(ctx context.Context, id string) (Transaction, error) {
	row := s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, NotFoundf("transaction %s not found", id)
	}
	return t, err
}

func (s *PostgresStore) TransactionsByAccount(ctx context.Context, accountID string) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE account_id = $1 ORDER BY created_at`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (s *PostgresStore) Transactions(ctx context.Context) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]Transaction, error) {
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateScheduledTransfer(ctx context.Context, st ScheduledTransfer) error {
	_, err := s.db.Exec(ctx, `INSERT INTO scheduled_transfers (id, from_account_id, to_account_id, amount, execute_at, processed)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		st.ID, st.FromAccountID, st.ToAccountID, st.Amount.String(), st.ExecuteAt.UTC(), st.Processed)
	return err
}

func (s *PostgresStore) PendingTransfers(ctx context.Context) ([]ScheduledTransfer, error) {
	rows, err := s.db.Query(ctx, `SELECT `+scheduledColumns+` FROM scheduled_transfers WHERE NOT processed ORDER BY execute_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduled(rows)
}

func (s *PostgresStore) DueTransfers(ctx context.Context, now time.Time) ([]ScheduledTransfer, error) {
	rows, err := s.db.Query(ctx, `SELECT `+scheduledColumns+` FROM scheduled_transfers
        WHERE NOT processed AND execute_at <= $1 ORDER BY execute_at`, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduled(rows)
}

func collectScheduled(rows pgx.Rows) ([]ScheduledTransfer, error) {
	var out []ScheduledTransfer
	for rows.Next() {
		st, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Begin opens a pgx transaction as the unit of work.
func (s *PostgresStore) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &pgUnitOfWork{tx: tx}, nil
}

type pgUnitOfWork struct {
	tx pgx.Tx
}

func (u *pgUnitOfWork) AccountForUpdate(ctx context.Context, id string) (Account, error) {
	row := u.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, NotFoundf("account %s not found", id)
	}
	return a, err
}

func (u *pgUnitOfWork) SetBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	cmd, err := u.tx.Exec(ctx, `UPDATE accounts SET balance = $2 WHERE id = $1`, accountID, balance.String())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return NotFoundf("account %s not found", accountID)
	}
	return nil
}

func (u *pgUnitOfWork) SetLastInterestAt(ctx context.Context, accountID string, at time.Time) error {
	cmd, err := u.tx.Exec(ctx, `UPDATE accounts SET last_interest_at = $2 WHERE id = $1`, accountID, at.UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return NotFoundf("account %s not found", accountID)
	}
	return nil
}

func (u *pgUnitOfWork) AppendTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := u.tx.Exec(ctx, `INSERT INTO transactions (id, account_id, amount, type, status, created_at, description)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.AccountID, t.Amount.String(), t.Type, t.Status, t.CreatedAt.UTC(), t.Description)
	if err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (u *pgUnitOfWork) MarkProcessed(ctx context.Context, scheduledID string) error {
	cmd, err := u.tx.Exec(ctx, `UPDATE scheduled_transfers SET processed = true WHERE id = $1 AND NOT processed`, scheduledID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return Conflictf("scheduled transfer %s already processed or missing", scheduledID)
	}
	return nil
}

func (u *pgUnitOfWork) Commit(ctx context.Context) error {
	return u.tx.Commit(ctx)
}

func (u *pgUnitOfWork) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

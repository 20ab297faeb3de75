package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-bank/atlas_core/internal/ledger"
	"github.com/atlas-bank/atlas_core/internal/logging"
	"github.com/atlas-bank/atlas_core/internal/transfer"
)

func newDispatcher(store *ledger.MemoryStore) *Dispatcher {
	return NewDispatcher(store, transfer.NewService(store, nil), logging.Discard())
}

func seedPair(store *ledger.MemoryStore, fromBalance string) (ledger.Account, ledger.Account) {
	from := ledger.SeedAccount(store, ledger.Account{
		Number: "4000000001", Type: ledger.AccountCurrent,
		Balance: decimal.RequireFromString(fromBalance), Active: true,
	})
	to := ledger.SeedAccount(store, ledger.Account{
		Number: "4000000002", Type: ledger.AccountCurrent,
		Balance: decimal.Zero, Active: true,
	})
	return from, to
}

func TestRunDueTransfersExecutesAndMarks(t *testing.T) {
	store := ledger.NewMemoryStore()
	d := newDispatcher(store)
	ctx := context.Background()
	from, to := seedPair(store, "100.00")

	now := time.Now().UTC()
	st, err := d.Schedule(ctx, from.ID, to.ID, decimal.RequireFromString("30.00"), now.Add(-time.Minute))
	require.NoError(t, err)

	d.RunDueTransfers(ctx, now)

	gotFrom, _ := store.Account(ctx, from.ID)
	gotTo, _ := store.Account(ctx, to.ID)
	assert.True(t, gotFrom.Balance.Equal(decimal.RequireFromString("70.00")))
	assert.True(t, gotTo.Balance.Equal(decimal.RequireFromString("30.00")))

	pending, _ := d.Pending(ctx)
	assert.Empty(t, pending, "executed transfer %s must not stay pending", st.ID)
}

func TestRunDueTransfersIsIdempotent(t *testing.T) {
	store := ledger.NewMemoryStore()
	d := newDispatcher(store)
	ctx := context.Background()
	from, to := seedPair(store, "100.00")

	now := time.Now().UTC()
	_, err := d.Schedule(ctx, from.ID, to.ID, decimal.RequireFromString("25.00"), now.Add(-time.Hour))
	require.NoError(t, err)

	d.RunDueTransfers(ctx, now)
	d.RunDueTransfers(ctx, now)

	gotFrom, _ := store.Account(ctx, from.ID)
	assert.True(t, gotFrom.Balance.Equal(decimal.RequireFromString("75.00")), "transfer ran more than once")

	all, _ := store.Transactions(ctx)
	assert.Len(t, all, 2, "exactly one debit and one credit leg")
}

func TestRunDueTransfersSkipsFutureItems(t *testing.T) {
	store := ledger.NewMemoryStore()
	d := newDispatcher(store)
	ctx := context.Background()
	from, to := seedPair(store, "100.00")

	now := time.Now().UTC()
	_, err := d.Schedule(ctx, from.ID, to.ID, decimal.RequireFromString("10.00"), now.Add(time.Hour))
	require.NoError(t, err)

	d.RunDueTransfers(ctx, now)

	gotFrom, _ := store.Account(ctx, from.ID)
	assert.True(t, gotFrom.Balance.Equal(decimal.RequireFromString("100.00")))
	pending, _ := d.Pending(ctx)
	assert.Len(t, pending, 1)
}

func TestRunDueTransfersIsolatesFailures(t *testing.T) {
	store := ledger.NewMemoryStore()
	d := newDispatcher(store)
	ctx := context.Background()
	from, to := seedPair(store, "50.00")

	now := time.Now().UTC()
	// First item overdraws and must fail; second is fine. Ordering is by
	// execution time, so the failing one runs first.
	failing, err := d.Schedule(ctx, from.ID, to.ID, decimal.RequireFromString("500.00"), now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = d.Schedule(ctx, from.ID, to.ID, decimal.RequireFromString("20.00"), now.Add(-time.Hour))
	require.NoError(t, err)

	d.RunDueTransfers(ctx, now)

	gotFrom, _ := store.Account(ctx, from.ID)
	gotTo, _ := store.Account(ctx, to.ID)
	assert.True(t, gotFrom.Balance.Equal(decimal.RequireFromString("30.00")), "second item must still run")
	assert.True(t, gotTo.Balance.Equal(decimal.RequireFromString("20.00")))

	pending, _ := d.Pending(ctx)
	require.Len(t, pending, 1, "failed item stays queued for the next scan")
	assert.Equal(t, failing.ID, pending[0].ID)

	// Fund the account; the retry on the next scan succeeds.
	ledger.SeedBalance(store, from.ID, decimal.RequireFromString("1000.00"))
	d.RunDueTransfers(ctx, now)
	pending, _ = d.Pending(ctx)
	assert.Empty(t, pending)
}

func TestScheduleValidation(t *testing.T) {
	store := ledger.NewMemoryStore()
	d := newDispatcher(store)
	ctx := context.Background()
	from, to := seedPair(store, "10.00")
	when := time.Now().UTC().Add(time.Hour)

	_, err := d.Schedule(ctx, from.ID, to.ID, decimal.Zero, when)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = d.Schedule(ctx, from.ID, from.ID, decimal.NewFromInt(1), when)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = d.Schedule(ctx, from.ID, "ghost", decimal.NewFromInt(1), when)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestRunnerRejectsBadExpression(t *testing.T) {
	r := NewRunner(logging.Discard())
	err := r.Add("broken", "not a cron line", func(context.Context, time.Time) {})
	require.Error(t, err)

	require.NoError(t, r.Add("dispatch", "*/10 * * * *", func(context.Context, time.Time) {}))

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	cancel()
}

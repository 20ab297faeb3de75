package interest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-bank/atlas_core/internal/ledger"
	"github.com/atlas-bank/atlas_core/internal/logging"
)

func newService(store *ledger.MemoryStore, rate string) *Service {
	return NewService(store, decimal.RequireFromString(rate), nil, logging.Discard())
}

func seedSavings(store *ledger.MemoryStore, balance string, createdAt time.Time, lastInterest *time.Time) ledger.Account {
	return ledger.SeedAccount(store, ledger.Account{
		Number:         "3000000001",
		Type:           ledger.AccountSavings,
		Balance:        decimal.RequireFromString(balance),
		Active:         true,
		CreatedAt:      createdAt,
		LastInterestAt: lastInterest,
	})
}

func TestCalculateAccruedCompoundsDaily(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := newService(store, "0.01")
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	a := seedSavings(store, "1000.00", created, nil)

	asOf := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC) // 3 whole calendar days
	got, err := svc.CalculateAccrued(ctx, a.ID, asOf)
	require.NoError(t, err)
	// 1000 * 1.01^3 - 1000 = 30.301, rounded half-up to 30.30.
	assert.True(t, got.Equal(decimal.RequireFromString("30.30")), "got %s", got)
}

func TestCalculateAccruedZeroDayFloor(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := newService(store, "0.01")
	ctx := context.Background()

	last := time.Now().UTC().Add(-6 * time.Hour)
	a := seedSavings(store, "1000.00", last.AddDate(-1, 0, 0), &last)

	got, err := svc.CalculateAccrued(ctx, a.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, got.IsZero(), "less than one whole day must accrue nothing, got %s", got)
}

func TestCalculateAccruedSkipsNonPositiveBalance(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := newService(store, "0.01")
	ctx := context.Background()

	a := seedSavings(store, "0.00", time.Now().UTC().AddDate(0, 0, -10), nil)
	got, err := svc.CalculateAccrued(ctx, a.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestCalculateAccruedRejectsIneligibleAccounts(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := newService(store, "0.01")
	ctx := context.Background()

	current := ledger.SeedAccount(store, ledger.Account{
		Number: "3000000002", Type: ledger.AccountCurrent,
		Balance: decimal.NewFromInt(100), Active: true,
		CreatedAt: time.Now().UTC().AddDate(0, 0, -5),
	})
	_, err := svc.CalculateAccrued(ctx, current.ID, time.Now().UTC())
	assert.ErrorIs(t, err, ledger.ErrValidation)

	frozen := ledger.SeedAccount(store, ledger.Account{
		Number: "3000000003", Type: ledger.AccountSavings,
		Balance: decimal.NewFromInt(100), Active: false,
		CreatedAt: time.Now().UTC().AddDate(0, 0, -5),
	})
	_, err = svc.CalculateAccrued(ctx, frozen.ID, time.Now().UTC())
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestApplyAccruedCreditsAndStamps(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := newService(store, "0.01")
	ctx := context.Background()

	a := seedSavings(store, "1000.00", time.Now().UTC().AddDate(0, 0, -3), nil)

	updated, err := svc.ApplyAccrued(ctx, a.ID, decimal.RequireFromString("30.30"))
	require.NoError(t, err)
	assert.True(t, updated.Balance.Equal(decimal.RequireFromString("1030.30")))
	require.NotNil(t, updated.LastInterestAt)

	txs, _ := store.TransactionsByAccount(ctx, a.ID)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.TypeDeposit, txs[0].Type)
	assert.Equal(t, "Interest credit", txs[0].Description)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("30.30")))

	stored, _ := store.Account(ctx, a.ID)
	require.NotNil(t, stored.LastInterestAt)
}

func TestApplyAccruedRejectsNonPositiveAmount(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := newService(store, "0.01")
	ctx := context.Background()
	a := seedSavings(store, "1000.00", time.Now().UTC().AddDate(0, 0, -3), nil)

	_, err := svc.ApplyAccrued(ctx, a.ID, decimal.Zero)
	assert.ErrorIs(t, err, ledger.ErrValidation)
	_, err = svc.ApplyAccrued(ctx, a.ID, decimal.RequireFromString("-1"))
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestRunDailyAccrualIsolatesFailures(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := newService(store, "0.01")
	ctx := context.Background()

	tenDaysAgo := time.Now().UTC().AddDate(0, 0, -10)
	healthy := ledger.SeedAccount(store, ledger.Account{
		Number: "3000000004", Type: ledger.AccountSavings,
		Balance: decimal.RequireFromString("500.00"), Active: true, CreatedAt: tenDaysAgo,
	})
	// Zero balance: skipped without error and without a transaction.
	broke := ledger.SeedAccount(store, ledger.Account{
		Number: "3000000005", Type: ledger.AccountSavings,
		Balance: decimal.Zero, Active: true, CreatedAt: tenDaysAgo,
	})

	require.NoError(t, svc.RunDailyAccrual(ctx, time.Now().UTC()))

	healthyTxs, _ := store.TransactionsByAccount(ctx, healthy.ID)
	assert.Len(t, healthyTxs, 1)
	brokeTxs, _ := store.TransactionsByAccount(ctx, broke.ID)
	assert.Empty(t, brokeTxs)

	got, _ := store.Account(ctx, healthy.ID)
	assert.True(t, got.Balance.GreaterThan(decimal.RequireFromString("500.00")))
}

func TestWholeDaysUsesCalendarDates(t *testing.T) {
	// 23:59 to 00:01 the next day is one whole day by calendar difference.
	from := time.Date(2026, 5, 1, 23, 59, 0, 0, time.UTC)
	to := time.Date(2026, 5, 2, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, wholeDays(from, to))

	// Almost 24 elapsed hours inside the same two dates is still one day.
	assert.Equal(t, 1, wholeDays(time.Date(2026, 5, 1, 0, 1, 0, 0, time.UTC), time.Date(2026, 5, 2, 23, 59, 0, 0, time.UTC)))

	assert.Equal(t, 0, wholeDays(time.Date(2026, 5, 1, 1, 0, 0, 0, time.UTC), time.Date(2026, 5, 1, 23, 0, 0, 0, time.UTC)))
}

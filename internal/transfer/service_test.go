package transfer

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-bank/atlas_core/internal/ledger"
	"github.com/atlas-bank/atlas_core/internal/notification"
)

type captureNotifier struct {
	last notification.Message
	sent int
}

func (n *captureNotifier) Send(_ context.Context, msg notification.Message) error {
	n.last = msg
	n.sent++
	return nil
}

func seed(t *testing.T, store *ledger.MemoryStore, number, balance string, active bool) ledger.Account {
	t.Helper()
	return ledger.SeedAccount(store, ledger.Account{
		Number:     number,
		CustomerID: "cust-" + number,
		Type:       ledger.AccountCurrent,
		Balance:    decimal.RequireFromString(balance),
		Active:     active,
	})
}

func TestTransferMovesFundsAtomically(t *testing.T) {
	store := ledger.NewMemoryStore()
	notifier := &captureNotifier{}
	svc := NewService(store, notifier)
	ctx := context.Background()

	src := seed(t, store, "1000000001", "500.00", true)
	dst := seed(t, store, "1000000002", "100.00", true)

	debit, err := svc.Transfer(ctx, src.ID, dst.ID, decimal.RequireFromString("120.50"))
	require.NoError(t, err)

	assert.Equal(t, src.ID, debit.AccountID)
	assert.True(t, debit.Amount.Equal(decimal.RequireFromString("-120.50")))
	assert.Equal(t, ledger.TypeTransfer, debit.Type)
	assert.Equal(t, ledger.StatusCompleted, debit.Status)
	assert.Contains(t, debit.Description, dst.Number)

	gotSrc, _ := store.Account(ctx, src.ID)
	gotDst, _ := store.Account(ctx, dst.ID)
	assert.True(t, gotSrc.Balance.Equal(decimal.RequireFromString("379.50")))
	assert.True(t, gotDst.Balance.Equal(decimal.RequireFromString("220.50")))

	srcTxs, _ := store.TransactionsByAccount(ctx, src.ID)
	dstTxs, _ := store.TransactionsByAccount(ctx, dst.ID)
	require.Len(t, srcTxs, 1)
	require.Len(t, dstTxs, 1)
	assert.Contains(t, dstTxs[0].Description, src.Number)
	assert.True(t, srcTxs[0].Amount.Add(dstTxs[0].Amount).IsZero(), "legs must cancel out")

	assert.Equal(t, 1, notifier.sent)
	assert.Equal(t, dst.CustomerID, notifier.last.Destination)
}

func TestTransferInsufficientFundsLeavesNoTrace(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	src := seed(t, store, "1000000001", "1000.00", true)
	dst := seed(t, store, "1000000002", "0.00", true)

	_, err := svc.Transfer(ctx, src.ID, dst.ID, decimal.RequireFromString("1500.00"))
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	gotSrc, _ := store.Account(ctx, src.ID)
	gotDst, _ := store.Account(ctx, dst.ID)
	assert.True(t, gotSrc.Balance.Equal(decimal.RequireFromString("1000.00")))
	assert.True(t, gotDst.Balance.IsZero())

	all, _ := store.Transactions(ctx)
	assert.Empty(t, all)
}

func TestTransferSameAccountRejected(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	src := seed(t, store, "1000000001", "100.00", true)

	_, err := svc.Transfer(ctx, src.ID, src.ID, decimal.RequireFromString("100.00"))
	assert.ErrorIs(t, err, ledger.ErrValidation)
	assert.ErrorContains(t, err, "same account")

	all, _ := store.Transactions(ctx)
	assert.Empty(t, all)
}

func TestTransferValidatesAmountFirst(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	_, err := svc.Transfer(ctx, "missing-a", "missing-b", decimal.Zero)
	assert.ErrorIs(t, err, ledger.ErrValidation, "amount check precedes account resolution")

	_, err = svc.Transfer(ctx, "missing-a", "missing-b", decimal.RequireFromString("-5"))
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestTransferNamesMissingSide(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	src := seed(t, store, "1000000001", "100.00", true)

	_, err := svc.Transfer(ctx, src.ID, "ghost", decimal.RequireFromString("10.00"))
	require.ErrorIs(t, err, ledger.ErrNotFound)
	assert.ErrorContains(t, err, "destination")

	_, err = svc.Transfer(ctx, "ghost", src.ID, decimal.RequireFromString("10.00"))
	require.ErrorIs(t, err, ledger.ErrNotFound)
	assert.ErrorContains(t, err, "source")
}

func TestTransferNamesInactiveSide(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	active := seed(t, store, "1000000001", "100.00", true)
	frozen := seed(t, store, "1000000002", "100.00", false)

	_, err := svc.Transfer(ctx, frozen.ID, active.ID, decimal.RequireFromString("10.00"))
	require.ErrorIs(t, err, ledger.ErrValidation)
	assert.ErrorContains(t, err, "source")

	_, err = svc.Transfer(ctx, active.ID, frozen.ID, decimal.RequireFromString("10.00"))
	require.ErrorIs(t, err, ledger.ErrValidation)
	assert.ErrorContains(t, err, "destination")

	all, _ := store.Transactions(ctx)
	assert.Empty(t, all)
}

func TestTransferConservesTotalUnderConcurrency(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	a := seed(t, store, "1000000001", "1000.00", true)
	b := seed(t, store, "1000000002", "1000.00", true)

	done := make(chan error, 40)
	amount := decimal.RequireFromString("1.00")
	for i := 0; i < 20; i++ {
		go func() {
			_, err := svc.Transfer(ctx, a.ID, b.ID, amount)
			done <- err
		}()
		go func() {
			_, err := svc.Transfer(ctx, b.ID, a.ID, amount)
			done <- err
		}()
	}
	for i := 0; i < 40; i++ {
		require.NoError(t, <-done)
	}

	gotA, _ := store.Account(ctx, a.ID)
	gotB, _ := store.Account(ctx, b.ID)
	total := gotA.Balance.Add(gotB.Balance)
	assert.True(t, total.Equal(decimal.RequireFromString("2000.00")), "total is %s", total)
}

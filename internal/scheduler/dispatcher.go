package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atlas-bank/atlas_core/internal/ledger"
	"github.com/atlas-bank/atlas_core/internal/transfer"
)

// Dispatcher owns scheduled transfers: queuing them and executing the due
// ones. Execution and the processed flag commit in the same unit of work,
// so a crash-restart never replays a transfer that already settled.
type Dispatcher struct {
	store     ledger.Store
	transfers *transfer.Service
	logger    *slog.Logger
}

// NewDispatcher builds a dispatcher.
func NewDispatcher(store ledger.Store, transfers *transfer.Service, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, transfers: transfers, logger: logger}
}

// Schedule queues a transfer for future execution. Account existence and
// amount are validated now; balance and active checks happen at execution
// time.
func (d *Dispatcher) Schedule(ctx context.Context, fromID, toID string, amount decimal.Decimal, when time.Time) (ledger.ScheduledTransfer, error) {
	if !amount.IsPositive() {
		return ledger.ScheduledTransfer{}, ledger.Validationf("transfer amount must be positive")
	}
	if fromID == toID {
		return ledger.ScheduledTransfer{}, ledger.Validationf("cannot transfer to the same account")
	}
	if _, err := d.store.Account(ctx, fromID); err != nil {
		return ledger.ScheduledTransfer{}, err
	}
	if _, err := d.store.Account(ctx, toID); err != nil {
		return ledger.ScheduledTransfer{}, err
	}

	st := ledger.ScheduledTransfer{
		ID:            uuid.NewString(),
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        amount,
		ExecuteAt:     when.UTC(),
	}
	if err := d.store.CreateScheduledTransfer(ctx, st); err != nil {
		return ledger.ScheduledTransfer{}, err
	}
	return st, nil
}

// Pending returns all unprocessed scheduled transfers.
func (d *Dispatcher) Pending(ctx context.Context) ([]ledger.ScheduledTransfer, error) {
	return d.store.PendingTransfers(ctx)
}

// RunDueTransfers executes every unprocessed transfer whose time has come,
// oldest first. A failing item is logged and left unprocessed for the next
// scan; it never blocks the rest of the batch.
func (d *Dispatcher) RunDueTransfers(ctx context.Context, now time.Time) {
	due, err := d.store.DueTransfers(ctx, now)
	if err != nil {
		d.logger.Error("due transfer scan failed", "error", err)
		return
	}
	for _, item := range due {
		if err := d.runOne(ctx, item); err != nil {
			d.logger.Error("scheduled transfer failed",
				"scheduled_id", item.ID,
				"from_account_id", item.FromAccountID,
				"to_account_id", item.ToAccountID,
				"error", err)
			continue
		}
		d.logger.Info("scheduled transfer executed",
			"scheduled_id", item.ID,
			"amount", item.Amount.StringFixed(2))
	}
}

func (d *Dispatcher) runOne(ctx context.Context, item ledger.ScheduledTransfer) error {
	uow, err := d.store.Begin(ctx)
	if err != nil {
		return err
	}
	if _, err := d.transfers.ExecuteIn(ctx, uow, item.FromAccountID, item.ToAccountID, item.Amount); err != nil {
		_ = uow.Rollback(ctx)
		return err
	}
	if err := uow.MarkProcessed(ctx, item.ID); err != nil {
		_ = uow.Rollback(ctx)
		return err
	}
	return uow.Commit(ctx)
}

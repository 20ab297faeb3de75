package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func seedTestAccount(s *MemoryStore, balance string) Account {
	return SeedAccount(s, Account{
		Type:    AccountCurrent,
		Balance: decimal.RequireFromString(balance),
		Active:  true,
	})
}

func TestMemoryStore_CommitAppliesStagedWrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := seedTestAccount(s, "100.00")

	uow, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := uow.SetBalance(ctx, a.ID, decimal.RequireFromString("150.00")); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	if _, err := uow.AppendTransaction(ctx, Transaction{
		AccountID: a.ID,
		Amount:    decimal.RequireFromString("50.00"),
		Type:      TypeDeposit,
		Status:    StatusCompleted,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := uow.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := s.Account(ctx, a.ID)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if !got.Balance.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("balance not applied, got %s", got.Balance)
	}
	txs, _ := s.TransactionsByAccount(ctx, a.ID)
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
}

func TestMemoryStore_RollbackDiscardsEverything(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := seedTestAccount(s, "100.00")

	uow, _ := s.Begin(ctx)
	_ = uow.SetBalance(ctx, a.ID, decimal.RequireFromString("999.00"))
	_, _ = uow.AppendTransaction(ctx, Transaction{AccountID: a.ID, Amount: decimal.New(899, 0), Type: TypeDeposit, Status: StatusCompleted})
	if err := uow.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	got, _ := s.Account(ctx, a.ID)
	if !got.Balance.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("rollback leaked balance write: %s", got.Balance)
	}
	txs, _ := s.TransactionsByAccount(ctx, a.ID)
	if len(txs) != 0 {
		t.Fatalf("rollback leaked %d transactions", len(txs))
	}
}

func TestMemoryStore_UnitOfWorkIsSingleUse(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := seedTestAccount(s, "10.00")

	uow, _ := s.Begin(ctx)
	if err := uow.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := uow.SetBalance(ctx, a.ID, decimal.Zero); err == nil {
		t.Fatal("expected error writing to finished unit of work")
	}
	if err := uow.Commit(ctx); err == nil {
		t.Fatal("expected error committing twice")
	}
}

func TestMemoryStore_ConcurrentUnitsOfWorkSerialize(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := seedTestAccount(s, "0.00")

	const workers = 20
	one := decimal.NewFromInt(1)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uow, err := s.Begin(ctx)
			if err != nil {
				t.Errorf("begin %d: %v", i, err)
				return
			}
			acct, err := uow.AccountForUpdate(ctx, a.ID)
			if err != nil {
				t.Errorf("load %d: %v", i, err)
				_ = uow.Rollback(ctx)
				return
			}
			if err := uow.SetBalance(ctx, a.ID, acct.Balance.Add(one)); err != nil {
				t.Errorf("set %d: %v", i, err)
				_ = uow.Rollback(ctx)
				return
			}
			if _, err := uow.AppendTransaction(ctx, Transaction{
				AccountID:   a.ID,
				Amount:      one,
				Type:        TypeDeposit,
				Status:      StatusCompleted,
				Description: fmt.Sprintf("deposit %d", i),
			}); err != nil {
				t.Errorf("append %d: %v", i, err)
				_ = uow.Rollback(ctx)
				return
			}
			if err := uow.Commit(ctx); err != nil {
				t.Errorf("commit %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := s.Account(ctx, a.ID)
	if !got.Balance.Equal(decimal.NewFromInt(workers)) {
		t.Fatalf("lost update, balance=%s want %d", got.Balance, workers)
	}
	txs, _ := s.TransactionsByAccount(ctx, a.ID)
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Amount)
	}
	if !sum.Equal(got.Balance) {
		t.Fatalf("transaction sum %s does not justify balance %s", sum, got.Balance)
	}
}

func TestMemoryStore_MarkProcessedIsMonotonic(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	st := ScheduledTransfer{ID: "sched-1", FromAccountID: "a", ToAccountID: "b",
		Amount: decimal.NewFromInt(5), ExecuteAt: time.Now().UTC()}
	if err := s.CreateScheduledTransfer(ctx, st); err != nil {
		t.Fatalf("create: %v", err)
	}

	uow, _ := s.Begin(ctx)
	if err := uow.MarkProcessed(ctx, st.ID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := uow.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	uow2, _ := s.Begin(ctx)
	defer uow2.Rollback(ctx)
	if err := uow2.MarkProcessed(ctx, st.ID); err == nil {
		t.Fatal("expected conflict marking a processed transfer again")
	}
}

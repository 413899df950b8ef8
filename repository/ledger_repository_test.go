package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"profitpulse/domain"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDocumentLedgerRepository_LoadEmpty(t *testing.T) {
	repo := NewDocumentLedgerRepository(NewMemoryStore(), "")

	ledger, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ledger.Transactions) != 0 || len(ledger.Debts) != 0 || len(ledger.Budgets) != 0 {
		t.Errorf("expected an empty ledger, got %+v", ledger)
	}
}

func TestDocumentLedgerRepository_SaveAndLoad(t *testing.T) {
	store := NewMemoryStore()
	repo := NewDocumentLedgerRepository(store, "")
	ctx := context.Background()

	due := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	ledger := domain.Ledger{
		Transactions: []domain.Transaction{{
			ID: "t1", Type: domain.TransactionExpense, Category: "Debt", Amount: 200,
			IsRecurring: true, Recurrence: domain.RecurrenceMonthly, NextDueDate: &due, SourceDebtID: "d1",
		}},
		Debts: []domain.Debt{{ID: "d1", Name: "Car", Balance: 1200, InterestRate: 12, MonthlyPayment: 200}},
	}
	if err := repo.Save(ctx, ledger); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.Get(ctx, DefaultLedgerKey); err != nil {
		t.Fatalf("expected the document under %q: %v", DefaultLedgerKey, err)
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := loaded.Transactions[0]
	if got.SourceDebtID != "d1" || got.NextDueDate == nil || !got.NextDueDate.Equal(due) {
		t.Errorf("unexpected transaction after reload: %+v", got)
	}
}

func TestDocumentLedgerRepository_CorruptDocument(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Set(context.Background(), "ledger", "{not json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo := NewDocumentLedgerRepository(store, "ledger")
	if _, err := repo.Load(context.Background()); err == nil {
		t.Errorf("expected a decode error")
	}
}

func TestDocumentBusinessRepository_SeparateDocument(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ledgers := NewDocumentLedgerRepository(store, "")
	business := NewDocumentBusinessRepository(store, "")

	empty, err := business.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(empty.Inventory) != 0 || len(empty.Accounts) != 0 {
		t.Errorf("expected an empty business ledger, got %+v", empty)
	}

	doc := domain.BusinessLedger{
		Inventory: []domain.Product{{ID: "p1", Name: "Mug", SKU: "MUG-1", Price: 12, Cost: 5, Quantity: 10}},
	}
	if err := business.Save(ctx, doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get(ctx, DefaultBusinessKey); err != nil {
		t.Fatalf("expected the document under %q: %v", DefaultBusinessKey, err)
	}
	if _, err := store.Get(ctx, DefaultLedgerKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected the personal ledger untouched, got %v", err)
	}

	loaded, err := business.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loaded.Inventory) != 1 || loaded.Inventory[0].SKU != "MUG-1" {
		t.Errorf("unexpected inventory after reload: %+v", loaded.Inventory)
	}

	personal, err := ledgers.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(personal.Transactions) != 0 {
		t.Errorf("expected an empty personal ledger, got %+v", personal)
	}
}

package wallet

import (
	"context"
	"strings"
	"testing"

	"shuttle/internal/types"
)

func newTestService() *Service {
	return NewService(NewMemoryStore(), nil, nil)
}

func mustBalance(t *testing.T, svc *Service, rider types.ID) types.Money {
	t.Helper()
	bal, err := svc.Balance(context.Background(), rider)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

func TestCreditAndDebit(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	rider := types.ID("r1")

	if _, err := svc.Credit(ctx, rider, 1000, "top-up"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if got := mustBalance(t, svc, rider); got != 1000 {
		t.Fatalf("balance after credit = %s, want 10.00", got)
	}

	if _, err := svc.Debit(ctx, rider, 350, "fare", nil); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if got := mustBalance(t, svc, rider); got != 650 {
		t.Fatalf("balance after debit = %s, want 6.50", got)
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	rider := types.ID("r_poor")

	if _, err := svc.Credit(ctx, rider, 50, "top-up"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := svc.Debit(ctx, rider, 100, "fare", nil); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	// A rejected debit leaves no trace in the ledger.
	if got := mustBalance(t, svc, rider); got != 50 {
		t.Fatalf("balance changed on rejected debit: %s", got)
	}
	history, err := svc.History(ctx, rider)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(history))
	}
}

func TestDebitExactBalance(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	rider := types.ID("r_exact")

	if _, err := svc.Credit(ctx, rider, 100, "top-up"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := svc.Debit(ctx, rider, 100, "fare", nil); err != nil {
		t.Fatalf("debit of exact balance should succeed: %v", err)
	}
	if got := mustBalance(t, svc, rider); got != 0 {
		t.Fatalf("balance = %s, want 0.00", got)
	}
}

func TestBadAmounts(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	rider := types.ID("r_bad")

	if _, err := svc.Credit(ctx, rider, 0, "zero"); err != ErrBadAmount {
		t.Errorf("credit zero: expected ErrBadAmount, got %v", err)
	}
	if _, err := svc.Credit(ctx, rider, -100, "negative"); err != ErrBadAmount {
		t.Errorf("credit negative: expected ErrBadAmount, got %v", err)
	}
	if _, err := svc.Debit(ctx, rider, 0, "zero", nil); err != ErrBadAmount {
		t.Errorf("debit zero: expected ErrBadAmount, got %v", err)
	}
	if _, err := svc.Adjust(ctx, rider, 0, "zero"); err != ErrBadAmount {
		t.Errorf("adjust zero: expected ErrBadAmount, got %v", err)
	}
}

func TestAdjustMayGoNegative(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	rider := types.ID("r_debt")

	if _, err := svc.Adjust(ctx, rider, -500, "damage fee"); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if got := mustBalance(t, svc, rider); got != -500 {
		t.Fatalf("balance = %s, want -5.00", got)
	}
	if _, err := svc.Adjust(ctx, rider, 700, "refund"); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if got := mustBalance(t, svc, rider); got != 200 {
		t.Fatalf("balance = %s, want 2.00", got)
	}
}

func TestDebitUpToDrainsToZero(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	rider := types.ID("r_drain")

	if _, err := svc.Credit(ctx, rider, 300, "top-up"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	tx, err := svc.DebitUpTo(ctx, rider, 350, "forced closure", nil)
	if err != nil {
		t.Fatalf("debit up to: %v", err)
	}
	if tx.Amount != -300 {
		t.Fatalf("charged %s, want -3.00", tx.Amount)
	}
	if !strings.Contains(tx.Reason, "shortfall 0.50") {
		t.Fatalf("reason does not record shortfall: %q", tx.Reason)
	}
	if got := mustBalance(t, svc, rider); got != 0 {
		t.Fatalf("balance = %s, want 0.00", got)
	}
}

func TestDebitUpToFullCover(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	rider := types.ID("r_cover")

	if _, err := svc.Credit(ctx, rider, 1000, "top-up"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	tx, err := svc.DebitUpTo(ctx, rider, 350, "forced closure", nil)
	if err != nil {
		t.Fatalf("debit up to: %v", err)
	}
	if tx.Amount != -350 {
		t.Fatalf("charged %s, want -3.50", tx.Amount)
	}
	if strings.Contains(tx.Reason, "shortfall") {
		t.Fatalf("unexpected shortfall note: %q", tx.Reason)
	}
}

// TestBalanceMatchesLedger replays a mixed sequence and checks the derived
// balance equals the sum of recorded amounts.
func TestBalanceMatchesLedger(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	rider := types.ID("r_replay")

	ops := []func() error{
		func() error { _, err := svc.Credit(ctx, rider, 1000, "top-up"); return err },
		func() error { _, err := svc.Debit(ctx, rider, 350, "fare", nil); return err },
		func() error { _, err := svc.Adjust(ctx, rider, -200, "correction"); return err },
		func() error { _, err := svc.Credit(ctx, rider, 125, "top-up"); return err },
		func() error { _, err := svc.DebitUpTo(ctx, rider, 900, "forced closure", nil); return err },
	}
	for i, op := range ops {
		if err := op(); err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
	}

	history, err := svc.History(ctx, rider)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var sum types.Money
	for _, tx := range history {
		sum += tx.Amount
	}
	if got := mustBalance(t, svc, rider); got != sum {
		t.Fatalf("balance %s != ledger sum %s", got, sum)
	}
	if got := mustBalance(t, svc, rider); got != 0 {
		t.Fatalf("balance = %s, want 0.00 after drain", got)
	}
}

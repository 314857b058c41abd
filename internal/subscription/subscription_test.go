package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/laurindocbenjamim/voxscribe/internal/config"
)

func testConfig() config.SubscriptionConfig {
	return config.SubscriptionConfig{
		Enabled:             true,
		FreeSecondsPerMonth: 100,
		ProSecondsPerMonth:  1000,
	}
}

func TestAuthorizeWithinBudget(t *testing.T) {
	m := NewManager(testConfig(), NewMemoryStore(), nil)
	if err := m.Authorize(context.Background(), "acct", 100); err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
}

func TestAuthorizeOverBudget(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(testConfig(), store, nil)
	ctx := context.Background()

	if err := m.Record(ctx, "acct", 60); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := m.Authorize(ctx, "acct", 50); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if err := m.Authorize(ctx, "acct", 40); err != nil {
		t.Fatalf("authorize under budget failed: %v", err)
	}
}

func TestPlanBudgets(t *testing.T) {
	resolve := func(id string) string {
		if id == "pro-user" {
			return PlanPro
		}
		return PlanFree
	}
	m := NewManager(testConfig(), NewMemoryStore(), resolve)
	if got := m.Budget("pro-user"); got != 1000 {
		t.Fatalf("pro budget = %d, want 1000", got)
	}
	if got := m.Budget("anyone"); got != 100 {
		t.Fatalf("free budget = %d, want 100", got)
	}
}

func TestPeriodRollover(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(testConfig(), store, nil)
	now := time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC)
	m.clock = func() time.Time { return now }
	ctx := context.Background()

	if err := m.Record(ctx, "acct", 100); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := m.Authorize(ctx, "acct", 1); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected exhaustion in january, got %v", err)
	}

	now = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if err := m.Authorize(ctx, "acct", 100); err != nil {
		t.Fatalf("february budget not fresh: %v", err)
	}
}

func TestDisabledSkipsAccounting(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	m := NewManager(cfg, NewMemoryStore(), nil)
	if err := m.Authorize(context.Background(), "acct", 1e9); err != nil {
		t.Fatalf("disabled manager should allow everything: %v", err)
	}
}

func TestRemaining(t *testing.T) {
	m := NewManager(testConfig(), NewMemoryStore(), nil)
	ctx := context.Background()
	if err := m.Record(ctx, "acct", 30); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	left, err := m.Remaining(ctx, "acct")
	if err != nil {
		t.Fatalf("remaining failed: %v", err)
	}
	if left != 70 {
		t.Fatalf("remaining = %v, want 70", left)
	}
}

// Package subscription enforces per-account monthly audio budgets. It is an
// explicit, injectable state store: handlers ask the Manager before running
// a pipeline and record consumption afterwards.
package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/laurindocbenjamim/voxscribe/internal/config"
)

// ErrQuotaExceeded is returned when an account has no remaining budget.
var ErrQuotaExceeded = fmt.Errorf("subscription quota exceeded")

// Plan names.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// Store persists usage counters keyed by account and billing period.
type Store interface {
	AddUsage(ctx context.Context, accountID, period string, seconds float64) error
	UsageSeconds(ctx context.Context, accountID, period string) (float64, error)
}

// PlanResolver maps an account to its plan name.
type PlanResolver func(accountID string) string

// Manager answers "may this account transcribe N more seconds this month".
type Manager struct {
	cfg     config.SubscriptionConfig
	store   Store
	resolve PlanResolver
	clock   func() time.Time
}

func NewManager(cfg config.SubscriptionConfig, store Store, resolve PlanResolver) *Manager {
	if resolve == nil {
		resolve = func(string) string { return PlanFree }
	}
	return &Manager{cfg: cfg, store: store, resolve: resolve, clock: time.Now}
}

// Budget returns the monthly second budget for an account's plan.
func (m *Manager) Budget(accountID string) int {
	switch m.resolve(accountID) {
	case PlanPro:
		return m.cfg.ProSecondsPerMonth
	default:
		return m.cfg.FreeSecondsPerMonth
	}
}

// Authorize fails with ErrQuotaExceeded when the requested seconds would
// push the account past its monthly budget.
func (m *Manager) Authorize(ctx context.Context, accountID string, seconds float64) error {
	if !m.cfg.Enabled {
		return nil
	}
	used, err := m.store.UsageSeconds(ctx, accountID, m.period())
	if err != nil {
		return fmt.Errorf("read usage: %w", err)
	}
	if used+seconds > float64(m.Budget(accountID)) {
		return fmt.Errorf("%w: %.0fs used of %ds", ErrQuotaExceeded, used, m.Budget(accountID))
	}
	return nil
}

// Record charges consumed seconds against the current period.
func (m *Manager) Record(ctx context.Context, accountID string, seconds float64) error {
	if !m.cfg.Enabled {
		return nil
	}
	return m.store.AddUsage(ctx, accountID, m.period(), seconds)
}

// Remaining reports the seconds left in the current period.
func (m *Manager) Remaining(ctx context.Context, accountID string) (float64, error) {
	used, err := m.store.UsageSeconds(ctx, accountID, m.period())
	if err != nil {
		return 0, err
	}
	remaining := float64(m.Budget(accountID)) - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (m *Manager) period() string {
	return m.clock().UTC().Format("2006-01")
}

// MemoryStore is an in-memory Store for tests and ephemeral deployments.
type MemoryStore struct {
	mu    sync.Mutex
	usage map[string]float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{usage: make(map[string]float64)}
}

func (s *MemoryStore) AddUsage(_ context.Context, accountID, period string, seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[accountID+"/"+period] += seconds
	return nil
}

func (s *MemoryStore) UsageSeconds(_ context.Context, accountID, period string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage[accountID+"/"+period], nil
}

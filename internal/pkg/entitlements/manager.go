package entitlements

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrQuotaExhausted is wrapped by the tier-specific denial returned from
// the quota gate when neither a window nor credits cover a request.
var ErrQuotaExhausted = errors.New("entitlements: quota exhausted")

// QuotaExhaustedError carries the tier that ran dry so callers can tell
// the user which package to buy.
type QuotaExhaustedError struct {
	Tier Tier
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("entitlements: quota exhausted for tier %s", e.Tier)
}

func (e *QuotaExhaustedError) Unwrap() error { return ErrQuotaExhausted }

// Manager owns entitlement writes. Both operations run exactly once per
// paid order; replay suppression happens upstream in the payment engine.
type Manager struct {
	store Store
	now   func() time.Time
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// GrantWindow extends the user's window for the tier by d. An active
// window stacks; an expired or absent one starts fresh from now.
func (m *Manager) GrantWindow(ctx context.Context, userID uint, tier Tier, d time.Duration) error {
	if d <= 0 {
		return errors.New("entitlements: duration must be positive")
	}
	_, err := m.store.ExtendWindow(ctx, userID, tier, d, m.now())
	return err
}

// AddCredits adds one-shot usage credits for the tier.
func (m *Manager) AddCredits(ctx context.Context, userID uint, tier Tier, n int) error {
	if n <= 0 {
		return errors.New("entitlements: credit count must be positive")
	}
	return m.store.AddCredits(ctx, userID, tier, n)
}

// Gate authorizes chat requests against entitlement state. Decision order:
// active window wins unconditionally, then an atomic credit decrement,
// then a tier-specific denial.
type Gate struct {
	store Store
	now   func() time.Time
}

func NewGate(store Store) *Gate {
	return &Gate{store: store, now: time.Now}
}

// Authorize permits one request of the given tier or returns
// *QuotaExhaustedError. A window-covered request consumes nothing.
func (g *Gate) Authorize(ctx context.Context, userID uint, tier Tier) error {
	w, err := g.store.GetWindow(ctx, userID, tier)
	if err != nil {
		return err
	}
	if w != nil && w.IsActiveAt(g.now()) {
		return nil
	}

	ok, err := g.store.ConsumeCredit(ctx, userID, tier)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return &QuotaExhaustedError{Tier: tier}
}

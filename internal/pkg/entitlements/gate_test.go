package entitlements

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateWindowAllowsWithoutConsumingCredits(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.ExtendWindow(ctx, 1, TierStandard, 24*time.Hour, now)
	require.NoError(t, err)
	require.NoError(t, store.AddCredits(ctx, 1, TierStandard, 3))

	g := NewGate(store)
	g.now = func() time.Time { return now.Add(time.Hour) }

	for i := 0; i < 5; i++ {
		require.NoError(t, g.Authorize(ctx, 1, TierStandard))
	}

	n, err := store.GetCredits(ctx, 1, TierStandard)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "window access must not burn credits")
}

func TestGateFallsBackToCreditsWhenWindowExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.ExtendWindow(ctx, 1, TierStandard, 24*time.Hour, now)
	require.NoError(t, err)
	require.NoError(t, store.AddCredits(ctx, 1, TierStandard, 1))

	g := NewGate(store)
	g.now = func() time.Time { return now.Add(48 * time.Hour) }

	require.NoError(t, g.Authorize(ctx, 1, TierStandard))

	err = g.Authorize(ctx, 1, TierStandard)
	assert.ErrorIs(t, err, ErrQuotaExhausted)

	var qe *QuotaExhaustedError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, TierStandard, qe.Tier)
}

func TestGateDenialIsTierSpecific(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.AddCredits(ctx, 1, TierStandard, 1))

	g := NewGate(store)

	require.NoError(t, g.Authorize(ctx, 1, TierStandard))

	var qe *QuotaExhaustedError
	err := g.Authorize(ctx, 1, TierAdvanced)
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, TierAdvanced, qe.Tier)
}

func TestGateLastCreditRace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.AddCredits(ctx, 1, TierAdvanced, 1))

	g := NewGate(store)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.Authorize(ctx, 1, TierAdvanced)
		}(i)
	}
	wg.Wait()

	allowed := 0
	for _, err := range results {
		if err == nil {
			allowed++
		} else {
			assert.ErrorIs(t, err, ErrQuotaExhausted)
		}
	}
	assert.Equal(t, 1, allowed, "exactly one concurrent request may consume the last credit")

	n, err := store.GetCredits(ctx, 1, TierAdvanced)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

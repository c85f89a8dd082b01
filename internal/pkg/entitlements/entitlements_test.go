package entitlements

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierForModel(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{in: "gpt-3.5-turbo", want: TierStandard},
		{in: "gpt-4", want: TierAdvanced},
		{in: "gpt-4o-mini", want: TierAdvanced},
		{in: "GPT-4", want: TierAdvanced},
		{in: "o1-preview", want: TierAdvanced},
		{in: "", want: TierStandard},
	}

	for _, tt := range tests {
		if got := TierForModel(tt.in); got != tt.want {
			t.Fatalf("TierForModel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNextWindowStacksWhileActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	curStart := now.Add(-10 * 24 * time.Hour)
	curEnd := now.Add(5 * 24 * time.Hour)
	d := 30 * 24 * time.Hour

	start, end := NextWindow(now, &curStart, &curEnd, d)

	assert.Equal(t, curStart, start, "active window keeps its start")
	assert.Equal(t, curEnd.Add(d), end, "active window end is pushed forward")
}

func TestNextWindowFreshWhenExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	curStart := now.Add(-40 * 24 * time.Hour)
	curEnd := now.Add(-10 * 24 * time.Hour)
	d := 30 * 24 * time.Hour

	start, end := NextWindow(now, &curStart, &curEnd, d)

	assert.Equal(t, now, start)
	assert.Equal(t, now.Add(d), end)
}

func TestNextWindowFreshWhenAbsent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := 7 * 24 * time.Hour

	start, end := NextWindow(now, nil, nil, d)

	assert.Equal(t, now, start)
	assert.Equal(t, now.Add(d), end)
}

func TestNextWindowBoundaryNowEqualsEnd(t *testing.T) {
	// now == end means the window is no longer active; [start, end) is
	// half-open, so the purchase starts fresh.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	curStart := now.Add(-30 * 24 * time.Hour)
	curEnd := now
	d := 30 * 24 * time.Hour

	start, end := NextWindow(now, &curStart, &curEnd, d)

	assert.Equal(t, now, start)
	assert.Equal(t, now.Add(d), end)
}

func TestManagerGrantWindowNeverShortens(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.GrantWindow(ctx, 1, TierStandard, 30*24*time.Hour))
	first, err := store.GetWindow(ctx, 1, TierStandard)
	require.NoError(t, err)

	require.NoError(t, m.GrantWindow(ctx, 1, TierStandard, 7*24*time.Hour))
	second, err := store.GetWindow(ctx, 1, TierStandard)
	require.NoError(t, err)

	assert.True(t, second.EndAt.After(first.EndAt), "extension must not shorten the window")
	assert.Equal(t, first.StartAt, second.StartAt)
	assert.Equal(t, first.EndAt.Add(7*24*time.Hour), second.EndAt)
}

func TestManagerAddCredits(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)

	require.NoError(t, m.AddCredits(ctx, 1, TierAdvanced, 10))
	require.NoError(t, m.AddCredits(ctx, 1, TierAdvanced, 5))

	n, err := store.GetCredits(ctx, 1, TierAdvanced)
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	assert.Error(t, m.AddCredits(ctx, 1, TierAdvanced, 0))
	assert.Error(t, m.GrantWindow(ctx, 1, TierAdvanced, 0))
}

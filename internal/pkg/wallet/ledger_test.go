package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestLedgerCreditDebit(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	require.NoError(t, l.Credit(ctx, 1, dec("10.00")))
	require.NoError(t, l.Debit(ctx, 1, dec("3.50")))

	bal, err := l.Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("6.50")), "balance = %s", bal)
}

func TestLedgerDebitInsufficientLeavesBalanceUnchanged(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	require.NoError(t, l.Credit(ctx, 1, dec("10.00")))

	err := l.Debit(ctx, 1, dec("10.01"))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	bal, err := l.Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("10.00")), "balance = %s", bal)
}

func TestLedgerDebitToExactlyZero(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	require.NoError(t, l.Credit(ctx, 1, dec("10.00")))
	require.NoError(t, l.Debit(ctx, 1, dec("10.00")))

	bal, err := l.Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, bal.IsZero(), "balance = %s", bal)
}

func TestLedgerRejectsNonPositiveAmounts(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	assert.ErrorIs(t, l.Credit(ctx, 1, decimal.Zero), ErrInvalidAmount)
	assert.ErrorIs(t, l.Debit(ctx, 1, dec("-1.00")), ErrInvalidAmount)
}

func TestLedgerNeverGoesNegativeUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	require.NoError(t, l.Credit(ctx, 1, dec("5.00")))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Debit(ctx, 1, dec("1.00")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	bal, err := l.Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, bal.IsZero(), "balance = %s", bal)
}

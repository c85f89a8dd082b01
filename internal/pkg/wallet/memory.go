package wallet

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryLedger is an in-memory Ledger with the same atomicity semantics as
// the GORM implementation. Intended for tests and local development.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[uint]decimal.Decimal
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[uint]decimal.Decimal)}
}

func (l *MemoryLedger) Credit(_ context.Context, userID uint, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = l.balances[userID].Add(amount)
	return nil
}

func (l *MemoryLedger) Debit(_ context.Context, userID uint, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.balances[userID]
	if cur.LessThan(amount) {
		return ErrInsufficientBalance
	}
	l.balances[userID] = cur.Sub(amount)
	return nil
}

func (l *MemoryLedger) Balance(_ context.Context, userID uint) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}

package wallet

import (
	"context"
	"errors"

	"github.com/lumichat/lumichat/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrInsufficientBalance is returned by Debit when the post-condition
	// balance would be negative. The balance is left unchanged.
	ErrInsufficientBalance = errors.New("wallet: insufficient balance")
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("wallet: amount must be positive")
)

// Ledger mutates per-user balances. Both operations are atomic with respect
// to concurrent mutations on the same user; deliveries may arrive on
// independent processes, so serialization happens in the store, not here.
type Ledger interface {
	Credit(ctx context.Context, userID uint, amount decimal.Decimal) error
	Debit(ctx context.Context, userID uint, amount decimal.Decimal) error
	Balance(ctx context.Context, userID uint) (decimal.Decimal, error)
}

type gormLedger struct {
	db *gorm.DB
}

// NewLedger creates a wallet ledger backed by GORM.
func NewLedger(db *gorm.DB) Ledger {
	return &gormLedger{db: db}
}

func (l *gormLedger) Credit(ctx context.Context, userID uint, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	// Upsert so a first-ever credit creates the wallet row.
	return l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", amount),
		}),
	}).Create(&models.Wallet{UserID: userID, Balance: amount}).Error
}

func (l *gormLedger) Debit(ctx context.Context, userID uint, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	// Conditional update: the balance >= amount guard makes the debit and
	// its precondition a single atomic statement. Zero rows affected means
	// either no wallet or not enough funds; both reject without clamping.
	res := l.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func (l *gormLedger) Balance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var w models.Wallet
	err := l.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

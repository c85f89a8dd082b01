package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending          = "pending"
	OrderStatusPaid             = "paid"
	OrderStatusFailed           = "failed"
	OrderStatusErrorReconciling = "error_reconciling"
)

// Order is the root of a payment reconciliation unit. Wallet, entitlement
// and referral writes happen only as reactions to an order reaching paid.
type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderNo       string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_no"`
	TradeNo       string          `gorm:"type:varchar(64);not null;default:'';index" json:"trade_no"`
	GatewayID     string          `gorm:"type:varchar(32);not null;default:''" json:"gateway_id"`
	PayType       string          `gorm:"type:varchar(20);not null;default:''" json:"pay_type"`
	ProductCode   string          `gorm:"type:varchar(64);not null;index" json:"product_code"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	WalletPortion decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"wallet_portion"`
	Status        string          `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	ReconcileNote string          `gorm:"type:text" json:"reconcile_note"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the order already reached a final reconciled
// state. Terminal orders are never mutated again; a replayed notification
// for them is acknowledged as a no-op.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusPaid, OrderStatusFailed, OrderStatusErrorReconciling:
		return true
	default:
		return false
	}
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ReferralLevelDirect   = 1
	ReferralLevelIndirect = 2
)

const (
	RewardKindBalance = "balance"
	RewardKindCredits = "credits"
)

// ReferralEdge is the directed referrer -> referred relation, created once
// at registration from the inviter's invitation code and never changed.
type ReferralEdge struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReferrerID uint      `gorm:"not null;index" json:"referrer_id"`
	ReferredID uint      `gorm:"not null;index:ux_referral_edges_referred_level,unique,priority:1" json:"referred_id"`
	Level      int       `gorm:"not null;index:ux_referral_edges_referred_level,unique,priority:2" json:"level"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ReferralRewardRecord is the append-only payout ledger. The unique
// (order_no, referrer_id) pair doubles as the cascade's idempotency marker.
type ReferralRewardRecord struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderNo    string          `gorm:"type:varchar(64);not null;index:ux_referral_rewards_order_referrer,unique,priority:1" json:"order_no"`
	ReferrerID uint            `gorm:"not null;index:ux_referral_rewards_order_referrer,unique,priority:2;index" json:"referrer_id"`
	ReferredID uint            `gorm:"not null;index" json:"referred_id"`
	Kind       string          `gorm:"type:varchar(16);not null;default:'balance'" json:"kind"`
	Amount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Level      int             `gorm:"not null" json:"level"`
	CreatedAt  time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

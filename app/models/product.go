package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProductKindWindow  = "window"
	ProductKindCredits = "credits"
)

// Product is a purchasable SKU. A window product extends a time-boxed
// entitlement for its tier, a credits product adds one-shot usage credits.
type Product struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Code         string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	Name         string          `gorm:"type:varchar(150);not null" json:"name"`
	Tier         string          `gorm:"type:varchar(32);not null;index" json:"tier"`
	Kind         string          `gorm:"type:varchar(16);not null" json:"kind"`
	DurationDays int             `gorm:"not null;default:0" json:"duration_days"`
	CreditCount  int             `gorm:"not null;default:0" json:"credit_count"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	IsActive     bool            `gorm:"default:true;index" json:"is_active"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

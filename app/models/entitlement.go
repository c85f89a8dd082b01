package models

import "time"

// EntitlementWindow is a [start, end) interval during which a user's tier
// access is unconditionally active. Extension never shortens a window.
type EntitlementWindow struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:ux_entitlement_windows_user_tier,unique,priority:1" json:"user_id"`
	Tier      string    `gorm:"type:varchar(32);not null;index:ux_entitlement_windows_user_tier,unique,priority:2" json:"tier"`
	StartAt   time.Time `gorm:"type:timestamp;not null" json:"start_at"`
	EndAt     time.Time `gorm:"type:timestamp;not null;index" json:"end_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActiveAt reports whether the window covers the given instant.
func (w *EntitlementWindow) IsActiveAt(t time.Time) bool {
	return !t.Before(w.StartAt) && t.Before(w.EndAt)
}

// UsageCredit counts one-shot uses per tier, consumed only when no window
// is active. Decrements are atomic decrement-if-positive.
type UsageCredit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:ux_usage_credits_user_tier,unique,priority:1" json:"user_id"`
	Tier      string    `gorm:"type:varchar(32);not null;index:ux_usage_credits_user_tier,unique,priority:2" json:"tier"`
	Remaining int       `gorm:"not null;default:0" json:"remaining"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

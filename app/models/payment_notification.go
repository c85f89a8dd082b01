package models

import "time"

// PaymentNotification stores raw gateway callbacks with deduplication
// metadata so operators can audit every delivery, valid or not.
type PaymentNotification struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	TradeNo         string     `gorm:"type:varchar(64);not null;default:'';index" json:"trade_no"`
	OutTradeNo      string     `gorm:"type:varchar(64);not null;default:'';index" json:"out_trade_no"`
	RawQuery        string     `gorm:"type:longtext;not null" json:"raw_query"`
	SignatureValid  bool       `gorm:"default:false;index" json:"signature_valid"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

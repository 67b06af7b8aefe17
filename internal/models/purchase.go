package models

import (
	"time"
)

// Purchase records the outcome of a buy attempt. Transient from the UI's
// point of view, kept server-side for the runs/analytics endpoints.
type Purchase struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	RunID   string `gorm:"type:varchar(40);not null;index"`
	TokenID uint64 `gorm:"not null;index"`

	Buyer    string `gorm:"type:varchar(100);not null;index"`
	Seller   string `gorm:"type:varchar(100)"`
	PriceE8s uint64 `gorm:"not null"`

	Status        string `gorm:"type:varchar(20);not null;index"`
	FailureReason string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Purchase) TableName() string {
	return "purchases"
}

const (
	PurchaseStatusCompleted   = "completed"
	PurchaseStatusUnavailable = "unavailable"
	PurchaseStatusFailed      = "failed"
)

package models

import (
	"time"
)

// Profile carries the denormalized point balance shown on every screen.
// The ledger is authoritative; this value is maintained by the adjustment
// service and resynchronized by reconciliation when it drifts.
type Profile struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:uk_user" json:"user_id"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

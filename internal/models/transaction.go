package models

import (
	"time"
)

// Well-known transaction types. Type is free-form on purpose: vendor
// integrations tag their own categories and the ledger does not care.
const (
	TypePurchase    = "purchase"
	TypeAdjustment  = "adjustment"
	TypeRestoration = "restoration"
)

// PointTransaction is one row of the loyalty ledger. Rows are immutable
// once written; the only deletion path is duplicate removal during
// reconciliation.
type PointTransaction struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	TxID           string    `gorm:"size:36;not null;uniqueIndex:uk_tx" json:"id"`
	UserID         string    `gorm:"size:64;not null;index:idx_user_created" json:"user_id"`
	Points         int64     `gorm:"not null" json:"points"`
	Type           string    `gorm:"size:50;not null" json:"type"`
	Description    string    `gorm:"size:255;not null" json:"description"`
	ReferenceID    string    `gorm:"size:64" json:"reference_id,omitempty"`
	IdempotencyKey *string   `gorm:"size:64;uniqueIndex:uk_idempotency" json:"-"`
	CreatedAt      time.Time `gorm:"not null;index:idx_user_created" json:"created_at"`
}

func (PointTransaction) TableName() string {
	return "point_transactions"
}

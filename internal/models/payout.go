package models

import (
	"time"

	"gorm.io/gorm"
)

type Payout struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	HostID        uint           `gorm:"not null;index" json:"host_id"`
	AmountCents   int64          `gorm:"not null" json:"amount_cents"`
	Currency      string         `gorm:"size:3;not null" json:"currency"`
	Status        string         `gorm:"size:20;not null;index" json:"status"` // PENDING, COMPLETED, FAILED
	Destination   string         `gorm:"size:255;not null" json:"destination"`
	TransferID    string         `gorm:"size:255" json:"transfer_id"`
	FailureReason string         `gorm:"size:255" json:"failure_reason,omitempty"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	ProcessedAt   *time.Time     `json:"processed_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Host *Host `gorm:"foreignKey:HostID" json:"-"`
}

func (Payout) TableName() string {
	return "payouts"
}

// LedgerEntry records every change to a host balance.
type LedgerEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	HostID      uint      `gorm:"not null;index" json:"host_id"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`       // positive = credit, negative = debit
	Type        string    `gorm:"size:30;not null;index" json:"type"` // EARNING, PAYOUT, PAYOUT_REVERSAL
	Reference   string    `gorm:"size:128" json:"reference"`          // e.g. payment:12, payout:3
	CreatedAt   time.Time `json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "host_ledger_entries"
}

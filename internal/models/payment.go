package models

import (
	"time"

	"tourhub/internal/domain"

	"gorm.io/gorm"
)

// Payment is one checkout attempt. Exactly one of BookingID and SubscriptionID is set.
type Payment struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         uint           `gorm:"not null;index" json:"user_id"`
	BookingID      *uint          `gorm:"index" json:"booking_id"`
	SubscriptionID *uint          `gorm:"index" json:"subscription_id"`
	AmountCents    int64          `gorm:"not null" json:"amount_cents"`
	Currency       string         `gorm:"size:3;not null" json:"currency"`
	Provider       string         `gorm:"size:20;not null" json:"provider"` // stripe, stub, cod
	Status         string         `gorm:"size:20;not null;index" json:"status"`
	SessionID      *string        `gorm:"size:255;uniqueIndex" json:"session_id"`
	SessionURL     string         `gorm:"size:1024" json:"session_url,omitempty"`
	TransactionID  string         `gorm:"size:255;index" json:"transaction_id"`
	FailureReason  string         `gorm:"size:255" json:"failure_reason,omitempty"`
	Credited       bool           `json:"-"` // balances and counters applied
	RefundPending  bool           `gorm:"index" json:"refund_pending"`
	PaidAt         *time.Time     `json:"paid_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Booking      *Booking      `gorm:"foreignKey:BookingID" json:"booking,omitempty"`
	Subscription *Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}

// IsLive reports whether the attempt may still be paid.
func (p *Payment) IsLive() bool {
	return p.Status == domain.PaymentPending || p.Status == domain.PaymentProcessing
}

// WebhookEvent records provider events that were applied, keyed by the provider's event id.
type WebhookEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   string    `gorm:"size:255;uniqueIndex;not null" json:"event_id"`
	Type      string    `gorm:"size:100;not null" json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}

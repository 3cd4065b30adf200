package models

import (
	"time"

	"gorm.io/gorm"
)

type SubscriptionPlan struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"size:60;uniqueIndex;not null" json:"name"`
	Description    string         `gorm:"type:text" json:"description"`
	PriceCents     int64          `gorm:"not null" json:"price_cents"`
	Currency       string         `gorm:"size:3;not null" json:"currency"`
	DurationMonths int            `gorm:"not null" json:"duration_months"`
	TourLimit      int            `gorm:"not null" json:"tour_limit"`
	BlogLimit      *int           `json:"blog_limit"` // nil = unlimited
	Features       []string       `gorm:"serializer:json;type:text" json:"features"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

func (p *SubscriptionPlan) IsFree() bool {
	return p.PriceCents == 0
}

type Subscription struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	HostID         uint           `gorm:"not null;index" json:"host_id"`
	PlanID         uint           `gorm:"not null;index" json:"plan_id"`
	Status         string         `gorm:"size:20;not null;index" json:"status"` // PENDING, ACTIVE, CANCELLED, EXPIRED
	StartDate      *time.Time     `json:"start_date"`
	EndDate        *time.Time     `json:"end_date"`
	TourLimit      int            `gorm:"not null" json:"tour_limit"`
	RemainingTours int            `gorm:"not null" json:"remaining_tours"`
	BlogLimit      *int           `json:"blog_limit"`
	RemainingBlogs *int           `json:"remaining_blogs"`
	AutoRenew      bool           `json:"auto_renew"`
	AdminNotes     string         `gorm:"type:text" json:"admin_notes,omitempty"`
	CancelledAt    *time.Time     `json:"cancelled_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Plan *SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// Expired reports whether an active subscription has run past its end date.
func (s *Subscription) Expired(now time.Time) bool {
	return s.EndDate != nil && now.After(*s.EndDate)
}

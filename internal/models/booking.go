package models

import (
	"time"

	"gorm.io/gorm"
)

type Booking struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	TourID           uint           `gorm:"not null;index" json:"tour_id"`
	UserID           uint           `gorm:"not null;index" json:"user_id"`
	TouristID        uint           `gorm:"not null;index" json:"tourist_id"`
	NumberOfPeople   int            `gorm:"not null" json:"number_of_people"`
	TotalAmountCents int64          `gorm:"not null" json:"total_amount_cents"`
	Status           string         `gorm:"size:20;not null;index" json:"status"`         // PENDING, CONFIRMED, CANCELLED, COMPLETED
	PaymentStatus    string         `gorm:"size:20;not null;index" json:"payment_status"` // PENDING, PROCESSING, COMPLETED, FAILED, CANCELLED, REFUNDED
	PaymentMethod    string         `gorm:"size:20;not null" json:"payment_method"`       // ONLINE | COD
	SpecialRequests  string         `gorm:"type:text" json:"special_requests"`
	IsReviewed       bool           `json:"is_reviewed"`
	CancelledAt      *time.Time     `json:"cancelled_at"`
	CompletedAt      *time.Time     `json:"completed_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	Tour     *Tour     `gorm:"foreignKey:TourID" json:"tour,omitempty"`
	Tourist  *Tourist  `gorm:"foreignKey:TouristID" json:"tourist,omitempty"`
	Payments []Payment `gorm:"foreignKey:BookingID" json:"payments,omitempty"`
}

func (Booking) TableName() string {
	return "bookings"
}

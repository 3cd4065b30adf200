package models

import "time"

type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BookingID  uint      `gorm:"uniqueIndex;not null" json:"booking_id"`
	TourID     uint      `gorm:"not null;index" json:"tour_id"`
	HostID     uint      `gorm:"not null;index" json:"host_id"`
	TouristID  uint      `gorm:"not null;index" json:"tourist_id"`
	Rating     int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment    string    `gorm:"type:text" json:"comment"`
	IsApproved bool      `gorm:"index" json:"is_approved"`
	IsDeleted  bool      `gorm:"index" json:"is_deleted"` // soft delete, keeps the booking slot
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Tour    *Tour    `gorm:"foreignKey:TourID" json:"tour,omitempty"`
	Tourist *Tourist `gorm:"foreignKey:TouristID" json:"tourist,omitempty"`
}

func (Review) TableName() string {
	return "reviews"
}

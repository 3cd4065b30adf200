package models

import (
	"time"

	"gorm.io/gorm"
)

type Tour struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	HostID             uint           `gorm:"not null;index" json:"host_id"`
	DestinationID      *uint          `gorm:"index" json:"destination_id"`
	Title              string         `gorm:"size:255;not null" json:"title"`
	Description        string         `gorm:"type:text" json:"description"`
	Destination        string         `gorm:"size:255" json:"destination"`
	City               string         `gorm:"size:120;index" json:"city"`
	Country            string         `gorm:"size:120;index" json:"country"`
	StartDate          time.Time      `gorm:"not null" json:"start_date"`
	EndDate            time.Time      `gorm:"not null" json:"end_date"`
	Duration           int            `json:"duration"`
	PriceCents         int64          `gorm:"not null" json:"price_cents"`
	MaxGroupSize       int            `gorm:"not null" json:"max_group_size"`
	CurrentGroupSize   int            `gorm:"not null;default:0" json:"current_group_size"`
	Category           string         `gorm:"size:30;index" json:"category"`
	Difficulty         string         `gorm:"size:30" json:"difficulty"`
	Included           []string       `gorm:"serializer:json;type:text" json:"included"`
	Excluded           []string       `gorm:"serializer:json;type:text" json:"excluded"`
	Itinerary          string         `gorm:"type:text" json:"itinerary"` // JSON
	MeetingPoint       string         `gorm:"size:255" json:"meeting_point"`
	Images             []string       `gorm:"serializer:json;type:text" json:"images"`
	IsActive           bool           `gorm:"index" json:"is_active"`
	IsFeatured         bool           `json:"is_featured"`
	Views              int64          `gorm:"not null;default:0" json:"views"`
	AverageRating      float64        `gorm:"not null;default:0" json:"average_rating"`
	TotalReviews       int            `gorm:"not null;default:0" json:"total_reviews"`
	TotalEarningsCents int64          `gorm:"not null;default:0" json:"total_earnings_cents"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	Host *Host `gorm:"foreignKey:HostID" json:"host,omitempty"`
}

func (Tour) TableName() string {
	return "tours"
}

// AvailableSpots is the remaining capacity according to the confirmed counter.
func (t *Tour) AvailableSpots() int {
	if n := t.MaxGroupSize - t.CurrentGroupSize; n > 0 {
		return n
	}
	return 0
}

// HasEnded reports whether the tour's end date is in the past.
func (t *Tour) HasEnded(now time.Time) bool {
	return now.After(t.EndDate)
}

type Destination struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:120;not null;uniqueIndex" json:"name"`
	Country     string         `gorm:"size:120" json:"country"`
	Description string         `gorm:"type:text" json:"description"`
	Image       string         `gorm:"size:512" json:"image"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

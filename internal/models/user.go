package models

import (
	"time"

	"tourhub/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Email              string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash       string         `gorm:"size:255" json:"-"`
	Role               string         `gorm:"size:20;not null;index" json:"role"`                   // ADMIN | HOST | TOURIST
	Status             string         `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"` // ACTIVE | BLOCKED | DELETED
	NeedPasswordChange bool           `gorm:"default:false" json:"need_password_change"`
	GoogleID           *string        `gorm:"uniqueIndex;size:255" json:"-"` // nil for email signups
	FCMToken           string         `gorm:"size:512" json:"-"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	Admin   *Admin   `gorm:"foreignKey:UserID" json:"admin,omitempty"`
	Host    *Host    `gorm:"foreignKey:UserID" json:"host,omitempty"`
	Tourist *Tourist `gorm:"foreignKey:UserID" json:"tourist,omitempty"`
}

func (u *User) IsAdmin() bool   { return u.Role == domain.RoleAdmin }
func (u *User) IsHost() bool    { return u.Role == domain.RoleHost }
func (u *User) IsTourist() bool { return u.Role == domain.RoleTourist }
func (u *User) IsActive() bool  { return u.Status == domain.UserStatusActive }

// Profile holds the fields shared by the role tables.
type Profile struct {
	Name          string `gorm:"size:120;not null" json:"name"`
	Email         string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	ProfilePhoto  string `gorm:"size:512" json:"profile_photo"`
	ContactNumber string `gorm:"size:30" json:"contact_number"`
	Address       string `gorm:"size:255" json:"address"`
	Bio           string `gorm:"type:text" json:"bio"`
}

type Admin struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`
	Profile
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type Host struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`
	Profile
	BalanceCents       int64          `gorm:"not null;default:0" json:"balance_cents"`
	TotalEarningsCents int64          `gorm:"not null;default:0" json:"total_earnings_cents"`
	TourLimit          int            `gorm:"not null;default:4" json:"tour_limit"`
	CurrentTourCount   int            `gorm:"not null;default:0" json:"current_tour_count"`
	BlogLimit          *int           `json:"blog_limit"` // nil = unlimited
	CurrentBlogCount   int            `gorm:"not null;default:0" json:"current_blog_count"`
	SubscriptionID     *uint          `gorm:"index" json:"subscription_id"`
	AverageRating      float64        `gorm:"not null;default:0" json:"average_rating"`
	TotalReviews       int            `gorm:"not null;default:0" json:"total_reviews"`
	PayoutAccountID    string         `gorm:"size:255" json:"payout_account_id"` // transfer destination at the provider
	LastPayoutAt       *time.Time     `json:"last_payout_at"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	Subscription *Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
}

type Tourist struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`
	Profile
	TotalSpentCents int64          `gorm:"not null;default:0" json:"total_spent_cents"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

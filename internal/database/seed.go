package database

import (
	"errors"

	"tourhub/config"
	"tourhub/internal/domain"
	"tourhub/internal/logger"
	"tourhub/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func intPtr(v int) *int { return &v }

// DefaultPlans are the plans every installation starts with.
func DefaultPlans(currency string) []models.SubscriptionPlan {
	return []models.SubscriptionPlan{
		{
			Name: "Free", Description: "Get started with a few tours", PriceCents: 0, Currency: currency,
			DurationMonths: 12, TourLimit: domain.FreeTourLimit, BlogLimit: intPtr(domain.FreeBlogLimit),
			Features: []string{"Up to 4 tours", "Up to 5 blogs", "Basic support"}, IsActive: true,
		},
		{
			Name: "Standard", Description: "For growing hosts", PriceCents: 999, Currency: currency,
			DurationMonths: 12, TourLimit: 12, BlogLimit: intPtr(25),
			Features: []string{"Up to 12 tours", "Up to 25 blogs", "Priority support"}, IsActive: true,
		},
		{
			Name: "Premium", Description: "For professional operators", PriceCents: 1999, Currency: currency,
			DurationMonths: 12, TourLimit: 50, BlogLimit: nil,
			Features: []string{"Up to 50 tours", "Unlimited blogs", "Featured listings", "Dedicated support"}, IsActive: true,
		},
	}
}

// SeedPlans inserts the default plans that do not exist yet. Returns how many were created.
func SeedPlans(db *gorm.DB, currency string) (int, error) {
	created := 0
	for _, p := range DefaultPlans(currency) {
		var count int64
		if err := db.Model(&models.SubscriptionPlan{}).Where("name = ?", p.Name).Count(&count).Error; err != nil {
			return created, err
		}
		if count > 0 {
			continue
		}
		plan := p
		if err := db.Create(&plan).Error; err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// SeedAdmin creates the configured admin account once.
func SeedAdmin(db *gorm.DB, cfg *config.AppConfig) error {
	log := logger.For("seed")
	if cfg.AdminPassword == "" {
		log.Warn("ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}
	var existing models.User
	err := db.Where("email = ?", cfg.AdminEmail).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		u := &models.User{Email: cfg.AdminEmail, PasswordHash: string(hash), Role: domain.RoleAdmin, Status: domain.UserStatusActive}
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.Admin{UserID: u.ID, Profile: models.Profile{Name: cfg.AdminName, Email: cfg.AdminEmail}}).Error; err != nil {
			return err
		}
		log.WithField("email", cfg.AdminEmail).Info("admin account created")
		return nil
	})
}

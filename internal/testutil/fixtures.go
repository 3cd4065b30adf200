package testutil

import (
	"fmt"
	"testing"
	"time"

	"tourhub/internal/domain"
	"tourhub/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Password is the plain-text password of every fixture account.
const Password = "secret123"

var seq int

func nextEmail(prefix string) string {
	seq++
	return fmt.Sprintf("%s%d@example.com", prefix, seq)
}

func createUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Email:        nextEmail(role),
		PasswordHash: string(hash),
		Role:         role,
		Status:       domain.UserStatusActive,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateHost(t *testing.T, db *gorm.DB) (*models.User, *models.Host) {
	t.Helper()
	u := createUser(t, db, domain.RoleHost)
	blogLimit := domain.FreeBlogLimit
	h := &models.Host{
		UserID:          u.ID,
		Profile:         models.Profile{Name: "Test Host", Email: u.Email},
		TourLimit:       domain.FreeTourLimit,
		BlogLimit:       &blogLimit,
		PayoutAccountID: "acct_test",
	}
	require.NoError(t, db.Create(h).Error)
	return u, h
}

func CreateTourist(t *testing.T, db *gorm.DB) (*models.User, *models.Tourist) {
	t.Helper()
	u := createUser(t, db, domain.RoleTourist)
	tr := &models.Tourist{UserID: u.ID, Profile: models.Profile{Name: "Test Tourist", Email: u.Email}}
	require.NoError(t, db.Create(tr).Error)
	return u, tr
}

func CreateAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	u := createUser(t, db, domain.RoleAdmin)
	require.NoError(t, db.Create(&models.Admin{UserID: u.ID, Profile: models.Profile{Name: "Test Admin", Email: u.Email}}).Error)
	return u
}

// CreateTour adds an active tour starting a week from now.
func CreateTour(t *testing.T, db *gorm.DB, hostID uint, priceCents int64, maxGroup int) *models.Tour {
	t.Helper()
	start := time.Now().Add(7 * 24 * time.Hour)
	tour := &models.Tour{
		HostID:       hostID,
		Title:        "Mountain Trek",
		City:         "Arusha",
		Country:      "Tanzania",
		StartDate:    start,
		EndDate:      start.Add(48 * time.Hour),
		Duration:     2,
		PriceCents:   priceCents,
		MaxGroupSize: maxGroup,
		Category:     "ADVENTURE",
		Difficulty:   "MODERATE",
		IsActive:     true,
	}
	require.NoError(t, db.Create(tour).Error)
	return tour
}

// Reload re-reads dst by primary key.
func Reload(t *testing.T, db *gorm.DB, dst interface{}, id uint) {
	t.Helper()
	require.NoError(t, db.First(dst, id).Error)
}

package repository

import (
	"tourhub/internal/domain"
	"tourhub/internal/models"

	"gorm.io/gorm"
)

type AdminDashboard struct {
	TotalUsers          int64            `json:"total_users"`
	TotalHosts          int64            `json:"total_hosts"`
	TotalTourists       int64            `json:"total_tourists"`
	TotalTours          int64            `json:"total_tours"`
	ActiveTours         int64            `json:"active_tours"`
	TotalBookings       int64            `json:"total_bookings"`
	BookingsByStatus    map[string]int64 `json:"bookings_by_status"`
	ToursByCategory     map[string]int64 `json:"tours_by_category"`
	TotalRevenueCents   int64            `json:"total_revenue_cents"`
	PlatformFeeCents    int64            `json:"platform_fee_cents"`
	ActiveSubscriptions int64            `json:"active_subscriptions"`
	PendingPayouts      int64            `json:"pending_payouts"`
}

type StatusCount struct {
	Status string
	Count  int64
}

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) WithTx(tx *gorm.DB) *AdminRepository {
	return &AdminRepository{db: tx}
}

func (r *AdminRepository) Create(a *models.Admin) error {
	return r.db.Create(a).Error
}

func (r *AdminRepository) GetByUserID(userID uint) (*models.Admin, error) {
	var a models.Admin
	err := r.db.Where("user_id = ?", userID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AdminRepository) GetDashboard() (*AdminDashboard, error) {
	var s AdminDashboard
	counts := []struct {
		q   *gorm.DB
		dst *int64
	}{
		{r.db.Model(&models.User{}), &s.TotalUsers},
		{r.db.Model(&models.User{}).Where("role = ?", domain.RoleHost), &s.TotalHosts},
		{r.db.Model(&models.User{}).Where("role = ?", domain.RoleTourist), &s.TotalTourists},
		{r.db.Model(&models.Tour{}), &s.TotalTours},
		{r.db.Model(&models.Tour{}).Where("is_active = ?", true), &s.ActiveTours},
		{r.db.Model(&models.Booking{}), &s.TotalBookings},
		{r.db.Model(&models.Subscription{}).Where("status = ?", domain.SubscriptionActive), &s.ActiveSubscriptions},
		{r.db.Model(&models.Payout{}).Where("status = ?", domain.PayoutPending), &s.PendingPayouts},
	}
	for _, c := range counts {
		if err := c.q.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	var rows []StatusCount
	if err := r.db.Model(&models.Booking{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	s.BookingsByStatus = make(map[string]int64, len(rows))
	for _, row := range rows {
		s.BookingsByStatus[row.Status] = row.Count
	}

	var cats []struct {
		Category string
		Count    int64
	}
	if err := r.db.Model(&models.Tour{}).Select("category, COUNT(*) AS count").Group("category").Scan(&cats).Error; err != nil {
		return nil, err
	}
	s.ToursByCategory = make(map[string]int64, len(cats))
	for _, c := range cats {
		s.ToursByCategory[c.Category] = c.Count
	}

	var rev struct{ Total int64 }
	err := r.db.Model(&models.Payment{}).Select("COALESCE(SUM(amount_cents), 0) AS total").
		Where("status = ? AND booking_id IS NOT NULL", domain.PaymentCompleted).Scan(&rev).Error
	if err != nil {
		return nil, err
	}
	s.TotalRevenueCents = rev.Total
	s.PlatformFeeCents = rev.Total - domain.HostShare(rev.Total)
	return &s, nil
}

package repository

import (
	"time"

	"tourhub/internal/domain"
	"tourhub/internal/models"

	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) WithTx(tx *gorm.DB) *BookingRepository {
	return &BookingRepository{db: tx}
}

func (r *BookingRepository) Create(b *models.Booking) error {
	return r.db.Create(b).Error
}

func (r *BookingRepository) GetByID(id uint) (*models.Booking, error) {
	var b models.Booking
	err := r.db.First(&b, id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) GetWithTour(id uint) (*models.Booking, error) {
	var b models.Booking
	err := r.db.Preload("Tour").Preload("Tourist").First(&b, id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByIDForUpdate locks the booking row for the current transaction.
func (r *BookingRepository) GetByIDForUpdate(id uint) (*models.Booking, error) {
	var b models.Booking
	err := forUpdate(r.db).First(&b, id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) Update(b *models.Booking) error {
	return r.db.Save(b).Error
}

func (r *BookingRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Booking{}).Where("id = ?", id).Updates(fields).Error
}

func (r *BookingRepository) Delete(id uint) error {
	return r.db.Delete(&models.Booking{}, id).Error
}

// FindActiveForUser returns the user's PENDING or CONFIRMED booking for a tour, if any.
func (r *BookingRepository) FindActiveForUser(userID, tourID uint) (*models.Booking, error) {
	var b models.Booking
	err := r.db.Where("user_id = ? AND tour_id = ? AND status IN ?", userID, tourID,
		[]string{domain.BookingPending, domain.BookingConfirmed}).First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) CountConfirmedForTour(tourID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.Booking{}).Where("tour_id = ? AND status = ?", tourID, domain.BookingConfirmed).Count(&n).Error
	return n, err
}

// CompleteConfirmedForTour moves every CONFIRMED booking of a tour to COMPLETED.
func (r *BookingRepository) CompleteConfirmedForTour(tourID uint, at time.Time) (int64, error) {
	res := r.db.Model(&models.Booking{}).
		Where("tour_id = ? AND status = ?", tourID, domain.BookingConfirmed).
		Updates(map[string]interface{}{"status": domain.BookingCompleted, "completed_at": at})
	return res.RowsAffected, res.Error
}

type BookingFilter struct {
	UserID        *uint
	HostID        *uint
	TourID        *uint
	Status        string
	PaymentStatus string
}

var bookingSorts = map[string]string{
	"createdAt":      "bookings.created_at",
	"totalAmount":    "bookings.total_amount_cents",
	"numberOfPeople": "bookings.number_of_people",
	"status":         "bookings.status",
}

func (r *BookingRepository) filtered(f BookingFilter) *gorm.DB {
	q := r.db.Model(&models.Booking{})
	if f.HostID != nil {
		q = q.Joins("JOIN tours ON tours.id = bookings.tour_id").Where("tours.host_id = ?", *f.HostID)
	}
	if f.UserID != nil {
		q = q.Where("bookings.user_id = ?", *f.UserID)
	}
	if f.TourID != nil {
		q = q.Where("bookings.tour_id = ?", *f.TourID)
	}
	if f.Status != "" {
		q = q.Where("bookings.status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("bookings.payment_status = ?", f.PaymentStatus)
	}
	return q
}

func (r *BookingRepository) List(f BookingFilter, p Page) ([]models.Booking, int64, error) {
	q := r.filtered(f)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Booking
	err := p.apply(q.Preload("Tour").Preload("Tourist"), bookingSorts, "bookings.created_at").Find(&list).Error
	return list, total, err
}

type BookingStats struct {
	Total            int64            `json:"total"`
	ByStatus         map[string]int64 `json:"by_status"`
	TotalAmountCents int64            `json:"total_amount_cents"` // confirmed + completed
	TotalPeople      int64            `json:"total_people"`
}

func (r *BookingRepository) Stats(f BookingFilter) (*BookingStats, error) {
	var rows []struct {
		Status string
		Count  int64
		Amount int64
		People int64
	}
	err := r.filtered(f).
		Select("bookings.status AS status, COUNT(*) AS count, " +
			"COALESCE(SUM(bookings.total_amount_cents), 0) AS amount, " +
			"COALESCE(SUM(bookings.number_of_people), 0) AS people").
		Group("bookings.status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	s := &BookingStats{ByStatus: map[string]int64{}}
	for _, row := range rows {
		s.Total += row.Count
		s.ByStatus[row.Status] = row.Count
		if row.Status == domain.BookingConfirmed || row.Status == domain.BookingCompleted {
			s.TotalAmountCents += row.Amount
			s.TotalPeople += row.People
		}
	}
	return s, nil
}

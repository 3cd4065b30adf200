package repository

import (
	"time"

	"tourhub/internal/domain"
	"tourhub/internal/models"

	"gorm.io/gorm"
)

type TourRepository struct {
	db *gorm.DB
}

func NewTourRepository(db *gorm.DB) *TourRepository {
	return &TourRepository{db: db}
}

func (r *TourRepository) WithTx(tx *gorm.DB) *TourRepository {
	return &TourRepository{db: tx}
}

func (r *TourRepository) Create(t *models.Tour) error {
	return r.db.Create(t).Error
}

func (r *TourRepository) GetByID(id uint) (*models.Tour, error) {
	var t models.Tour
	err := r.db.First(&t, id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TourRepository) GetWithHost(id uint) (*models.Tour, error) {
	var t models.Tour
	err := r.db.Preload("Host").First(&t, id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByIDForUpdate locks the tour row for the current transaction.
func (r *TourRepository) GetByIDForUpdate(id uint) (*models.Tour, error) {
	var t models.Tour
	err := forUpdate(r.db).First(&t, id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TourRepository) Update(t *models.Tour) error {
	return r.db.Save(t).Error
}

func (r *TourRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Tour{}).Where("id = ?", id).Updates(fields).Error
}

func (r *TourRepository) Delete(id uint) error {
	return r.db.Delete(&models.Tour{}, id).Error
}

func (r *TourRepository) IncrementViews(id uint) error {
	return r.db.Model(&models.Tour{}).Where("id = ?", id).UpdateColumn("views", gorm.Expr("views + 1")).Error
}

// ClaimCapacity adds n participants only if the tour still has room.
// It returns false when the tour is full.
func (r *TourRepository) ClaimCapacity(id uint, n int) (bool, error) {
	res := r.db.Model(&models.Tour{}).
		Where("id = ? AND current_group_size + ? <= max_group_size", id, n).
		UpdateColumn("current_group_size", gorm.Expr("current_group_size + ?", n))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReleaseCapacity removes n participants, flooring the counter at zero.
func (r *TourRepository) ReleaseCapacity(id uint, n int) error {
	return r.db.Model(&models.Tour{}).Where("id = ?", id).
		UpdateColumn("current_group_size", gorm.Expr("CASE WHEN current_group_size >= ? THEN current_group_size - ? ELSE 0 END", n, n)).Error
}

func (r *TourRepository) AddEarnings(id uint, amountCents int64) error {
	return r.db.Model(&models.Tour{}).Where("id = ?", id).
		UpdateColumn("total_earnings_cents", gorm.Expr("total_earnings_cents + ?", amountCents)).Error
}

func (r *TourRepository) SetRating(id uint, avg float64, count int64) error {
	return r.db.Model(&models.Tour{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"average_rating": avg, "total_reviews": count}).Error
}

type TourFilter struct {
	Search     string
	Category   string
	Difficulty string
	City       string
	Country    string
	MinPrice   *int64
	MaxPrice   *int64
	Featured   *bool
	StartFrom  *time.Time
	StartTo    *time.Time
	HostID     *uint
	ActiveOnly bool
}

var tourSorts = map[string]string{
	"createdAt":     "created_at",
	"price":         "price_cents",
	"startDate":     "start_date",
	"averageRating": "average_rating",
	"views":         "views",
	"title":         "title",
}

func (r *TourRepository) List(f TourFilter, p Page) ([]models.Tour, int64, error) {
	q := r.db.Model(&models.Tour{})
	if f.Search != "" {
		s := like(f.Search)
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(destination) LIKE ?", s, s, s)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Difficulty != "" {
		q = q.Where("difficulty = ?", f.Difficulty)
	}
	if f.City != "" {
		q = q.Where("LOWER(city) LIKE ?", like(f.City))
	}
	if f.Country != "" {
		q = q.Where("LOWER(country) LIKE ?", like(f.Country))
	}
	if f.MinPrice != nil {
		q = q.Where("price_cents >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price_cents <= ?", *f.MaxPrice)
	}
	if f.Featured != nil {
		q = q.Where("is_featured = ?", *f.Featured)
	}
	if f.StartFrom != nil {
		q = q.Where("start_date >= ?", *f.StartFrom)
	}
	if f.StartTo != nil {
		q = q.Where("start_date <= ?", *f.StartTo)
	}
	if f.HostID != nil {
		q = q.Where("host_id = ?", *f.HostID)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var tours []models.Tour
	err := p.apply(q, tourSorts, "created_at").Find(&tours).Error
	return tours, total, err
}

// ConfirmedParticipants sums participants of CONFIRMED bookings for a tour, excluding one booking id.
func (r *TourRepository) ConfirmedParticipants(tourID, excludeBookingID uint) (int, error) {
	var row struct{ Total int }
	err := r.db.Model(&models.Booking{}).
		Where("tour_id = ? AND status = ? AND id <> ?", tourID, domain.BookingConfirmed, excludeBookingID).
		Select("COALESCE(SUM(number_of_people), 0) AS total").Scan(&row).Error
	return row.Total, err
}

type HostTourStats struct {
	TotalTours         int64   `json:"total_tours"`
	ActiveTours        int64   `json:"active_tours"`
	TotalViews         int64   `json:"total_views"`
	TotalEarningsCents int64   `json:"total_earnings_cents"`
	AverageRating      float64 `json:"average_rating"`
	TotalParticipants  int64   `json:"total_participants"`
}

func (r *TourRepository) HostStats(hostID uint) (*HostTourStats, error) {
	var s HostTourStats
	err := r.db.Model(&models.Tour{}).Where("host_id = ?", hostID).
		Select("COUNT(*) AS total_tours, " +
			"COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active_tours, " +
			"COALESCE(SUM(views), 0) AS total_views, " +
			"COALESCE(SUM(total_earnings_cents), 0) AS total_earnings_cents, " +
			"COALESCE(SUM(current_group_size), 0) AS total_participants").
		Scan(&s).Error
	if err != nil {
		return nil, err
	}
	var avg struct{ Avg float64 }
	err = r.db.Model(&models.Tour{}).Where("host_id = ? AND total_reviews > 0", hostID).
		Select("COALESCE(AVG(average_rating), 0) AS avg").Scan(&avg).Error
	s.AverageRating = avg.Avg
	return &s, err
}

type DestinationRepository struct {
	db *gorm.DB
}

func NewDestinationRepository(db *gorm.DB) *DestinationRepository {
	return &DestinationRepository{db: db}
}

func (r *DestinationRepository) Create(d *models.Destination) error {
	return r.db.Create(d).Error
}

func (r *DestinationRepository) GetByID(id uint) (*models.Destination, error) {
	var d models.Destination
	err := r.db.First(&d, id).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DestinationRepository) Update(d *models.Destination) error {
	return r.db.Save(d).Error
}

func (r *DestinationRepository) Delete(id uint) error {
	return r.db.Delete(&models.Destination{}, id).Error
}

func (r *DestinationRepository) List(search string) ([]models.Destination, error) {
	q := r.db.Model(&models.Destination{})
	if search != "" {
		q = q.Where("LOWER(name) LIKE ? OR LOWER(country) LIKE ?", like(search), like(search))
	}
	var list []models.Destination
	err := q.Order("name ASC").Find(&list).Error
	return list, err
}

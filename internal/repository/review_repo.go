package repository

import (
	"tourhub/internal/models"

	"gorm.io/gorm"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) WithTx(tx *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: tx}
}

func (r *ReviewRepository) Create(rv *models.Review) error {
	return r.db.Create(rv).Error
}

func (r *ReviewRepository) GetByID(id uint) (*models.Review, error) {
	var rv models.Review
	err := r.db.Where("is_deleted = ?", false).First(&rv, id).Error
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// GetByBooking returns the booking's review, deleted or not.
func (r *ReviewRepository) GetByBooking(bookingID uint) (*models.Review, error) {
	var rv models.Review
	err := r.db.Where("booking_id = ?", bookingID).First(&rv).Error
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *ReviewRepository) Update(rv *models.Review) error {
	return r.db.Omit("Tour", "Tourist").Save(rv).Error
}

// Aggregate is the average rating and count of visible reviews.
type Aggregate struct {
	Average float64 `json:"average_rating"`
	Count   int64   `json:"total_reviews"`
}

func (r *ReviewRepository) visible() *gorm.DB {
	return r.db.Model(&models.Review{}).Where("is_approved = ? AND is_deleted = ?", true, false)
}

func (r *ReviewRepository) aggregate(column string, id uint) (Aggregate, error) {
	var a Aggregate
	err := r.visible().Where(column+" = ?", id).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").Scan(&a).Error
	return a, err
}

func (r *ReviewRepository) TourAggregate(tourID uint) (Aggregate, error) {
	return r.aggregate("tour_id", tourID)
}

func (r *ReviewRepository) HostAggregate(hostID uint) (Aggregate, error) {
	return r.aggregate("host_id", hostID)
}

// Distribution counts visible reviews per star for a tour or host.
func (r *ReviewRepository) Distribution(column string, id uint) (map[int]int64, error) {
	var rows []struct {
		Rating int
		Count  int64
	}
	err := r.visible().Where(column+" = ?", id).Select("rating, COUNT(*) AS count").Group("rating").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	dist := map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, row := range rows {
		dist[row.Rating] = row.Count
	}
	return dist, nil
}

type ReviewFilter struct {
	TourID     *uint
	HostID     *uint
	TouristID  *uint
	Rating     *int
	IsApproved *bool
	Public     bool
}

func (r *ReviewRepository) List(f ReviewFilter, p Page) ([]models.Review, int64, error) {
	q := r.db.Model(&models.Review{}).Where("is_deleted = ?", false)
	if f.Public {
		q = q.Where("is_approved = ?", true)
	}
	if f.TourID != nil {
		q = q.Where("tour_id = ?", *f.TourID)
	}
	if f.HostID != nil {
		q = q.Where("host_id = ?", *f.HostID)
	}
	if f.TouristID != nil {
		q = q.Where("tourist_id = ?", *f.TouristID)
	}
	if f.Rating != nil {
		q = q.Where("rating = ?", *f.Rating)
	}
	if f.IsApproved != nil {
		q = q.Where("is_approved = ?", *f.IsApproved)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Review
	err := p.apply(q.Preload("Tourist").Preload("Tour"), map[string]string{"createdAt": "created_at", "rating": "rating"}, "created_at").
		Find(&list).Error
	return list, total, err
}

type ReviewSummary struct {
	Total    int64   `json:"total"`
	Approved int64   `json:"approved"`
	Pending  int64   `json:"pending"`
	Average  float64 `json:"average_rating"`
}

func (r *ReviewRepository) Summary() (*ReviewSummary, error) {
	var s ReviewSummary
	err := r.db.Model(&models.Review{}).Where("is_deleted = ?", false).
		Select("COUNT(*) AS total, " +
			"COALESCE(SUM(CASE WHEN is_approved THEN 1 ELSE 0 END), 0) AS approved, " +
			"COALESCE(SUM(CASE WHEN is_approved THEN 0 ELSE 1 END), 0) AS pending").
		Scan(&s).Error
	if err != nil {
		return nil, err
	}
	var avg struct{ Avg float64 }
	err = r.visible().Select("COALESCE(AVG(rating), 0) AS avg").Scan(&avg).Error
	s.Average = avg.Avg
	return &s, err
}

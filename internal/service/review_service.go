package service

import (
	"context"
	"errors"

	"tourhub/internal/apperr"
	"tourhub/internal/domain"
	"tourhub/internal/logger"
	"tourhub/internal/models"
	"tourhub/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CreateReviewInput struct {
	BookingID uint
	Rating    int
	Comment   string
}

type UpdateReviewInput struct {
	Rating     *int
	Comment    *string
	IsApproved *bool
}

// RatingSummary is the public rating picture of a tour or host.
type RatingSummary struct {
	Reviews      []models.Review `json:"reviews"`
	Total        int64           `json:"-"`
	Average      float64         `json:"average_rating"`
	Count        int64           `json:"total_reviews"`
	Distribution map[int]int64   `json:"rating_distribution"`
}

type ReviewService struct {
	db       *gorm.DB
	notifier *NotificationService
	reviews  *repository.ReviewRepository
	bookings *repository.BookingRepository
	tours    *repository.TourRepository
	hosts    *repository.HostRepository
	tourists *repository.TouristRepository
}

func NewReviewService(db *gorm.DB, notifier *NotificationService) *ReviewService {
	return &ReviewService{
		db:       db,
		notifier: notifier,
		reviews:  repository.NewReviewRepository(db),
		bookings: repository.NewBookingRepository(db),
		tours:    repository.NewTourRepository(db),
		hosts:    repository.NewHostRepository(db),
		tourists: repository.NewTouristRepository(db),
	}
}

func validRating(r int) error {
	if r < 1 || r > 5 {
		return apperr.BadRequest("Rating must be between 1 and 5")
	}
	return nil
}

// recomputeRatings refreshes the tour and host aggregates from approved, non-deleted reviews.
func recomputeRatings(tx *gorm.DB, tourID, hostID uint) error {
	reviews := repository.NewReviewRepository(tx)
	t, err := reviews.TourAggregate(tourID)
	if err != nil {
		return err
	}
	if err := repository.NewTourRepository(tx).SetRating(tourID, t.Average, t.Count); err != nil {
		return err
	}
	h, err := reviews.HostAggregate(hostID)
	if err != nil {
		return err
	}
	return repository.NewHostRepository(tx).SetRating(hostID, h.Average, h.Count)
}

// Create reviews a COMPLETED booking of the calling tourist. One review per booking.
func (s *ReviewService) Create(ctx context.Context, actor Actor, in CreateReviewInput) (*models.Review, error) {
	if err := validRating(in.Rating); err != nil {
		return nil, err
	}
	var rv *models.Review
	var tour *models.Tour
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := s.bookings.WithTx(tx)
		reviews := s.reviews.WithTx(tx)
		b, err := bookings.GetByIDForUpdate(in.BookingID)
		if err != nil {
			return notFound(err, "Booking not found")
		}
		if b.UserID != actor.UserID {
			return apperr.Forbidden("You can only review your own bookings")
		}
		if b.Status != domain.BookingCompleted {
			return apperr.BadRequest("You can only review completed tours")
		}
		if _, err := reviews.GetByBooking(b.ID); err == nil {
			return apperr.BadRequest("You have already reviewed this booking")
		} else if !repository.IsNotFound(err) {
			return err
		}
		tour, err = s.tours.WithTx(tx).GetByID(b.TourID)
		if err != nil {
			return err
		}
		rv = &models.Review{
			BookingID:  b.ID,
			TourID:     tour.ID,
			HostID:     tour.HostID,
			TouristID:  b.TouristID,
			Rating:     in.Rating,
			Comment:    in.Comment,
			IsApproved: true,
		}
		if err := reviews.Create(rv); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.BadRequest("You have already reviewed this booking")
			}
			return err
		}
		if err := bookings.UpdateFields(b.ID, map[string]interface{}{"is_reviewed": true}); err != nil {
			return err
		}
		return recomputeRatings(tx, tour.ID, tour.HostID)
	})
	if err != nil {
		return nil, dbErr(err)
	}
	logger.For("review").WithFields(logrus.Fields{"review_id": rv.ID, "tour_id": rv.TourID}).Info("review created")
	if h, err := s.hosts.GetByID(tour.HostID); err == nil {
		s.notifier.ReviewReceived(h.UserID, rv.ID, rv.Rating)
	}
	return rv, nil
}

func (s *ReviewService) isOwner(actor Actor, rv *models.Review) bool {
	if !actor.IsTourist() {
		return false
	}
	t, err := s.tourists.GetByUserID(actor.UserID)
	return err == nil && t.ID == rv.TouristID
}

// Update lets the owner edit rating and comment. Only an admin may change approval, and
// only a change of approval recomputes the aggregates.
func (s *ReviewService) Update(ctx context.Context, actor Actor, id uint, in UpdateReviewInput) (*models.Review, error) {
	rv, err := s.reviews.GetByID(id)
	if err != nil {
		return nil, notFound(err, "Review not found")
	}
	if !actor.IsAdmin() && !s.isOwner(actor, rv) {
		return nil, apperr.Forbidden("You are not authorized to update this review")
	}
	if in.IsApproved != nil && !actor.IsAdmin() {
		return nil, apperr.Forbidden("Only admins can approve reviews")
	}
	if in.Rating != nil {
		if err := validRating(*in.Rating); err != nil {
			return nil, err
		}
		rv.Rating = *in.Rating
	}
	if in.Comment != nil {
		rv.Comment = *in.Comment
	}
	toggled := in.IsApproved != nil && *in.IsApproved != rv.IsApproved
	if in.IsApproved != nil {
		rv.IsApproved = *in.IsApproved
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.reviews.WithTx(tx).Update(rv); err != nil {
			return err
		}
		if !toggled {
			return nil
		}
		return recomputeRatings(tx, rv.TourID, rv.HostID)
	})
	if err != nil {
		return nil, dbErr(err)
	}
	return rv, nil
}

// Delete soft deletes a review, frees the booking's reviewed flag and recomputes the aggregates.
func (s *ReviewService) Delete(ctx context.Context, actor Actor, id uint) error {
	rv, err := s.reviews.GetByID(id)
	if err != nil {
		return notFound(err, "Review not found")
	}
	if !actor.IsAdmin() && !s.isOwner(actor, rv) {
		return apperr.Forbidden("You are not authorized to delete this review")
	}
	rv.IsDeleted = true
	return dbErr(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.reviews.WithTx(tx).Update(rv); err != nil {
			return err
		}
		if err := s.bookings.WithTx(tx).UpdateFields(rv.BookingID, map[string]interface{}{"is_reviewed": false}); err != nil {
			return err
		}
		return recomputeRatings(tx, rv.TourID, rv.HostID)
	}))
}

func (s *ReviewService) Get(id uint) (*models.Review, error) {
	rv, err := s.reviews.GetByID(id)
	return rv, notFound(err, "Review not found")
}

func (s *ReviewService) List(f repository.ReviewFilter, p repository.Page) ([]models.Review, int64, error) {
	list, total, err := s.reviews.List(f, p)
	return list, total, dbErr(err)
}

func (s *ReviewService) MyReviews(userID uint, p repository.Page) ([]models.Review, int64, error) {
	t, err := touristFor(s.tourists, userID)
	if err != nil {
		return nil, 0, err
	}
	return s.List(repository.ReviewFilter{TouristID: &t.ID}, p)
}

func (s *ReviewService) TourReviews(tourID uint, f repository.ReviewFilter, p repository.Page) (*RatingSummary, error) {
	if _, err := s.tours.GetByID(tourID); err != nil {
		return nil, notFound(err, "Tour not found")
	}
	f.TourID, f.HostID, f.Public = &tourID, nil, true
	return s.summary(f, p, "tour_id", tourID)
}

func (s *ReviewService) HostReviews(hostID uint, f repository.ReviewFilter, p repository.Page) (*RatingSummary, error) {
	if _, err := s.hosts.GetByID(hostID); err != nil {
		return nil, notFound(err, "Host not found")
	}
	f.HostID, f.TourID, f.Public = &hostID, nil, true
	return s.summary(f, p, "host_id", hostID)
}

func (s *ReviewService) summary(f repository.ReviewFilter, p repository.Page, column string, id uint) (*RatingSummary, error) {
	f.IsApproved = nil
	list, total, err := s.reviews.List(f, p)
	if err != nil {
		return nil, dbErr(err)
	}
	var agg repository.Aggregate
	if column == "tour_id" {
		agg, err = s.reviews.TourAggregate(id)
	} else {
		agg, err = s.reviews.HostAggregate(id)
	}
	if err != nil {
		return nil, dbErr(err)
	}
	dist, err := s.reviews.Distribution(column, id)
	if err != nil {
		return nil, dbErr(err)
	}
	return &RatingSummary{Reviews: list, Total: total, Average: agg.Average, Count: agg.Count, Distribution: dist}, nil
}

func (s *ReviewService) Summary() (*repository.ReviewSummary, error) {
	sum, err := s.reviews.Summary()
	return sum, dbErr(err)
}

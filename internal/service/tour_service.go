package service

import (
	"context"
	"strings"
	"time"

	"tourhub/internal/apperr"
	"tourhub/internal/domain"
	"tourhub/internal/logger"
	"tourhub/internal/models"
	"tourhub/internal/repository"

	"gorm.io/gorm"
)

// TourInput carries create and update fields. Nil pointers are left unchanged on update.
type TourInput struct {
	Title         *string
	Description   *string
	DestinationID *uint
	Destination   *string
	City          *string
	Country       *string
	StartDate     *time.Time
	EndDate       *time.Time
	Duration      *int
	PriceCents    *int64
	MaxGroupSize  *int
	Category      *string
	Difficulty    *string
	Included      []string
	Excluded      []string
	Itinerary     *string
	MeetingPoint  *string
	IsActive      *bool
	IsFeatured    *bool
}

type TourService struct {
	db       *gorm.DB
	tours    *repository.TourRepository
	hosts    *repository.HostRepository
	bookings *repository.BookingRepository
	payments *repository.PaymentRepository
	media    *Media
}

func NewTourService(db *gorm.DB, media *Media) *TourService {
	return &TourService{
		db:       db,
		tours:    repository.NewTourRepository(db),
		hosts:    repository.NewHostRepository(db),
		bookings: repository.NewBookingRepository(db),
		payments: repository.NewPaymentRepository(db),
		media:    media,
	}
}

func (in *TourInput) apply(t *models.Tour) {
	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.DestinationID != nil {
		t.DestinationID = in.DestinationID
	}
	if in.Destination != nil {
		t.Destination = *in.Destination
	}
	if in.City != nil {
		t.City = *in.City
	}
	if in.Country != nil {
		t.Country = *in.Country
	}
	if in.StartDate != nil {
		t.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		t.EndDate = *in.EndDate
	}
	if in.PriceCents != nil {
		t.PriceCents = *in.PriceCents
	}
	if in.MaxGroupSize != nil {
		t.MaxGroupSize = *in.MaxGroupSize
	}
	if in.Category != nil {
		t.Category = strings.ToUpper(*in.Category)
	}
	if in.Difficulty != nil {
		t.Difficulty = strings.ToUpper(*in.Difficulty)
	}
	if in.Included != nil {
		t.Included = in.Included
	}
	if in.Excluded != nil {
		t.Excluded = in.Excluded
	}
	if in.Itinerary != nil {
		t.Itinerary = *in.Itinerary
	}
	if in.MeetingPoint != nil {
		t.MeetingPoint = *in.MeetingPoint
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
	if in.Duration != nil {
		t.Duration = *in.Duration
	} else if in.StartDate != nil || in.EndDate != nil {
		t.Duration = int(t.EndDate.Sub(t.StartDate).Hours()/24) + 1
	}
}

func validateTour(t *models.Tour) error {
	switch {
	case t.Title == "":
		return apperr.BadRequest("Title is required")
	case t.StartDate.IsZero() || t.EndDate.IsZero():
		return apperr.BadRequest("Start and end dates are required")
	case t.EndDate.Before(t.StartDate):
		return apperr.BadRequest("End date must be after start date")
	case t.PriceCents <= 0:
		return apperr.BadRequest("Price must be positive")
	case t.MaxGroupSize < 1:
		return apperr.BadRequest("Max group size must be at least 1")
	case t.Category != "" && !contains(domain.TourCategories, t.Category):
		return apperr.BadRequestf("Invalid category %q", t.Category)
	case t.Difficulty != "" && !contains(domain.TourDifficulties, t.Difficulty):
		return apperr.BadRequestf("Invalid difficulty %q", t.Difficulty)
	case t.MaxGroupSize < t.CurrentGroupSize:
		return apperr.BadRequestf("Max group size cannot be less than the current group size (%d)", t.CurrentGroupSize)
	}
	return nil
}

// Create adds a tour for the calling host. The plan limit is checked again under the host row lock.
func (s *TourService) Create(ctx context.Context, actor Actor, in TourInput, images []Upload) (*models.Tour, error) {
	t := &models.Tour{IsActive: true}
	in.apply(t)
	if in.IsFeatured != nil && actor.IsAdmin() {
		t.IsFeatured = *in.IsFeatured
	}
	if err := validateTour(t); err != nil {
		return nil, err
	}
	urls, err := s.media.Upload(ctx, "tours", images)
	if err != nil {
		return nil, err
	}
	t.Images = urls
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := lockHostWithSubscription(tx, actor.UserID)
		if err != nil {
			return err
		}
		if err := expireIfLapsed(tx, h, time.Now()); err != nil {
			return err
		}
		if err := tourAllowed(h); err != nil {
			return err
		}
		t.HostID = h.ID
		if err := s.tours.WithTx(tx).Create(t); err != nil {
			return err
		}
		if err := s.hosts.WithTx(tx).AdjustTourCount(h.ID, 1); err != nil {
			return err
		}
		if sub := activeSub(h); sub != nil {
			return repository.NewSubscriptionRepository(tx).AdjustRemaining(sub.ID, "remaining_tours", -1)
		}
		return nil
	})
	if err != nil {
		s.media.Delete(context.Background(), urls...)
		return nil, dbErr(err)
	}
	logger.For("tour").WithField("tour_id", t.ID).Info("tour created")
	return t, nil
}

func (s *TourService) List(f repository.TourFilter, p repository.Page) ([]models.Tour, int64, error) {
	f.ActiveOnly = true
	list, total, err := s.tours.List(f, p)
	return list, total, dbErr(err)
}

// Get returns a tour with its host and counts the view.
func (s *TourService) Get(id uint) (*models.Tour, error) {
	t, err := s.tours.GetWithHost(id)
	if err != nil {
		return nil, notFound(err, "Tour not found")
	}
	if err := s.tours.IncrementViews(id); err != nil {
		logger.For("tour").WithError(err).WithField("tour_id", id).Warn("count view")
	} else {
		t.Views++
	}
	return t, nil
}

func (s *TourService) HostTours(userID uint, f repository.TourFilter, p repository.Page) ([]models.Tour, int64, error) {
	h, err := hostFor(s.hosts, userID)
	if err != nil {
		return nil, 0, err
	}
	f.HostID = &h.ID
	f.ActiveOnly = false
	list, total, err := s.tours.List(f, p)
	return list, total, dbErr(err)
}

func (s *TourService) HostTour(userID, id uint) (*models.Tour, error) {
	h, err := hostFor(s.hosts, userID)
	if err != nil {
		return nil, err
	}
	t, err := s.tours.GetByID(id)
	if err != nil || t.HostID != h.ID {
		return nil, notFound(orNotFound(err), "Tour not found")
	}
	return t, nil
}

type HostTourStats struct {
	*repository.HostTourStats
	CurrentTourCount int  `json:"current_tour_count"`
	TourLimit        int  `json:"tour_limit"`
	CanCreateTour    bool `json:"can_create_tour"`
}

func (s *TourService) HostStats(userID uint) (*HostTourStats, error) {
	h, err := s.hosts.GetWithSubscription(userID)
	if err != nil {
		return nil, notFound(err, "Host not found")
	}
	stats, err := s.tours.HostStats(h.ID)
	if err != nil {
		return nil, dbErr(err)
	}
	return &HostTourStats{
		HostTourStats:    stats,
		CurrentTourCount: h.CurrentTourCount,
		TourLimit:        h.TourLimit,
		CanCreateTour:    tourAllowed(h) == nil,
	}, nil
}

// authorize loads a tour the actor may manage.
func (s *TourService) authorize(actor Actor, id uint) (*models.Tour, error) {
	t, err := s.tours.GetByID(id)
	if err != nil {
		return nil, notFound(err, "Tour not found")
	}
	if actor.IsAdmin() {
		return t, nil
	}
	h, err := hostFor(s.hosts, actor.UserID)
	if err != nil {
		return nil, err
	}
	if t.HostID != h.ID {
		return nil, apperr.Forbidden("You can only manage your own tours")
	}
	return t, nil
}

// Update changes a tour. New images replace the old ones.
func (s *TourService) Update(ctx context.Context, actor Actor, id uint, in TourInput, images []Upload) (*models.Tour, error) {
	if _, err := s.authorize(actor, id); err != nil {
		return nil, err
	}
	urls, err := s.media.Upload(ctx, "tours", images)
	if err != nil {
		return nil, err
	}
	var t *models.Tour
	var oldImages []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tours := s.tours.WithTx(tx)
		var err error
		t, err = tours.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		in.apply(t)
		if in.IsFeatured != nil && actor.IsAdmin() {
			t.IsFeatured = *in.IsFeatured
		}
		if err := validateTour(t); err != nil {
			return err
		}
		if len(urls) > 0 {
			oldImages, t.Images = t.Images, urls
		}
		return tours.Update(t)
	})
	if err != nil {
		s.media.Delete(context.Background(), urls...)
		return nil, notFound(err, "Tour not found")
	}
	s.media.Delete(context.Background(), oldImages...)
	return t, nil
}

// Delete removes a tour without confirmed bookings. Pending bookings are cancelled.
func (s *TourService) Delete(ctx context.Context, actor Actor, id uint) error {
	t, err := s.authorize(actor, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := s.bookings.WithTx(tx)
		n, err := bookings.CountConfirmedForTour(id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.BadRequest("Cannot delete a tour with confirmed bookings")
		}
		pending, _, err := bookings.List(repository.BookingFilter{TourID: &id, Status: domain.BookingPending}, repository.Page{})
		if err != nil {
			return err
		}
		at := now()
		for _, b := range pending {
			if err := bookings.UpdateFields(b.ID, map[string]interface{}{
				"status": domain.BookingCancelled, "payment_status": domain.PaymentCancelled, "cancelled_at": at,
			}); err != nil {
				return err
			}
			if err := s.payments.WithTx(tx).CancelLiveForBooking(b.ID); err != nil {
				return err
			}
		}
		if err := s.tours.WithTx(tx).Delete(id); err != nil {
			return err
		}
		return s.hosts.WithTx(tx).AdjustTourCount(t.HostID, -1)
	})
	if err != nil {
		return dbErr(err)
	}
	s.media.Delete(context.Background(), t.Images...)
	return nil
}

// Complete closes a finished tour and completes its confirmed bookings.
func (s *TourService) Complete(ctx context.Context, actor Actor, id uint) (int64, error) {
	t, err := s.authorize(actor, id)
	if err != nil {
		return 0, err
	}
	if !t.HasEnded(time.Now()) {
		return 0, apperr.BadRequest("Tour cannot be completed before its end date")
	}
	var completed int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		completed, err = s.bookings.WithTx(tx).CompleteConfirmedForTour(id, now())
		if err != nil {
			return err
		}
		return s.tours.WithTx(tx).UpdateFields(id, map[string]interface{}{"is_active": false})
	})
	if err != nil {
		return 0, dbErr(err)
	}
	logger.For("tour").WithField("tour_id", id).WithField("bookings", completed).Info("tour completed")
	return completed, nil
}

// orNotFound turns a nil error into gorm's not-found so ownership misses read as 404.
func orNotFound(err error) error {
	if err == nil {
		return gorm.ErrRecordNotFound
	}
	return err
}

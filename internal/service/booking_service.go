package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tourhub/internal/apperr"
	"tourhub/internal/domain"
	"tourhub/internal/logger"
	"tourhub/internal/models"
	"tourhub/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Locker guards short critical sections across API instances.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type CreateBookingInput struct {
	TourID           uint
	NumberOfPeople   int
	TotalAmountCents *int64
	PaymentMethod    string
	SpecialRequests  string
}

type UpdateBookingInput struct {
	NumberOfPeople  *int
	SpecialRequests *string
}

type BookingService struct {
	db       *gorm.DB
	currency string
	locker   Locker
	notifier *NotificationService
	tours    *repository.TourRepository
	bookings *repository.BookingRepository
	payments *repository.PaymentRepository
	hosts    *repository.HostRepository
	tourists *repository.TouristRepository
}

func NewBookingService(db *gorm.DB, currency string, locker Locker, notifier *NotificationService) *BookingService {
	return &BookingService{
		db:       db,
		currency: currency,
		locker:   locker,
		notifier: notifier,
		tours:    repository.NewTourRepository(db),
		bookings: repository.NewBookingRepository(db),
		payments: repository.NewPaymentRepository(db),
		hosts:    repository.NewHostRepository(db),
		tourists: repository.NewTouristRepository(db),
	}
}

func spotsError(max, taken int) error {
	left := max - taken
	if left < 0 {
		left = 0
	}
	return apperr.BadRequestf("Only %d spots available for this tour", left)
}

// Create books a tour for the calling tourist. COD bookings are confirmed at once.
func (s *BookingService) Create(ctx context.Context, actor Actor, in CreateBookingInput) (*models.Booking, error) {
	log := logger.For("booking").WithFields(logrus.Fields{"user_id": actor.UserID, "tour_id": in.TourID})
	if in.NumberOfPeople < 1 {
		return nil, apperr.BadRequest("Number of people must be at least 1")
	}
	method := strings.ToUpper(in.PaymentMethod)
	if method == "" || method == "STRIPE" {
		method = domain.PaymentMethodOnline
	}
	if method != domain.PaymentMethodOnline && method != domain.PaymentMethodCOD {
		return nil, apperr.BadRequest("Payment method must be ONLINE or COD")
	}
	tourist, err := touristFor(s.tourists, actor.UserID)
	if err != nil {
		return nil, err
	}

	if s.locker != nil {
		key := fmt.Sprintf("booking:%d:%d", actor.UserID, in.TourID)
		ok, err := s.locker.Acquire(ctx, key, 10*time.Second)
		switch {
		case err != nil:
			log.WithError(err).Warn("booking lock unavailable")
		case !ok:
			return nil, apperr.Conflict("A booking request for this tour is already in progress")
		default:
			defer func() { _ = s.locker.Release(context.Background(), key) }()
		}
	}

	var b *models.Booking
	var tour *models.Tour
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tours := s.tours.WithTx(tx)
		bookings := s.bookings.WithTx(tx)
		var err error
		tour, err = tours.GetByIDForUpdate(in.TourID)
		if err != nil {
			return notFound(err, "Tour not found")
		}
		if !tour.IsActive {
			return apperr.BadRequest("This tour is not available for booking")
		}
		if !time.Now().Before(tour.StartDate) {
			return apperr.BadRequest("This tour has already started")
		}
		total := tour.PriceCents * int64(in.NumberOfPeople)
		if in.TotalAmountCents != nil && *in.TotalAmountCents != total {
			return apperr.BadRequestf("Total amount must be %s for %d people", money(total), in.NumberOfPeople)
		}
		if _, err := bookings.FindActiveForUser(actor.UserID, tour.ID); err == nil {
			return apperr.BadRequest("You already have a booking for this tour")
		} else if !repository.IsNotFound(err) {
			return err
		}
		taken, err := tours.ConfirmedParticipants(tour.ID, 0)
		if err != nil {
			return err
		}
		if taken+in.NumberOfPeople > tour.MaxGroupSize {
			return spotsError(tour.MaxGroupSize, taken)
		}
		b = &models.Booking{
			TourID:           tour.ID,
			UserID:           actor.UserID,
			TouristID:        tourist.ID,
			NumberOfPeople:   in.NumberOfPeople,
			TotalAmountCents: total,
			Status:           domain.BookingPending,
			PaymentStatus:    domain.PaymentPending,
			PaymentMethod:    method,
			SpecialRequests:  in.SpecialRequests,
		}
		if method == domain.PaymentMethodCOD {
			b.Status = domain.BookingConfirmed
		}
		if err := bookings.Create(b); err != nil {
			return err
		}
		if method != domain.PaymentMethodCOD {
			return nil
		}
		ok, err := tours.ClaimCapacity(tour.ID, in.NumberOfPeople)
		if err != nil {
			return err
		}
		if !ok {
			return spotsError(tour.MaxGroupSize, tour.CurrentGroupSize)
		}
		return s.payments.WithTx(tx).Create(&models.Payment{
			UserID:      actor.UserID,
			BookingID:   &b.ID,
			AmountCents: total,
			Currency:    s.currency,
			Provider:    "cod",
			Status:      domain.PaymentPending,
		})
	})
	if err != nil {
		return nil, dbErr(err)
	}
	log.WithFields(logrus.Fields{"booking_id": b.ID, "method": method}).Info("booking created")
	if method == domain.PaymentMethodCOD {
		if h, err := s.hosts.GetByID(tour.HostID); err == nil {
			s.notifier.NewPaidBooking(h.UserID, b.ID, tour.Title, b.NumberOfPeople)
		}
	}
	b.Tour = tour
	return b, nil
}

func (s *BookingService) List(f repository.BookingFilter, p repository.Page) ([]models.Booking, int64, error) {
	list, total, err := s.bookings.List(f, p)
	return list, total, dbErr(err)
}

func (s *BookingService) MyBookings(userID uint, f repository.BookingFilter, p repository.Page) ([]models.Booking, int64, error) {
	f.UserID = &userID
	f.HostID = nil
	return s.List(f, p)
}

func (s *BookingService) HostBookings(userID uint, f repository.BookingFilter, p repository.Page) ([]models.Booking, int64, error) {
	h, err := hostFor(s.hosts, userID)
	if err != nil {
		return nil, 0, err
	}
	f.HostID = &h.ID
	f.UserID = nil
	return s.List(f, p)
}

// access describes how the actor relates to a booking.
type access struct {
	owner, host, admin bool
}

func (s *BookingService) load(actor Actor, id uint) (*models.Booking, access, error) {
	b, err := s.bookings.GetWithTour(id)
	if err != nil {
		return nil, access{}, notFound(err, "Booking not found")
	}
	a := access{owner: b.UserID == actor.UserID, admin: actor.IsAdmin()}
	if actor.IsHost() && b.Tour != nil {
		if h, err := s.hosts.GetByUserID(actor.UserID); err == nil && h.ID == b.Tour.HostID {
			a.host = true
		}
	}
	return b, a, nil
}

// Get returns a booking visible to its tourist, the tour's host, or an admin.
func (s *BookingService) Get(actor Actor, id uint) (*models.Booking, error) {
	b, a, err := s.load(actor, id)
	if err != nil {
		return nil, err
	}
	if !a.owner && !a.host && !a.admin {
		return nil, apperr.Forbidden("You are not allowed to view this booking")
	}
	return b, nil
}

type PaymentInfo struct {
	Booking       *models.Booking `json:"booking"`
	CanPay        bool            `json:"can_pay"`
	IsPaid        bool            `json:"is_paid"`
	LatestPayment *models.Payment `json:"latest_payment"`
}

func (s *BookingService) PaymentInfo(actor Actor, id uint) (*PaymentInfo, error) {
	b, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	info := &PaymentInfo{
		Booking: b,
		IsPaid:  b.PaymentStatus == domain.PaymentCompleted,
		CanPay: b.Status == domain.BookingPending && b.PaymentMethod == domain.PaymentMethodOnline &&
			b.PaymentStatus != domain.PaymentCompleted,
	}
	p, err := s.payments.LatestForBooking(b.ID)
	if err == nil {
		info.LatestPayment = p
	} else if !repository.IsNotFound(err) {
		return nil, dbErr(err)
	}
	return info, nil
}

// Update changes participants or special requests of a PENDING booking.
func (s *BookingService) Update(ctx context.Context, actor Actor, id uint, in UpdateBookingInput) (*models.Booking, error) {
	_, a, err := s.load(actor, id)
	if err != nil {
		return nil, err
	}
	if !a.owner && !a.admin {
		return nil, apperr.Forbidden("You can only update your own bookings")
	}
	var b *models.Booking
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := s.bookings.WithTx(tx)
		var err error
		b, err = bookings.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if b.Status != domain.BookingPending {
			return apperr.BadRequest("Only pending bookings can be updated")
		}
		if in.SpecialRequests != nil {
			b.SpecialRequests = *in.SpecialRequests
		}
		if in.NumberOfPeople != nil && *in.NumberOfPeople != b.NumberOfPeople {
			n := *in.NumberOfPeople
			if n < 1 {
				return apperr.BadRequest("Number of people must be at least 1")
			}
			tours := s.tours.WithTx(tx)
			tour, err := tours.GetByIDForUpdate(b.TourID)
			if err != nil {
				return err
			}
			taken, err := tours.ConfirmedParticipants(tour.ID, b.ID)
			if err != nil {
				return err
			}
			if taken+n > tour.MaxGroupSize {
				return spotsError(tour.MaxGroupSize, taken)
			}
			b.NumberOfPeople = n
			b.TotalAmountCents = tour.PriceCents * int64(n)
			// the amount changed, open checkouts are stale
			if err := s.payments.WithTx(tx).CancelLiveForBooking(b.ID); err != nil {
				return err
			}
		}
		return bookings.Update(b)
	})
	if err != nil {
		return nil, notFound(err, "Booking not found")
	}
	return b, nil
}

// Cancel cancels a PENDING or CONFIRMED booking for its owner or an admin.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, id uint) (*models.Booking, error) {
	b, a, err := s.load(actor, id)
	if err != nil {
		return nil, err
	}
	if !a.owner && !a.admin {
		return nil, apperr.Forbidden("You can only cancel your own bookings")
	}
	return s.cancel(ctx, b)
}

func (s *BookingService) cancel(ctx context.Context, loaded *models.Booking) (*models.Booking, error) {
	var b *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := s.bookings.WithTx(tx)
		var err error
		b, err = bookings.GetByIDForUpdate(loaded.ID)
		if err != nil {
			return err
		}
		switch b.Status {
		case domain.BookingCancelled:
			return apperr.BadRequest("Booking is already cancelled")
		case domain.BookingCompleted:
			return apperr.BadRequest("Cannot cancel a completed booking")
		}
		if b.Status == domain.BookingConfirmed {
			if err := s.tours.WithTx(tx).ReleaseCapacity(b.TourID, b.NumberOfPeople); err != nil {
				return err
			}
		}
		if err := s.payments.WithTx(tx).CancelLiveForBooking(b.ID); err != nil {
			return err
		}
		at := now()
		b.Status = domain.BookingCancelled
		b.CancelledAt = &at
		if b.PaymentStatus != domain.PaymentCompleted {
			b.PaymentStatus = domain.PaymentCancelled
		}
		return bookings.Update(b)
	})
	if err != nil {
		return nil, notFound(err, "Booking not found")
	}
	logger.For("booking").WithField("booking_id", b.ID).Info("booking cancelled")
	if loaded.Tour != nil {
		s.notifier.BookingCancelled(b.UserID, b.ID, loaded.Tour.Title)
	}
	b.Tour = loaded.Tour
	return b, nil
}

// UpdateStatus lets the tour's host or an admin complete or cancel a booking.
// CONFIRMED is only reachable through payment or COD.
func (s *BookingService) UpdateStatus(ctx context.Context, actor Actor, id uint, status string) (*models.Booking, error) {
	b, a, err := s.load(actor, id)
	if err != nil {
		return nil, err
	}
	if !a.host && !a.admin {
		return nil, apperr.Forbidden("You are not authorized to update this booking")
	}
	switch strings.ToUpper(status) {
	case domain.BookingCancelled:
		return s.cancel(ctx, b)
	case domain.BookingCompleted:
		return s.complete(ctx, b)
	}
	return nil, apperr.BadRequest("Status can only be set to COMPLETED or CANCELLED")
}

func (s *BookingService) complete(ctx context.Context, loaded *models.Booking) (*models.Booking, error) {
	if loaded.Tour == nil || !loaded.Tour.HasEnded(time.Now()) {
		return nil, apperr.BadRequest("Cannot complete booking before tour ends")
	}
	var b *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := s.bookings.WithTx(tx)
		var err error
		b, err = bookings.GetByIDForUpdate(loaded.ID)
		if err != nil {
			return err
		}
		if b.Status != domain.BookingConfirmed {
			return apperr.BadRequestf("Cannot complete a %s booking", strings.ToLower(b.Status))
		}
		at := now()
		b.Status = domain.BookingCompleted
		b.CompletedAt = &at
		return bookings.Update(b)
	})
	if err != nil {
		return nil, notFound(err, "Booking not found")
	}
	b.Tour = loaded.Tour
	return b, nil
}

// Delete removes a PENDING or CANCELLED booking. Admin only.
func (s *BookingService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := s.bookings.WithTx(tx)
		b, err := bookings.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if b.Status != domain.BookingPending && b.Status != domain.BookingCancelled {
			return apperr.BadRequest("Only pending or cancelled bookings can be deleted")
		}
		if err := s.payments.WithTx(tx).CancelLiveForBooking(b.ID); err != nil {
			return err
		}
		return bookings.Delete(b.ID)
	})
	return notFound(err, "Booking not found")
}

func (s *BookingService) HostStats(userID uint) (*repository.BookingStats, error) {
	h, err := hostFor(s.hosts, userID)
	if err != nil {
		return nil, err
	}
	st, err := s.bookings.Stats(repository.BookingFilter{HostID: &h.ID})
	return st, dbErr(err)
}

func (s *BookingService) UserStats(userID uint) (*repository.BookingStats, error) {
	st, err := s.bookings.Stats(repository.BookingFilter{UserID: &userID})
	return st, dbErr(err)
}

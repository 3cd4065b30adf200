package service

import (
	"tourhub/internal/apperr"
	"tourhub/internal/domain"
	"tourhub/internal/repository"

	"gorm.io/gorm"
)

type HostDashboard struct {
	Tours         *repository.HostTourStats `json:"tours"`
	Bookings      *repository.BookingStats  `json:"bookings"`
	Payouts       *repository.PayoutTotals  `json:"payouts"`
	BalanceCents  int64                     `json:"balance_cents"`
	EarningsCents int64                     `json:"total_earnings_cents"`
	AverageRating float64                   `json:"average_rating"`
	TotalReviews  int                       `json:"total_reviews"`
}

type TouristDashboard struct {
	Bookings        *repository.BookingStats `json:"bookings"`
	TotalSpentCents int64                    `json:"total_spent_cents"`
	Reviews         int64                    `json:"reviews"`
}

// MetaService builds the role-dependent dashboard.
type MetaService struct {
	admins   *repository.AdminRepository
	hosts    *repository.HostRepository
	tourists *repository.TouristRepository
	tours    *repository.TourRepository
	bookings *repository.BookingRepository
	payouts  *repository.PayoutRepository
	reviews  *repository.ReviewRepository
}

func NewMetaService(db *gorm.DB) *MetaService {
	return &MetaService{
		admins:   repository.NewAdminRepository(db),
		hosts:    repository.NewHostRepository(db),
		tourists: repository.NewTouristRepository(db),
		tours:    repository.NewTourRepository(db),
		bookings: repository.NewBookingRepository(db),
		payouts:  repository.NewPayoutRepository(db),
		reviews:  repository.NewReviewRepository(db),
	}
}

func (s *MetaService) Dashboard(actor Actor) (interface{}, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		d, err := s.admins.GetDashboard()
		return d, dbErr(err)
	case domain.RoleHost:
		return s.host(actor.UserID)
	case domain.RoleTourist:
		return s.tourist(actor.UserID)
	}
	return nil, apperr.Forbidden("Unknown role")
}

func (s *MetaService) host(userID uint) (*HostDashboard, error) {
	h, err := hostFor(s.hosts, userID)
	if err != nil {
		return nil, err
	}
	tours, err := s.tours.HostStats(h.ID)
	if err != nil {
		return nil, dbErr(err)
	}
	bookings, err := s.bookings.Stats(repository.BookingFilter{HostID: &h.ID})
	if err != nil {
		return nil, dbErr(err)
	}
	payouts, err := s.payouts.Totals(h.ID)
	if err != nil {
		return nil, dbErr(err)
	}
	return &HostDashboard{
		Tours:         tours,
		Bookings:      bookings,
		Payouts:       payouts,
		BalanceCents:  h.BalanceCents,
		EarningsCents: h.TotalEarningsCents,
		AverageRating: h.AverageRating,
		TotalReviews:  h.TotalReviews,
	}, nil
}

func (s *MetaService) tourist(userID uint) (*TouristDashboard, error) {
	t, err := touristFor(s.tourists, userID)
	if err != nil {
		return nil, err
	}
	bookings, err := s.bookings.Stats(repository.BookingFilter{UserID: &userID})
	if err != nil {
		return nil, dbErr(err)
	}
	_, reviews, err := s.reviews.List(repository.ReviewFilter{TouristID: &t.ID}, repository.Page{Page: 1, Limit: 1})
	if err != nil {
		return nil, dbErr(err)
	}
	return &TouristDashboard{Bookings: bookings, TotalSpentCents: t.TotalSpentCents, Reviews: reviews}, nil
}

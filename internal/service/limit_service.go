package service

import (
	"fmt"
	"time"

	"tourhub/internal/apperr"
	"tourhub/internal/domain"
	"tourhub/internal/logger"
	"tourhub/internal/models"
	"tourhub/internal/repository"

	"gorm.io/gorm"
)

// LimitService enforces the tour and blog allowances of a host's plan.
type LimitService struct {
	db    *gorm.DB
	hosts *repository.HostRepository
	subs  *repository.SubscriptionRepository
}

func NewLimitService(db *gorm.DB) *LimitService {
	return &LimitService{
		db:    db,
		hosts: repository.NewHostRepository(db),
		subs:  repository.NewSubscriptionRepository(db),
	}
}

// CheckTour returns FORBIDDEN when the host may not create another tour.
func (s *LimitService) CheckTour(userID uint) error {
	h, err := s.current(userID)
	if err != nil {
		return err
	}
	return tourAllowed(h)
}

// CheckBlog returns FORBIDDEN when the host may not create another blog.
func (s *LimitService) CheckBlog(userID uint) error {
	h, err := s.current(userID)
	if err != nil {
		return err
	}
	return blogAllowed(h)
}

// current loads the host and expires a lapsed subscription first.
func (s *LimitService) current(userID uint) (*models.Host, error) {
	h, err := s.hosts.GetWithSubscription(userID)
	if err != nil {
		return nil, notFound(err, "Host not found")
	}
	if err := expireIfLapsed(s.db, h, time.Now()); err != nil {
		return nil, dbErr(err)
	}
	return h, nil
}

// expireIfLapsed marks an ACTIVE subscription past its end date EXPIRED and puts the host back on the free limits.
func expireIfLapsed(db *gorm.DB, h *models.Host, at time.Time) error {
	sub := h.Subscription
	if sub == nil || sub.Status != domain.SubscriptionActive || !sub.Expired(at) {
		return nil
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewSubscriptionRepository(tx).UpdateFields(sub.ID, map[string]interface{}{"status": domain.SubscriptionExpired}); err != nil {
			return err
		}
		return repository.NewHostRepository(tx).UpdateFields(h.ID, freeLimits())
	})
	if err != nil {
		return err
	}
	logger.For("limits").WithField("subscription_id", sub.ID).Info("subscription expired, host downgraded")
	h.TourLimit = domain.FreeTourLimit
	h.BlogLimit = intPtr(domain.FreeBlogLimit)
	h.SubscriptionID = nil
	h.Subscription = nil
	return nil
}

func freeLimits() map[string]interface{} {
	return map[string]interface{}{
		"tour_limit":      domain.FreeTourLimit,
		"blog_limit":      domain.FreeBlogLimit,
		"subscription_id": nil,
	}
}

func activeSub(h *models.Host) *models.Subscription {
	if h.Subscription != nil && h.Subscription.Status == domain.SubscriptionActive {
		return h.Subscription
	}
	return nil
}

func tourAllowed(h *models.Host) error {
	limit, ok := h.TourLimit, h.CurrentTourCount < h.TourLimit
	if sub := activeSub(h); sub != nil {
		limit, ok = sub.TourLimit, sub.RemainingTours > 0
	}
	if ok {
		return nil
	}
	return apperr.Forbidden(fmt.Sprintf("You have reached your tour limit (%d/%d). Please upgrade your subscription to create more tours.", h.CurrentTourCount, limit))
}

func blogAllowed(h *models.Host) error {
	limit := h.BlogLimit
	ok := limit == nil || h.CurrentBlogCount < *limit
	if sub := activeSub(h); sub != nil {
		limit = sub.BlogLimit
		ok = limit == nil || (sub.RemainingBlogs != nil && *sub.RemainingBlogs > 0)
	}
	if ok {
		return nil
	}
	return apperr.Forbidden(fmt.Sprintf("You have reached your blog limit (%d/%d). Please upgrade your subscription to create more blogs.", h.CurrentBlogCount, *limit))
}

// lockHostWithSubscription locks the host row and loads its subscription inside tx.
func lockHostWithSubscription(tx *gorm.DB, userID uint) (*models.Host, error) {
	h, err := repository.NewHostRepository(tx).GetByUserIDForUpdate(userID)
	if err != nil {
		return nil, notFound(err, "Host not found")
	}
	if h.SubscriptionID != nil {
		sub, err := repository.NewSubscriptionRepository(tx).GetByIDForUpdate(*h.SubscriptionID)
		if err != nil && !repository.IsNotFound(err) {
			return nil, err
		}
		h.Subscription = sub
	}
	return h, nil
}

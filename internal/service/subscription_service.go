package service

import (
	"context"
	"strings"
	"time"

	"tourhub/internal/apperr"
	"tourhub/internal/database"
	"tourhub/internal/domain"
	"tourhub/internal/logger"
	"tourhub/internal/models"
	"tourhub/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PlanInput carries plan fields. Nil pointers are left unchanged on update.
type PlanInput struct {
	Name           *string
	Description    *string
	PriceCents     *int64
	Currency       *string
	DurationMonths *int
	TourLimit      *int
	BlogLimit      *int
	UnlimitedBlogs *bool
	Features       []string
	IsActive       *bool
}

func (in *PlanInput) apply(p *models.SubscriptionPlan) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.PriceCents != nil {
		p.PriceCents = *in.PriceCents
	}
	if in.Currency != nil {
		p.Currency = strings.ToLower(*in.Currency)
	}
	if in.DurationMonths != nil {
		p.DurationMonths = *in.DurationMonths
	}
	if in.TourLimit != nil {
		p.TourLimit = *in.TourLimit
	}
	if in.BlogLimit != nil {
		p.BlogLimit = intPtr(*in.BlogLimit)
	}
	if in.UnlimitedBlogs != nil && *in.UnlimitedBlogs {
		p.BlogLimit = nil
	}
	if in.Features != nil {
		p.Features = in.Features
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

func validatePlan(p *models.SubscriptionPlan) error {
	switch {
	case p.Name == "":
		return apperr.BadRequest("Plan name is required")
	case p.PriceCents < 0:
		return apperr.BadRequest("Price cannot be negative")
	case p.DurationMonths < 1:
		return apperr.BadRequest("Duration must be at least one month")
	case p.TourLimit < 1:
		return apperr.BadRequest("Tour limit must be at least 1")
	case p.BlogLimit != nil && *p.BlogLimit < 0:
		return apperr.BadRequest("Blog limit cannot be negative")
	}
	return nil
}

// AdminSubscriptionUpdate is the admin's manual adjustment of one subscription.
type AdminSubscriptionUpdate struct {
	Status          *string
	ExtendDays      *int
	AdjustTourLimit *int
	AdjustBlogLimit *int
	AdminNotes      *string
}

// Subscribed is the outcome of a subscribe call. Checkout is set for paid plans.
type Subscribed struct {
	Subscription *models.Subscription `json:"subscription"`
	Checkout     *Checkout            `json:"checkout,omitempty"`
}

// CurrentSubscription is what a host sees about its plan and allowances.
type CurrentSubscription struct {
	Status           string               `json:"status"` // ACTIVE, PENDING or FREE
	Subscription     *models.Subscription `json:"subscription"`
	TourLimit        int                  `json:"tour_limit"`
	CurrentTourCount int                  `json:"current_tour_count"`
	RemainingTours   int                  `json:"remaining_tours"`
	BlogLimit        *int                 `json:"blog_limit"`
	CurrentBlogCount int                  `json:"current_blog_count"`
	RemainingBlogs   *int                 `json:"remaining_blogs"`
}

type SubscriptionService struct {
	db       *gorm.DB
	currency string
	payments *PaymentService
	notifier *NotificationService
	subs     *repository.SubscriptionRepository
	hosts    *repository.HostRepository
	pays     *repository.PaymentRepository
}

func NewSubscriptionService(db *gorm.DB, currency string, payments *PaymentService, notifier *NotificationService) *SubscriptionService {
	return &SubscriptionService{
		db:       db,
		currency: currency,
		payments: payments,
		notifier: notifier,
		subs:     repository.NewSubscriptionRepository(db),
		hosts:    repository.NewHostRepository(db),
		pays:     repository.NewPaymentRepository(db),
	}
}

// Plans

func (s *SubscriptionService) ListPlans(activeOnly bool) ([]models.SubscriptionPlan, error) {
	list, err := s.subs.ListPlans(activeOnly)
	return list, dbErr(err)
}

func (s *SubscriptionService) GetPlan(id uint) (*models.SubscriptionPlan, error) {
	p, err := s.subs.GetPlan(id)
	return p, notFound(err, "Subscription plan not found")
}

func (s *SubscriptionService) CreatePlan(in PlanInput) (*models.SubscriptionPlan, error) {
	p := &models.SubscriptionPlan{Currency: s.currency, DurationMonths: 12, IsActive: true}
	in.apply(p)
	if err := validatePlan(p); err != nil {
		return nil, err
	}
	if _, err := s.subs.GetPlanByName(p.Name); err == nil {
		return nil, apperr.Conflict("A plan with this name already exists")
	}
	if err := s.subs.CreatePlan(p); err != nil {
		return nil, dbErr(err)
	}
	return p, nil
}

func (s *SubscriptionService) UpdatePlan(id uint, in PlanInput) (*models.SubscriptionPlan, error) {
	p, err := s.GetPlan(id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := validatePlan(p); err != nil {
		return nil, err
	}
	if other, err := s.subs.GetPlanByName(p.Name); err == nil && other.ID != p.ID {
		return nil, apperr.Conflict("A plan with this name already exists")
	}
	return p, dbErr(s.subs.UpdatePlan(p))
}

func (s *SubscriptionService) DeletePlan(id uint) error {
	if _, err := s.GetPlan(id); err != nil {
		return err
	}
	n, err := s.subs.CountForPlan(id)
	if err != nil {
		return dbErr(err)
	}
	if n > 0 {
		return apperr.BadRequest("Cannot delete a plan that has subscriptions")
	}
	return dbErr(s.subs.DeletePlan(id))
}

// InitializePlans creates the missing default plans.
func (s *SubscriptionService) InitializePlans() ([]models.SubscriptionPlan, int, error) {
	created, err := database.SeedPlans(s.db, s.currency)
	if err != nil {
		return nil, created, dbErr(err)
	}
	list, err := s.subs.ListPlans(false)
	return list, created, dbErr(err)
}

// Host side

// Subscribe starts a subscription. Free plans activate at once; paid plans stay PENDING until
// their checkout settles. A PENDING subscription is replaced by a new call.
func (s *SubscriptionService) Subscribe(ctx context.Context, actor Actor, planID uint) (*Subscribed, error) {
	var sub *models.Subscription
	var plan *models.SubscriptionPlan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subs := s.subs.WithTx(tx)
		h, err := lockHostWithSubscription(tx, actor.UserID)
		if err != nil {
			return err
		}
		at := now()
		if err := expireIfLapsed(tx, h, at); err != nil {
			return err
		}
		plan, err = subs.GetPlan(planID)
		if err != nil {
			return notFound(err, "Subscription plan not found")
		}
		if !plan.IsActive {
			return apperr.BadRequest("This subscription plan is not available")
		}
		open, err := subs.FindOpenForHost(h.ID)
		switch {
		case err == nil && open.Status == domain.SubscriptionActive && open.Plan != nil && !open.Plan.IsFree():
			return apperr.BadRequest("You already have an active subscription. Please cancel it first.")
		case err == nil && open.Status == domain.SubscriptionActive && plan.IsFree():
			return apperr.BadRequest("You are already on the free plan")
		case err == nil && open.Status == domain.SubscriptionPending:
			if err := s.pays.WithTx(tx).CancelLiveForSubscription(open.ID); err != nil {
				return err
			}
			if err := subs.UpdateFields(open.ID, map[string]interface{}{"status": domain.SubscriptionCancelled, "cancelled_at": at}); err != nil {
				return err
			}
		case err != nil && !repository.IsNotFound(err):
			return err
		}

		sub = &models.Subscription{
			HostID:         h.ID,
			PlanID:         plan.ID,
			Status:         domain.SubscriptionPending,
			TourLimit:      plan.TourLimit,
			RemainingTours: plan.TourLimit,
			BlogLimit:      plan.BlogLimit,
			RemainingBlogs: plan.BlogLimit,
		}
		if plan.IsFree() {
			return activateSubscription(tx, h, sub, plan, at)
		}
		return subs.Create(sub)
	})
	if err != nil {
		return nil, dbErr(err)
	}
	sub.Plan = plan
	log := logger.For("subscription").WithFields(logrus.Fields{"subscription_id": sub.ID, "plan": plan.Name})
	out := &Subscribed{Subscription: sub}
	if sub.Status == domain.SubscriptionActive {
		log.Info("free subscription activated")
		s.notifier.SubscriptionActivated(actor.UserID, sub.ID, plan.Name)
		return out, nil
	}
	log.Info("subscription pending payment")
	out.Checkout, err = s.payments.subscriptionCheckout(ctx, actor.UserID, sub)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// activateSubscription starts sub now and moves the host onto the plan's allowances.
// Any other ACTIVE subscription of the host is cancelled.
func activateSubscription(tx *gorm.DB, h *models.Host, sub *models.Subscription, plan *models.SubscriptionPlan, at time.Time) error {
	subs := repository.NewSubscriptionRepository(tx)
	end := at.AddDate(0, plan.DurationMonths, 0)
	sub.Status = domain.SubscriptionActive
	sub.StartDate = &at
	sub.EndDate = &end
	sub.TourLimit = plan.TourLimit
	sub.RemainingTours = plan.TourLimit
	sub.BlogLimit = copyInt(plan.BlogLimit)
	sub.RemainingBlogs = copyInt(plan.BlogLimit)
	var err error
	if sub.ID == 0 {
		err = subs.Create(sub)
	} else {
		err = subs.Update(sub)
	}
	if err != nil {
		return err
	}
	if h.SubscriptionID != nil && *h.SubscriptionID != sub.ID {
		prev, err := subs.GetByIDForUpdate(*h.SubscriptionID)
		if err != nil && !repository.IsNotFound(err) {
			return err
		}
		if prev != nil && prev.Status == domain.SubscriptionActive {
			if err := subs.UpdateFields(prev.ID, map[string]interface{}{"status": domain.SubscriptionCancelled, "cancelled_at": at}); err != nil {
				return err
			}
		}
	}
	return repository.NewHostRepository(tx).UpdateFields(h.ID, map[string]interface{}{
		"tour_limit":         plan.TourLimit,
		"current_tour_count": 0,
		"blog_limit":         plan.BlogLimit,
		"current_blog_count": 0,
		"subscription_id":    sub.ID,
	})
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	return intPtr(*v)
}

func (s *SubscriptionService) MySubscription(userID uint) (*CurrentSubscription, error) {
	h, err := s.hosts.GetWithSubscription(userID)
	if err != nil {
		return nil, notFound(err, "Host not found")
	}
	if err := expireIfLapsed(s.db, h, time.Now()); err != nil {
		return nil, dbErr(err)
	}
	out := &CurrentSubscription{
		Status:           "FREE",
		TourLimit:        h.TourLimit,
		CurrentTourCount: h.CurrentTourCount,
		BlogLimit:        h.BlogLimit,
		CurrentBlogCount: h.CurrentBlogCount,
	}
	out.RemainingTours = h.TourLimit - h.CurrentTourCount
	if h.BlogLimit != nil {
		out.RemainingBlogs = intPtr(*h.BlogLimit - h.CurrentBlogCount)
	}
	if sub := activeSub(h); sub != nil {
		out.Status = sub.Status
		out.Subscription = sub
		out.TourLimit = sub.TourLimit
		out.RemainingTours = sub.RemainingTours
		out.BlogLimit = sub.BlogLimit
		out.RemainingBlogs = sub.RemainingBlogs
		return out, nil
	}
	pending, err := s.subs.FindOpenForHost(h.ID)
	if err == nil && pending.Status == domain.SubscriptionPending {
		out.Status = pending.Status
		out.Subscription = pending
	} else if err != nil && !repository.IsNotFound(err) {
		return nil, dbErr(err)
	}
	if out.RemainingTours < 0 {
		out.RemainingTours = 0
	}
	return out, nil
}

// Cancel cancels the host's ACTIVE or PENDING subscription and falls back to the free allowances.
func (s *SubscriptionService) Cancel(ctx context.Context, userID uint) (*models.Subscription, error) {
	var sub *models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subs := s.subs.WithTx(tx)
		h, err := lockHostWithSubscription(tx, userID)
		if err != nil {
			return err
		}
		sub, err = subs.FindOpenForHost(h.ID)
		if err != nil {
			return notFound(err, "No active subscription found")
		}
		at := now()
		sub.Status = domain.SubscriptionCancelled
		sub.CancelledAt = &at
		sub.AutoRenew = false
		if err := subs.Update(sub); err != nil {
			return err
		}
		if err := s.pays.WithTx(tx).CancelLiveForSubscription(sub.ID); err != nil {
			return err
		}
		if h.SubscriptionID == nil || *h.SubscriptionID != sub.ID {
			return nil
		}
		return s.downgrade(tx, h)
	})
	if err != nil {
		return nil, dbErr(err)
	}
	logger.For("subscription").WithField("subscription_id", sub.ID).Info("subscription cancelled")
	return sub, nil
}

func (s *SubscriptionService) downgrade(tx *gorm.DB, h *models.Host) error {
	fields := freeLimits()
	if h.CurrentTourCount > domain.FreeTourLimit {
		fields["current_tour_count"] = domain.FreeTourLimit
	}
	if h.CurrentBlogCount > domain.FreeBlogLimit {
		fields["current_blog_count"] = domain.FreeBlogLimit
	}
	return s.hosts.WithTx(tx).UpdateFields(h.ID, fields)
}

// Admin side

func (s *SubscriptionService) List(f repository.SubscriptionFilter, p repository.Page) ([]models.Subscription, int64, error) {
	list, total, err := s.subs.List(f, p)
	return list, total, dbErr(err)
}

func (s *SubscriptionService) Get(id uint) (*models.Subscription, error) {
	sub, err := s.subs.GetByID(id)
	return sub, notFound(err, "Subscription not found")
}

// Update applies an admin adjustment. Setting ACTIVE is only possible for a PENDING subscription.
func (s *SubscriptionService) Update(ctx context.Context, id uint, in AdminSubscriptionUpdate) (*models.Subscription, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subs := s.subs.WithTx(tx)
		sub, err := subs.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		h, err := s.hosts.WithTx(tx).GetByID(sub.HostID)
		if err != nil {
			return err
		}
		current := h.SubscriptionID != nil && *h.SubscriptionID == sub.ID
		at := now()

		if in.Status != nil && strings.ToUpper(*in.Status) != sub.Status {
			switch status := strings.ToUpper(*in.Status); status {
			case domain.SubscriptionActive:
				if sub.Status != domain.SubscriptionPending {
					return apperr.BadRequest("Only a pending subscription can be activated")
				}
				plan, err := subs.GetPlan(sub.PlanID)
				if err != nil {
					return err
				}
				if err := activateSubscription(tx, h, sub, plan, at); err != nil {
					return err
				}
				current = true
			case domain.SubscriptionCancelled, domain.SubscriptionExpired:
				sub.Status = status
				if status == domain.SubscriptionCancelled {
					sub.CancelledAt = &at
					sub.AutoRenew = false
				}
				if err := s.pays.WithTx(tx).CancelLiveForSubscription(sub.ID); err != nil {
					return err
				}
				if current {
					if err := s.downgrade(tx, h); err != nil {
						return err
					}
					current = false
				}
			default:
				return apperr.BadRequest("Status must be ACTIVE, CANCELLED or EXPIRED")
			}
		}
		if in.ExtendDays != nil && *in.ExtendDays != 0 {
			if sub.EndDate == nil {
				return apperr.BadRequest("Only a started subscription can be extended")
			}
			end := sub.EndDate.AddDate(0, 0, *in.ExtendDays)
			sub.EndDate = &end
		}
		hostFields := map[string]interface{}{}
		if d := in.AdjustTourLimit; d != nil {
			sub.TourLimit = maxInt(1, sub.TourLimit+*d)
			sub.RemainingTours = maxInt(0, sub.RemainingTours+*d)
			hostFields["tour_limit"] = sub.TourLimit
		}
		if d := in.AdjustBlogLimit; d != nil && sub.BlogLimit != nil {
			sub.BlogLimit = intPtr(maxInt(0, *sub.BlogLimit+*d))
			remaining := 0
			if sub.RemainingBlogs != nil {
				remaining = *sub.RemainingBlogs
			}
			sub.RemainingBlogs = intPtr(maxInt(0, remaining+*d))
			hostFields["blog_limit"] = *sub.BlogLimit
		}
		if in.AdminNotes != nil {
			sub.AdminNotes = *in.AdminNotes
		}
		if err := subs.Update(sub); err != nil {
			return err
		}
		if current && sub.Status == domain.SubscriptionActive && len(hostFields) > 0 {
			return s.hosts.WithTx(tx).UpdateFields(h.ID, hostFields)
		}
		return nil
	})
	if err != nil {
		return nil, notFound(err, "Subscription not found")
	}
	return s.Get(id)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (s *SubscriptionService) Delete(id uint) error {
	sub, err := s.Get(id)
	if err != nil {
		return err
	}
	if sub.Status == domain.SubscriptionActive {
		return apperr.BadRequest("Cannot delete active subscription. Cancel it first.")
	}
	return dbErr(s.subs.Delete(id))
}

func (s *SubscriptionService) Overview() (*repository.SubscriptionOverview, error) {
	o, err := s.subs.Overview()
	return o, dbErr(err)
}

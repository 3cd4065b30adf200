package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tourhub/config"
	"tourhub/internal/apperr"
	"tourhub/internal/domain"
	"tourhub/internal/logger"
	"tourhub/internal/models"
	"tourhub/internal/repository"
	"tourhub/pkg/payment"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Checkout is the redirect handed back to the client for an online payment.
type Checkout struct {
	PaymentID   uint   `json:"payment_id"`
	SessionID   string `json:"session_id"`
	URL         string `json:"url"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Reused      bool   `json:"reused"`
}

type PaymentService struct {
	db       *gorm.DB
	cfg      config.PaymentConfig
	gateway  payment.Gateway
	notifier *NotificationService

	users    *repository.UserRepository
	payments *repository.PaymentRepository
	bookings *repository.BookingRepository
	tours    *repository.TourRepository
	hosts    *repository.HostRepository
	tourists *repository.TouristRepository
	subs     *repository.SubscriptionRepository
}

func NewPaymentService(db *gorm.DB, cfg config.PaymentConfig, gateway payment.Gateway, notifier *NotificationService) *PaymentService {
	return &PaymentService{
		db:       db,
		cfg:      cfg,
		gateway:  gateway,
		notifier: notifier,
		users:    repository.NewUserRepository(db),
		payments: repository.NewPaymentRepository(db),
		bookings: repository.NewBookingRepository(db),
		tours:    repository.NewTourRepository(db),
		hosts:    repository.NewHostRepository(db),
		tourists: repository.NewTouristRepository(db),
		subs:     repository.NewSubscriptionRepository(db),
	}
}

// InitiateBookingPayment opens (or reuses) a checkout session for a PENDING online booking.
func (s *PaymentService) InitiateBookingPayment(ctx context.Context, actor Actor, bookingID uint) (*Checkout, error) {
	b, err := s.bookings.GetWithTour(bookingID)
	if err != nil {
		return nil, notFound(err, "Booking not found")
	}
	if b.UserID != actor.UserID {
		return nil, apperr.Forbidden("You are not authorized to pay for this booking")
	}
	switch {
	case b.PaymentStatus == domain.PaymentCompleted:
		return nil, apperr.BadRequest("This booking is already paid")
	case b.Status == domain.BookingCancelled:
		return nil, apperr.BadRequest("This booking is cancelled")
	case b.Status != domain.BookingPending:
		return nil, apperr.BadRequestf("Cannot pay for a %s booking", b.Status)
	case b.PaymentMethod == domain.PaymentMethodCOD:
		return nil, apperr.BadRequest("Cash on delivery bookings are paid on arrival")
	}

	if c, ok := s.reuse(ctx, b.ID, 0, b.TotalAmountCents); ok {
		return c, nil
	}
	p := &models.Payment{
		UserID:      actor.UserID,
		BookingID:   &b.ID,
		AmountCents: b.TotalAmountCents,
		Currency:    s.cfg.Currency,
		Provider:    s.gateway.Name(),
		Status:      domain.PaymentPending,
	}
	title := "Tour booking"
	if b.Tour != nil {
		title = b.Tour.Title
	}
	meta := map[string]string{payment.MetaBookingID: strconv.FormatUint(uint64(b.ID), 10)}
	desc := fmt.Sprintf("%d participant(s)", b.NumberOfPeople)
	return s.checkout(ctx, p, title, desc, meta)
}

// InitiateSubscriptionPayment opens a checkout session for the host's PENDING paid subscription.
func (s *PaymentService) InitiateSubscriptionPayment(ctx context.Context, actor Actor, subscriptionID uint) (*Checkout, error) {
	sub, err := s.subs.GetByID(subscriptionID)
	if err != nil {
		return nil, notFound(err, "Subscription not found")
	}
	h, err := hostFor(s.hosts, actor.UserID)
	if err != nil {
		return nil, err
	}
	if sub.HostID != h.ID {
		return nil, apperr.Forbidden("You are not authorized to pay for this subscription")
	}
	if sub.Status != domain.SubscriptionPending {
		return nil, apperr.BadRequestf("Cannot pay for a %s subscription", sub.Status)
	}
	if sub.Plan == nil || sub.Plan.IsFree() {
		return nil, apperr.BadRequest("This plan does not require payment")
	}
	return s.subscriptionCheckout(ctx, actor.UserID, sub)
}

func (s *PaymentService) subscriptionCheckout(ctx context.Context, userID uint, sub *models.Subscription) (*Checkout, error) {
	if c, ok := s.reuse(ctx, 0, sub.ID, sub.Plan.PriceCents); ok {
		return c, nil
	}
	p := &models.Payment{
		UserID:         userID,
		SubscriptionID: &sub.ID,
		AmountCents:    sub.Plan.PriceCents,
		Currency:       sub.Plan.Currency,
		Provider:       s.gateway.Name(),
		Status:         domain.PaymentPending,
	}
	meta := map[string]string{payment.MetaSubscriptionID: strconv.FormatUint(uint64(sub.ID), 10)}
	desc := fmt.Sprintf("%d tours, %d months", sub.Plan.TourLimit, sub.Plan.DurationMonths)
	return s.checkout(ctx, p, sub.Plan.Name+" plan", desc, meta)
}

// reuse returns the live checkout of a booking or subscription when the provider still has it open
// for the same amount. Stale attempts are closed so only one stays live.
func (s *PaymentService) reuse(ctx context.Context, bookingID, subscriptionID uint, amount int64) (*Checkout, bool) {
	var p *models.Payment
	var err error
	if bookingID != 0 {
		p, err = s.payments.LatestLiveForBooking(bookingID)
	} else {
		p, err = s.payments.LatestLiveForSubscription(subscriptionID)
	}
	if err != nil || p.SessionID == nil {
		return nil, false
	}
	sess, err := s.gateway.GetCheckoutSession(ctx, *p.SessionID)
	if err == nil && sess.Status == payment.SessionOpen && p.AmountCents == amount {
		return &Checkout{
			PaymentID: p.ID, SessionID: sess.ID, URL: p.SessionURL,
			AmountCents: p.AmountCents, Currency: p.Currency, Reused: true,
		}, true
	}
	status, reason := domain.PaymentCancelled, "superseded by a new checkout"
	if err == nil && sess.Status == payment.SessionExpired {
		status, reason = domain.PaymentFailed, "checkout session expired"
	}
	if err := s.payments.UpdateFields(p.ID, map[string]interface{}{"status": status, "failure_reason": reason}); err != nil {
		logger.For("payment").WithError(err).WithField("payment_id", p.ID).Warn("could not close stale payment")
	}
	return nil, false
}

func (s *PaymentService) checkout(ctx context.Context, p *models.Payment, product, desc string, meta map[string]string) (*Checkout, error) {
	log := logger.For("payment")
	if err := s.payments.Create(p); err != nil {
		return nil, dbErr(err)
	}
	meta[payment.MetaPaymentID] = strconv.FormatUint(uint64(p.ID), 10)
	meta[payment.MetaUserID] = strconv.FormatUint(uint64(p.UserID), 10)
	var email string
	if u, err := s.users.GetByID(p.UserID); err == nil {
		email = u.Email
	}
	sess, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		AmountCents:    p.AmountCents,
		Currency:       p.Currency,
		ProductName:    product,
		Description:    desc,
		CustomerEmail:  email,
		Metadata:       meta,
		SuccessURL:     s.cfg.SuccessURL,
		CancelURL:      s.cfg.CancelURL,
		ExpiresIn:      s.cfg.SessionExpiry,
		IdempotencyKey: fmt.Sprintf("checkout-%d", p.ID),
	})
	if err != nil {
		log.WithError(err).WithField("payment_id", p.ID).Error("checkout session creation failed")
		_ = s.payments.UpdateFields(p.ID, map[string]interface{}{"status": domain.PaymentFailed, "failure_reason": "checkout session could not be created"})
		return nil, &apperr.Error{Status: http.StatusBadGateway, Message: "Payment provider is unavailable, please try again", Err: err}
	}
	err = s.payments.UpdateFields(p.ID, map[string]interface{}{
		"session_id": sess.ID, "session_url": sess.URL, "status": domain.PaymentProcessing,
	})
	if err != nil {
		return nil, dbErr(err)
	}
	log.WithFields(logrus.Fields{"payment_id": p.ID, "session_id": sess.ID}).Info("checkout session created")
	return &Checkout{
		PaymentID: p.ID, SessionID: sess.ID, URL: sess.URL,
		AmountCents: p.AmountCents, Currency: p.Currency,
	}, nil
}

// settlement collects what must happen once the settlement transaction has committed.
type settlement struct {
	payment      *models.Payment
	booking      *models.Booking
	tour         *models.Tour
	hostUserID   uint
	subscription *models.Subscription
	refund       bool
	intentID     string
}

// HandleWebhook verifies and applies one provider event. A nil error acknowledges the event;
// any other error makes the provider redeliver it.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return apperr.BadRequest("Invalid webhook signature")
		}
		return apperr.BadRequest("Invalid webhook payload")
	}
	log := logger.For("settlement").WithFields(logrus.Fields{"event_id": ev.ID, "event_type": ev.Type})

	if s.cfg.SettlementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SettlementTimeout)
		defer cancel()
	}

	switch ev.Type {
	case payment.EventCheckoutCompleted:
		return s.settleCheckout(ctx, ev, log)
	case payment.EventCheckoutExpired:
		return s.expireCheckout(ctx, ev, log)
	case payment.EventPaymentIntentSucceeded, payment.EventPaymentIntentFailed:
		log.WithField("payment_intent", ev.PaymentIntentID).Info("payment intent event received")
	default:
		log.Debug("ignoring webhook event")
	}
	return nil
}

// paymentFor finds the payment row a checkout session belongs to.
func (s *PaymentService) paymentFor(sess *payment.CheckoutSession) (*models.Payment, error) {
	p, err := s.payments.GetBySessionID(sess.ID)
	if err == nil || !repository.IsNotFound(err) {
		return p, err
	}
	id, perr := strconv.ParseUint(sess.Metadata[payment.MetaPaymentID], 10, 64)
	if perr != nil {
		return nil, err
	}
	return s.payments.GetByID(uint(id))
}

func (s *PaymentService) settleCheckout(ctx context.Context, ev *payment.Event, log *logrus.Entry) error {
	sess := ev.Session
	if sess == nil {
		log.Warn("checkout event without session")
		return nil
	}
	hasBooking := sess.Metadata[payment.MetaBookingID] != ""
	hasSub := sess.Metadata[payment.MetaSubscriptionID] != ""
	if hasBooking == hasSub {
		log.WithField("session_id", sess.ID).Warn("checkout metadata must name exactly one of booking or subscription")
		return nil
	}
	known, err := s.paymentFor(sess)
	if err != nil {
		if repository.IsNotFound(err) {
			log.WithField("session_id", sess.ID).Warn("no payment for checkout session")
			return nil
		}
		return dbErr(err)
	}
	log = log.WithField("payment_id", known.ID)

	var out *settlement
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fresh, err := s.payments.WithTx(tx).RecordEvent(ev.ID, ev.Type)
		if err != nil {
			return err
		}
		if !fresh {
			log.Info("event already processed")
			return nil
		}
		p, err := s.payments.WithTx(tx).GetByIDForUpdate(known.ID)
		if err != nil {
			return err
		}
		if p.Credited || p.Status == domain.PaymentCompleted {
			log.Info("payment already settled")
			return nil
		}
		if sess.PaymentStatus != payment.PaymentStatusPaid {
			return s.failUnpaid(tx, p)
		}
		if sess.AmountTotal != 0 && sess.AmountTotal != p.AmountCents {
			log.WithFields(logrus.Fields{"charged": sess.AmountTotal, "expected": p.AmountCents}).Warn("charged amount differs from payment")
		}
		if p.BookingID != nil {
			out, err = s.settleBooking(tx, p, sess)
		} else {
			out, err = s.settleSubscription(tx, p, sess)
		}
		return err
	})
	if err != nil {
		log.WithError(err).Error("settlement failed")
		return dbErr(err)
	}
	if out != nil {
		s.afterSettlement(ctx, out, log)
	}
	return nil
}

func (s *PaymentService) failUnpaid(tx *gorm.DB, p *models.Payment) error {
	err := s.payments.WithTx(tx).UpdateFields(p.ID, map[string]interface{}{
		"status": domain.PaymentFailed, "failure_reason": "checkout completed without payment",
	})
	if err != nil || p.BookingID == nil || !p.IsLive() {
		return err
	}
	return s.bookings.WithTx(tx).UpdateFields(*p.BookingID, map[string]interface{}{"payment_status": domain.PaymentFailed})
}

func (s *PaymentService) settleBooking(tx *gorm.DB, p *models.Payment, sess *payment.CheckoutSession) (*settlement, error) {
	bookings := s.bookings.WithTx(tx)
	tours := s.tours.WithTx(tx)
	payments := s.payments.WithTx(tx)

	b, err := bookings.GetByIDForUpdate(*p.BookingID)
	if err != nil {
		return nil, err
	}
	tour, err := tours.GetByIDForUpdate(b.TourID)
	if err != nil {
		return nil, err
	}
	out := &settlement{payment: p, booking: b, tour: tour, intentID: sess.PaymentIntentID}
	if h, err := s.hosts.WithTx(tx).GetByID(tour.HostID); err == nil {
		out.hostUserID = h.UserID
	}
	at := now()

	if b.Status != domain.BookingPending {
		out.refund = true
		return out, payments.UpdateFields(p.ID, map[string]interface{}{
			"status": domain.PaymentFailed, "transaction_id": sess.PaymentIntentID,
			"failure_reason": "booking is " + b.Status, "refund_pending": true,
		})
	}
	if !p.IsLive() || p.AmountCents != b.TotalAmountCents {
		// The booking changed after this checkout opened; it keeps waiting for its current payment.
		return &settlement{payment: p, refund: true, intentID: sess.PaymentIntentID},
			payments.UpdateFields(p.ID, map[string]interface{}{
				"status": domain.PaymentFailed, "transaction_id": sess.PaymentIntentID,
				"failure_reason": "checkout superseded by a booking change", "refund_pending": true,
			})
	}

	taken, err := tours.ConfirmedParticipants(tour.ID, b.ID)
	if err != nil {
		return nil, err
	}
	claimed := false
	if taken+b.NumberOfPeople <= tour.MaxGroupSize {
		if claimed, err = tours.ClaimCapacity(tour.ID, b.NumberOfPeople); err != nil {
			return nil, err
		}
	}
	if !claimed {
		out.refund = true
		b.Status = domain.BookingCancelled
		b.PaymentStatus = domain.PaymentFailed
		b.CancelledAt = &at
		if err := bookings.Update(b); err != nil {
			return nil, err
		}
		return out, payments.UpdateFields(p.ID, map[string]interface{}{
			"status": domain.PaymentFailed, "transaction_id": sess.PaymentIntentID,
			"failure_reason": "tour capacity exceeded", "refund_pending": true,
		})
	}

	p.Status = domain.PaymentCompleted
	p.TransactionID = sess.PaymentIntentID
	p.PaidAt = &at
	p.Credited = true
	if err := payments.Update(p); err != nil {
		return nil, err
	}
	b.Status = domain.BookingConfirmed
	b.PaymentStatus = domain.PaymentCompleted
	if err := bookings.Update(b); err != nil {
		return nil, err
	}
	if err := tours.AddEarnings(tour.ID, p.AmountCents); err != nil {
		return nil, err
	}
	if err := s.hosts.WithTx(tx).Credit(tour.HostID, domain.HostShare(p.AmountCents), ref("payment", p.ID)); err != nil {
		return nil, err
	}
	if err := s.tourists.WithTx(tx).AddSpent(b.TouristID, p.AmountCents); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PaymentService) settleSubscription(tx *gorm.DB, p *models.Payment, sess *payment.CheckoutSession) (*settlement, error) {
	subs := s.subs.WithTx(tx)
	payments := s.payments.WithTx(tx)
	sub, err := subs.GetByIDForUpdate(*p.SubscriptionID)
	if err != nil {
		return nil, err
	}
	out := &settlement{payment: p, subscription: sub, intentID: sess.PaymentIntentID}
	if sub.Status != domain.SubscriptionPending {
		out.refund = true
		return out, payments.UpdateFields(p.ID, map[string]interface{}{
			"status": domain.PaymentFailed, "transaction_id": sess.PaymentIntentID,
			"failure_reason": "subscription is " + sub.Status, "refund_pending": true,
		})
	}
	if !p.IsLive() {
		return &settlement{payment: p, refund: true, intentID: sess.PaymentIntentID},
			payments.UpdateFields(p.ID, map[string]interface{}{
				"status": domain.PaymentFailed, "transaction_id": sess.PaymentIntentID,
				"failure_reason": "checkout superseded", "refund_pending": true,
			})
	}
	plan, err := subs.GetPlan(sub.PlanID)
	if err != nil {
		return nil, err
	}
	sub.Plan = plan
	h, err := s.hosts.WithTx(tx).GetByID(sub.HostID)
	if err != nil {
		return nil, err
	}
	out.hostUserID = h.UserID
	at := now()
	if err := activateSubscription(tx, h, sub, plan, at); err != nil {
		return nil, err
	}
	p.Status = domain.PaymentCompleted
	p.TransactionID = sess.PaymentIntentID
	p.PaidAt = &at
	p.Credited = true
	return out, payments.Update(p)
}

func (s *PaymentService) afterSettlement(ctx context.Context, out *settlement, log *logrus.Entry) {
	if out.refund {
		_ = s.refund(ctx, out, log)
		return
	}
	switch {
	case out.booking != nil:
		log.WithField("booking_id", out.booking.ID).Info("booking confirmed")
		s.notifier.BookingConfirmed(out.booking.UserID, out.booking.ID, out.tour.Title)
		if out.hostUserID != 0 {
			s.notifier.NewPaidBooking(out.hostUserID, out.booking.ID, out.tour.Title, out.booking.NumberOfPeople)
		}
	case out.subscription != nil:
		log.WithField("subscription_id", out.subscription.ID).Info("subscription activated")
		name := ""
		if out.subscription.Plan != nil {
			name = out.subscription.Plan.Name
		}
		s.notifier.SubscriptionActivated(out.hostUserID, out.subscription.ID, name)
	}
}

// refund returns a charge that could not be honoured. When the provider refuses, the payment
// stays FAILED with refund_pending set and RetryRefunds picks it up later.
func (s *PaymentService) refund(ctx context.Context, out *settlement, log *logrus.Entry) bool {
	p := out.payment
	if out.intentID == "" {
		log.Error("cannot refund payment without a payment intent")
		return false
	}
	if err := s.gateway.Refund(ctx, out.intentID, fmt.Sprintf("refund-%d", p.ID)); err != nil {
		log.WithError(err).Error("refund failed, will retry")
		return false
	}
	err := s.payments.UpdateFields(p.ID, map[string]interface{}{"status": domain.PaymentRefunded, "refund_pending": false})
	if err != nil {
		log.WithError(err).Error("could not mark payment refunded")
	}
	if out.booking != nil {
		if err := s.bookings.UpdateFields(out.booking.ID, map[string]interface{}{"payment_status": domain.PaymentRefunded}); err != nil {
			log.WithError(err).Error("could not mark booking refunded")
		}
		s.notifier.BookingRefunded(out.booking.UserID, out.booking.ID, out.tour.Title)
	}
	log.Warn("payment refunded")
	return true
}

// RunRefundRetries retries owed refunds every interval until ctx is cancelled.
func (s *PaymentService) RunRefundRetries(ctx context.Context, interval time.Duration) {
	runSweeper(ctx, "refund", interval, s.RetryRefunds)
}

// RetryRefunds makes one pass over payments still owed a refund and returns how many were refunded.
func (s *PaymentService) RetryRefunds(ctx context.Context) (int, error) {
	owed, err := s.payments.ListRefundPending(time.Now().Add(-refundRetryAfter), reconcileBatch)
	if err != nil {
		return 0, err
	}
	done := 0
	for i := range owed {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		p := &owed[i]
		out := &settlement{payment: p, intentID: p.TransactionID}
		if p.BookingID != nil {
			// only bookings the charge was refused for; a superseded checkout leaves its booking alone
			if b, err := s.bookings.GetWithTour(*p.BookingID); err == nil && b.Status == domain.BookingCancelled && b.Tour != nil {
				out.booking, out.tour = b, b.Tour
			}
		}
		if s.refund(ctx, out, logger.For("settlement").WithField("payment_id", p.ID)) {
			done++
		}
	}
	return done, nil
}

func (s *PaymentService) expireCheckout(ctx context.Context, ev *payment.Event, log *logrus.Entry) error {
	if ev.Session == nil {
		return nil
	}
	known, err := s.paymentFor(ev.Session)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return dbErr(err)
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fresh, err := s.payments.WithTx(tx).RecordEvent(ev.ID, ev.Type)
		if err != nil || !fresh {
			return err
		}
		p, err := s.payments.WithTx(tx).GetByIDForUpdate(known.ID)
		if err != nil {
			return err
		}
		if !p.IsLive() {
			return nil
		}
		err = s.payments.WithTx(tx).UpdateFields(p.ID, map[string]interface{}{
			"status": domain.PaymentFailed, "failure_reason": "checkout session expired",
		})
		if err != nil || p.SubscriptionID == nil {
			return err
		}
		subs := s.subs.WithTx(tx)
		sub, err := subs.GetByIDForUpdate(*p.SubscriptionID)
		if err != nil {
			return err
		}
		if sub.Status != domain.SubscriptionPending {
			return nil
		}
		return subs.UpdateFields(sub.ID, map[string]interface{}{"status": domain.SubscriptionCancelled, "cancelled_at": now()})
	})
	if err != nil {
		log.WithError(err).Error("expiring checkout failed")
		return dbErr(err)
	}
	log.WithField("payment_id", known.ID).Info("checkout expired")
	return nil
}

func (s *PaymentService) UserHistory(userID uint, f repository.PaymentFilter, p repository.Page) ([]models.Payment, int64, error) {
	f.UserID = &userID
	list, total, err := s.payments.List(f, p)
	return list, total, dbErr(err)
}

type PaymentList struct {
	Payments       []models.Payment `json:"payments"`
	Total          int64            `json:"-"`
	CompletedCents int64            `json:"completed_amount_cents"`
	PlatformFee    int64            `json:"platform_fee_cents"`
}

// List is the admin view over all payments with the completed total of the filter.
func (s *PaymentService) List(f repository.PaymentFilter, p repository.Page) (*PaymentList, error) {
	list, total, err := s.payments.List(f, p)
	if err != nil {
		return nil, dbErr(err)
	}
	sum, err := s.payments.SumCompleted(f)
	if err != nil {
		return nil, dbErr(err)
	}
	var bookingSum int64
	if f.Kind != "subscription" {
		bf := f
		bf.Kind = "booking"
		if bookingSum, err = s.payments.SumCompleted(bf); err != nil {
			return nil, dbErr(err)
		}
	}
	return &PaymentList{
		Payments:       list,
		Total:          total,
		CompletedCents: sum,
		PlatformFee:    bookingSum - domain.HostShare(bookingSum),
	}, nil
}

type MonthlyEarning struct {
	Month      string `json:"month"` // YYYY-MM
	GrossCents int64  `json:"gross_cents"`
	NetCents   int64  `json:"net_cents"`
	Bookings   int    `json:"bookings"`
}

type HostEarnings struct {
	TotalGrossCents    int64            `json:"total_gross_cents"`
	TotalEarningsCents int64            `json:"total_earnings_cents"`
	PlatformFeeCents   int64            `json:"platform_fee_cents"`
	BalanceCents       int64            `json:"balance_cents"`
	PaidBookings       int64            `json:"paid_bookings"`
	Monthly            []MonthlyEarning `json:"monthly"`
}

// HostEarnings summarises a host's income with one bucket per month for the last 12 months.
func (s *PaymentService) HostEarnings(userID uint) (*HostEarnings, error) {
	h, err := hostFor(s.hosts, userID)
	if err != nil {
		return nil, err
	}
	gross, count, err := s.payments.TotalCompletedForHost(h.ID)
	if err != nil {
		return nil, dbErr(err)
	}
	t := now()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	paid, err := s.payments.CompletedForHost(h.ID, start)
	if err != nil {
		return nil, dbErr(err)
	}
	out := &HostEarnings{
		TotalGrossCents:    gross,
		TotalEarningsCents: h.TotalEarningsCents,
		PlatformFeeCents:   gross - domain.HostShare(gross),
		BalanceCents:       h.BalanceCents,
		PaidBookings:       count,
		Monthly:            make([]MonthlyEarning, 12),
	}
	index := make(map[string]int, 12)
	for i := range out.Monthly {
		m := start.AddDate(0, i, 0).Format("2006-01")
		out.Monthly[i].Month = m
		index[m] = i
	}
	for _, p := range paid {
		if p.PaidAt == nil {
			continue
		}
		i, ok := index[p.PaidAt.UTC().Format("2006-01")]
		if !ok {
			continue
		}
		out.Monthly[i].GrossCents += p.AmountCents
		out.Monthly[i].NetCents += domain.HostShare(p.AmountCents)
		out.Monthly[i].Bookings++
	}
	return out, nil
}

package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tourhub/config"
	"tourhub/internal/apperr"
	"tourhub/internal/domain"
	"tourhub/internal/models"
	"tourhub/internal/testutil"
	"tourhub/pkg/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newPaymentService(db *gorm.DB, gw payment.Gateway) *PaymentService {
	return NewPaymentService(db, config.PaymentConfig{
		Currency:          "usd",
		SuccessURL:        "http://localhost:3000/payment/success",
		CancelURL:         "http://localhost:3000/payment/cancel",
		SessionExpiry:     30 * time.Minute,
		SettlementTimeout: 5 * time.Second,
	}, gw, nil)
}

// paidEvent builds a signed checkout.session.completed event for a checkout the customer paid.
func paidEvent(t *testing.T, gw *payment.StubGateway, co *Checkout, eventID string) ([]byte, string) {
	t.Helper()
	sess, err := gw.GetCheckoutSession(context.Background(), co.SessionID)
	require.NoError(t, err)
	sess.Status = payment.SessionComplete
	sess.PaymentStatus = payment.PaymentStatusPaid
	sess.PaymentIntentID = "pi_" + eventID
	body, sig, err := gw.SignedEvent(eventID, payment.EventCheckoutCompleted, sess)
	require.NoError(t, err)
	return body, sig
}

type bookingFixture struct {
	db      *gorm.DB
	gw      *payment.StubGateway
	pay     *PaymentService
	book    *BookingService
	host    *models.Host
	tour    *models.Tour
	tourist *models.User
}

func newBookingFixture(t *testing.T, priceCents int64, maxGroup int) *bookingFixture {
	db := testutil.NewDB(t)
	gw := payment.NewStubGateway("whsec_test")
	_, host := testutil.CreateHost(t, db)
	tourist, _ := testutil.CreateTourist(t, db)
	return &bookingFixture{
		db:      db,
		gw:      gw,
		pay:     newPaymentService(db, gw),
		book:    newBookingService(db),
		host:    host,
		tour:    testutil.CreateTour(t, db, host.ID, priceCents, maxGroup),
		tourist: tourist,
	}
}

func (f *bookingFixture) pendingCheckout(t *testing.T, user *models.User, people int) (*models.Booking, *Checkout) {
	t.Helper()
	ctx := context.Background()
	b, err := f.book.Create(ctx, touristActor(user), CreateBookingInput{TourID: f.tour.ID, NumberOfPeople: people})
	require.NoError(t, err)
	co, err := f.pay.InitiateBookingPayment(ctx, touristActor(user), b.ID)
	require.NoError(t, err)
	return b, co
}

func TestPaidCheckoutConfirmsBooking(t *testing.T) {
	f := newBookingFixture(t, 5000, 2)
	b, co := f.pendingCheckout(t, f.tourist, 2)
	assert.Equal(t, int64(10000), co.AmountCents)

	body, sig := paidEvent(t, f.gw, co, "evt_paid")
	require.NoError(t, f.pay.HandleWebhook(context.Background(), body, sig))

	var booking models.Booking
	testutil.Reload(t, f.db, &booking, b.ID)
	assert.Equal(t, domain.BookingConfirmed, booking.Status)
	assert.Equal(t, domain.PaymentCompleted, booking.PaymentStatus)

	var tour models.Tour
	testutil.Reload(t, f.db, &tour, f.tour.ID)
	assert.Equal(t, 2, tour.CurrentGroupSize)
	assert.Equal(t, int64(10000), tour.TotalEarningsCents)

	var host models.Host
	testutil.Reload(t, f.db, &host, f.host.ID)
	assert.Equal(t, int64(8500), host.BalanceCents)
	assert.Equal(t, int64(8500), host.TotalEarningsCents)

	var p models.Payment
	testutil.Reload(t, f.db, &p, co.PaymentID)
	assert.Equal(t, domain.PaymentCompleted, p.Status)
	assert.Equal(t, "pi_evt_paid", p.TransactionID)
	assert.True(t, p.Credited)

	var entries []models.LedgerEntry
	require.NoError(t, f.db.Where("host_id = ?", f.host.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.LedgerEarning, entries[0].Type)
	assert.Equal(t, int64(8500), entries[0].AmountCents)

	var tourist models.Tourist
	require.NoError(t, f.db.Where("user_id = ?", f.tourist.ID).First(&tourist).Error)
	assert.Equal(t, int64(10000), tourist.TotalSpentCents)
}

func TestRedeliveredEventSettlesOnce(t *testing.T) {
	f := newBookingFixture(t, 5000, 4)
	_, co := f.pendingCheckout(t, f.tourist, 1)
	ctx := context.Background()

	body, sig := paidEvent(t, f.gw, co, "evt_once")
	require.NoError(t, f.pay.HandleWebhook(ctx, body, sig))
	require.NoError(t, f.pay.HandleWebhook(ctx, body, sig))

	// A second event id for the same session finds the payment already credited.
	body, sig = paidEvent(t, f.gw, co, "evt_twice")
	require.NoError(t, f.pay.HandleWebhook(ctx, body, sig))

	var host models.Host
	testutil.Reload(t, f.db, &host, f.host.ID)
	assert.Equal(t, int64(4250), host.BalanceCents)

	var tour models.Tour
	testutil.Reload(t, f.db, &tour, f.tour.ID)
	assert.Equal(t, 1, tour.CurrentGroupSize)

	var events int64
	require.NoError(t, f.db.Model(&models.WebhookEvent{}).Count(&events).Error)
	assert.Equal(t, int64(2), events)
}

func TestOverbookedSettlementIsRefunded(t *testing.T) {
	f := newBookingFixture(t, 5000, 2)
	other, _ := testutil.CreateTourist(t, f.db)
	ctx := context.Background()

	_, first := f.pendingCheckout(t, f.tourist, 2)
	late, second := f.pendingCheckout(t, other, 2)

	body, sig := paidEvent(t, f.gw, first, "evt_first")
	require.NoError(t, f.pay.HandleWebhook(ctx, body, sig))
	body, sig = paidEvent(t, f.gw, second, "evt_second")
	require.NoError(t, f.pay.HandleWebhook(ctx, body, sig))

	assert.Equal(t, []string{"pi_evt_second"}, f.gw.Refunds())

	var booking models.Booking
	testutil.Reload(t, f.db, &booking, late.ID)
	assert.Equal(t, domain.BookingCancelled, booking.Status)
	assert.Equal(t, domain.PaymentRefunded, booking.PaymentStatus)

	var p models.Payment
	testutil.Reload(t, f.db, &p, second.PaymentID)
	assert.Equal(t, domain.PaymentRefunded, p.Status)
	assert.Equal(t, "tour capacity exceeded", p.FailureReason)

	var tour models.Tour
	testutil.Reload(t, f.db, &tour, f.tour.ID)
	assert.Equal(t, 2, tour.CurrentGroupSize)

	var host models.Host
	testutil.Reload(t, f.db, &host, f.host.ID)
	assert.Equal(t, int64(8500), host.BalanceCents)
}

func TestPaymentForCancelledBookingIsRefunded(t *testing.T) {
	f := newBookingFixture(t, 3000, 4)
	ctx := context.Background()
	b, co := f.pendingCheckout(t, f.tourist, 1)

	require.NoError(t, f.db.Model(&models.Booking{}).Where("id = ?", b.ID).Update("status", domain.BookingCancelled).Error)
	body, sig := paidEvent(t, f.gw, co, "evt_late")
	require.NoError(t, f.pay.HandleWebhook(ctx, body, sig))

	assert.Equal(t, []string{"pi_evt_late"}, f.gw.Refunds())
	var p models.Payment
	testutil.Reload(t, f.db, &p, co.PaymentID)
	assert.Equal(t, domain.PaymentRefunded, p.Status)
}

func TestExpiredCheckoutFailsPayment(t *testing.T) {
	f := newBookingFixture(t, 5000, 4)
	b, co := f.pendingCheckout(t, f.tourist, 1)

	sess, err := f.gw.GetCheckoutSession(context.Background(), co.SessionID)
	require.NoError(t, err)
	sess.Status = payment.SessionExpired
	body, sig, err := f.gw.SignedEvent("evt_expired", payment.EventCheckoutExpired, sess)
	require.NoError(t, err)
	require.NoError(t, f.pay.HandleWebhook(context.Background(), body, sig))

	var p models.Payment
	testutil.Reload(t, f.db, &p, co.PaymentID)
	assert.Equal(t, domain.PaymentFailed, p.Status)

	var booking models.Booking
	testutil.Reload(t, f.db, &booking, b.ID)
	assert.Equal(t, domain.BookingPending, booking.Status)
}

func TestUnpaidCompletedCheckoutFails(t *testing.T) {
	f := newBookingFixture(t, 5000, 4)
	b, co := f.pendingCheckout(t, f.tourist, 1)

	sess, err := f.gw.GetCheckoutSession(context.Background(), co.SessionID)
	require.NoError(t, err)
	sess.Status = payment.SessionComplete
	body, sig, err := f.gw.SignedEvent("evt_unpaid", payment.EventCheckoutCompleted, sess)
	require.NoError(t, err)
	require.NoError(t, f.pay.HandleWebhook(context.Background(), body, sig))

	var booking models.Booking
	testutil.Reload(t, f.db, &booking, b.ID)
	assert.Equal(t, domain.BookingPending, booking.Status)
	assert.Equal(t, domain.PaymentFailed, booking.PaymentStatus)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newBookingFixture(t, 5000, 4)
	_, co := f.pendingCheckout(t, f.tourist, 1)
	body, _ := paidEvent(t, f.gw, co, "evt_forged")

	err := f.pay.HandleWebhook(context.Background(), body, "forged")
	require.Error(t, err)
	assert.Equal(t, 400, apperr.StatusOf(err))

	var p models.Payment
	testutil.Reload(t, f.db, &p, co.PaymentID)
	assert.Equal(t, domain.PaymentProcessing, p.Status)
}

func TestWebhookIgnoresAmbiguousMetadata(t *testing.T) {
	f := newBookingFixture(t, 5000, 4)
	_, co := f.pendingCheckout(t, f.tourist, 1)

	sess, err := f.gw.GetCheckoutSession(context.Background(), co.SessionID)
	require.NoError(t, err)
	sess.PaymentStatus = payment.PaymentStatusPaid
	sess.PaymentIntentID = "pi_x"
	sess.Metadata[payment.MetaSubscriptionID] = "1"
	body, sig, err := f.gw.SignedEvent("evt_mixed", payment.EventCheckoutCompleted, sess)
	require.NoError(t, err)
	require.NoError(t, f.pay.HandleWebhook(context.Background(), body, sig))

	var p models.Payment
	testutil.Reload(t, f.db, &p, co.PaymentID)
	assert.Equal(t, domain.PaymentProcessing, p.Status)
}

func TestInitiatePaymentReusesOpenSession(t *testing.T) {
	f := newBookingFixture(t, 5000, 4)
	b, co := f.pendingCheckout(t, f.tourist, 1)

	var open models.Payment
	testutil.Reload(t, f.db, &open, co.PaymentID)
	assert.Equal(t, domain.PaymentProcessing, open.Status)
	require.NotNil(t, open.SessionID)
	assert.Equal(t, co.SessionID, *open.SessionID)

	again, err := f.pay.InitiateBookingPayment(context.Background(), touristActor(f.tourist), b.ID)
	require.NoError(t, err)
	assert.True(t, again.Reused)
	assert.Equal(t, co.SessionID, again.SessionID)

	f.gw.SetSessionStatus(co.SessionID, payment.SessionExpired)
	fresh, err := f.pay.InitiateBookingPayment(context.Background(), touristActor(f.tourist), b.ID)
	require.NoError(t, err)
	assert.False(t, fresh.Reused)
	assert.NotEqual(t, co.SessionID, fresh.SessionID)

	var old models.Payment
	testutil.Reload(t, f.db, &old, co.PaymentID)
	assert.Equal(t, domain.PaymentFailed, old.Status)
}

func TestInitiatePaymentRejectsCOD(t *testing.T) {
	f := newBookingFixture(t, 5000, 4)
	b, err := f.book.Create(context.Background(), touristActor(f.tourist), CreateBookingInput{
		TourID: f.tour.ID, NumberOfPeople: 1, PaymentMethod: "COD",
	})
	require.NoError(t, err)

	_, err = f.pay.InitiateBookingPayment(context.Background(), touristActor(f.tourist), b.ID)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.StatusOf(err))
}

func TestCheckoutOpenedBeforeBookingChangeIsRefunded(t *testing.T) {
	f := newBookingFixture(t, 5000, 4)
	ctx := context.Background()
	b, stale := f.pendingCheckout(t, f.tourist, 1)

	three := 3
	_, err := f.book.Update(ctx, touristActor(f.tourist), b.ID, UpdateBookingInput{NumberOfPeople: &three})
	require.NoError(t, err)

	body, sig := paidEvent(t, f.gw, stale, "evt_stale")
	require.NoError(t, f.pay.HandleWebhook(ctx, body, sig))
	assert.Equal(t, []string{"pi_evt_stale"}, f.gw.Refunds())

	var booking models.Booking
	testutil.Reload(t, f.db, &booking, b.ID)
	assert.Equal(t, domain.BookingPending, booking.Status)
	assert.Equal(t, 3, booking.NumberOfPeople)
	assert.Equal(t, int64(15000), booking.TotalAmountCents)

	var p models.Payment
	testutil.Reload(t, f.db, &p, stale.PaymentID)
	assert.Equal(t, domain.PaymentRefunded, p.Status)
	assert.Equal(t, "checkout superseded by a booking change", p.FailureReason)
	assert.False(t, p.Credited)

	var tour models.Tour
	testutil.Reload(t, f.db, &tour, f.tour.ID)
	assert.Equal(t, 0, tour.CurrentGroupSize)
	var host models.Host
	testutil.Reload(t, f.db, &host, f.host.ID)
	assert.Equal(t, int64(0), host.BalanceCents)

	// The booking is still payable at its new amount.
	co, err := f.pay.InitiateBookingPayment(ctx, touristActor(f.tourist), b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), co.AmountCents)
	body, sig = paidEvent(t, f.gw, co, "evt_current")
	require.NoError(t, f.pay.HandleWebhook(ctx, body, sig))

	testutil.Reload(t, f.db, &booking, b.ID)
	assert.Equal(t, domain.BookingConfirmed, booking.Status)
	testutil.Reload(t, f.db, &tour, f.tour.ID)
	assert.Equal(t, 3, tour.CurrentGroupSize)
	testutil.Reload(t, f.db, &host, f.host.ID)
	assert.Equal(t, domain.HostShare(15000), host.BalanceCents)
}

func TestFailedRefundIsRetried(t *testing.T) {
	f := newBookingFixture(t, 5000, 2)
	other, _ := testutil.CreateTourist(t, f.db)
	ctx := context.Background()

	_, first := f.pendingCheckout(t, f.tourist, 2)
	late, second := f.pendingCheckout(t, other, 2)
	body, sig := paidEvent(t, f.gw, first, "evt_first")
	require.NoError(t, f.pay.HandleWebhook(ctx, body, sig))

	f.gw.FailRefunds = true
	body, sig = paidEvent(t, f.gw, second, "evt_second")
	require.NoError(t, f.pay.HandleWebhook(ctx, body, sig))
	assert.Empty(t, f.gw.Refunds())

	var p models.Payment
	testutil.Reload(t, f.db, &p, second.PaymentID)
	assert.Equal(t, domain.PaymentFailed, p.Status)
	assert.True(t, p.RefundPending)

	// Too recent to be retried yet.
	n, err := f.pay.RetryRefunds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, f.db.Model(&models.Payment{}).Where("id = ?", p.ID).
		UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)
	n, err = f.pay.RetryRefunds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.gw.FailRefunds = false
	require.NoError(t, f.db.Model(&models.Payment{}).Where("id = ?", p.ID).
		UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)
	n, err = f.pay.RetryRefunds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"pi_evt_second"}, f.gw.Refunds())

	testutil.Reload(t, f.db, &p, second.PaymentID)
	assert.Equal(t, domain.PaymentRefunded, p.Status)
	assert.False(t, p.RefundPending)

	var booking models.Booking
	testutil.Reload(t, f.db, &booking, late.ID)
	assert.Equal(t, domain.PaymentRefunded, booking.PaymentStatus)

	n, err = f.pay.RetryRefunds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestConcurrentSettlementsNeverOverfillTour(t *testing.T) {
	f := newBookingFixture(t, 5000, 4)
	ctx := context.Background()

	type paid struct {
		body []byte
		sig  string
	}
	var events []paid
	var bookings []uint
	for i := 0; i < 4; i++ {
		user, _ := testutil.CreateTourist(t, f.db)
		b, co := f.pendingCheckout(t, user, 2)
		body, sig := paidEvent(t, f.gw, co, fmt.Sprintf("evt_race_%d", i))
		events = append(events, paid{body, sig})
		bookings = append(bookings, b.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(events))
	for i, ev := range events {
		wg.Add(1)
		go func(i int, ev paid) {
			defer wg.Done()
			errs[i] = f.pay.HandleWebhook(ctx, ev.body, ev.sig)
		}(i, ev)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	var tour models.Tour
	testutil.Reload(t, f.db, &tour, f.tour.ID)
	assert.Equal(t, 4, tour.CurrentGroupSize)
	assert.LessOrEqual(t, tour.CurrentGroupSize, tour.MaxGroupSize)

	var confirmed, cancelled int
	for _, id := range bookings {
		var b models.Booking
		testutil.Reload(t, f.db, &b, id)
		switch b.Status {
		case domain.BookingConfirmed:
			confirmed++
		case domain.BookingCancelled:
			cancelled++
		}
	}
	assert.Equal(t, 2, confirmed)
	assert.Equal(t, 2, cancelled)
	assert.Len(t, f.gw.Refunds(), 2)

	var host models.Host
	testutil.Reload(t, f.db, &host, f.host.ID)
	assert.Equal(t, 2*domain.HostShare(10000), host.BalanceCents)
}

func TestHostBalanceIsShareOfEverySettlement(t *testing.T) {
	const n = 3
	f := newBookingFixture(t, 4000, 10)
	ctx := context.Background()

	for i := 0; i < n; i++ {
		user, _ := testutil.CreateTourist(t, f.db)
		_, co := f.pendingCheckout(t, user, 1)
		body, sig := paidEvent(t, f.gw, co, fmt.Sprintf("evt_share_%d", i))
		require.NoError(t, f.pay.HandleWebhook(ctx, body, sig))
	}

	var host models.Host
	testutil.Reload(t, f.db, &host, f.host.ID)
	assert.Equal(t, int64(n)*domain.HostShare(4000), host.BalanceCents)
	assert.Equal(t, int64(n*3400), host.BalanceCents)

	var tour models.Tour
	testutil.Reload(t, f.db, &tour, f.tour.ID)
	assert.Equal(t, int64(n*4000), tour.TotalEarningsCents)
	assert.Equal(t, n, tour.CurrentGroupSize)
}

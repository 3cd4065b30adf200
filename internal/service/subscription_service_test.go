package service

import (
	"context"
	"testing"
	"time"

	"tourhub/internal/apperr"
	"tourhub/internal/database"
	"tourhub/internal/domain"
	"tourhub/internal/models"
	"tourhub/internal/testutil"
	"tourhub/pkg/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func planNamed(t *testing.T, db *gorm.DB, name string) *models.SubscriptionPlan {
	t.Helper()
	var p models.SubscriptionPlan
	require.NoError(t, db.Where("name = ?", name).First(&p).Error)
	return &p
}

func newSubscriptionFixture(t *testing.T) (*gorm.DB, *payment.StubGateway, *SubscriptionService, *PaymentService) {
	db := testutil.NewDB(t)
	_, err := database.SeedPlans(db, "usd")
	require.NoError(t, err)
	gw := payment.NewStubGateway("whsec_test")
	pay := newPaymentService(db, gw)
	return db, gw, NewSubscriptionService(db, "usd", pay, nil), pay
}

func TestFreeHostHitsTourLimit(t *testing.T) {
	db := testutil.NewDB(t)
	user, host := testutil.CreateHost(t, db)
	limits := NewLimitService(db)

	require.NoError(t, limits.CheckTour(user.ID))
	require.NoError(t, db.Model(&models.Host{}).Where("id = ?", host.ID).Update("current_tour_count", domain.FreeTourLimit).Error)

	err := limits.CheckTour(user.ID)
	require.Error(t, err)
	assert.Equal(t, 403, apperr.StatusOf(err))
	assert.EqualError(t, err, "You have reached your tour limit (4/4). Please upgrade your subscription to create more tours.")
}

func TestFreeHostHitsBlogLimit(t *testing.T) {
	db := testutil.NewDB(t)
	user, host := testutil.CreateHost(t, db)
	require.NoError(t, db.Model(&models.Host{}).Where("id = ?", host.ID).Update("current_blog_count", domain.FreeBlogLimit).Error)

	err := NewLimitService(db).CheckBlog(user.ID)
	assert.Equal(t, 403, apperr.StatusOf(err))
}

func TestSubscribeToFreePlanActivates(t *testing.T) {
	db, _, subs, _ := newSubscriptionFixture(t)
	user, host := testutil.CreateHost(t, db)

	out, err := subs.Subscribe(context.Background(), hostActor(user), planNamed(t, db, "Free").ID)
	require.NoError(t, err)
	assert.Nil(t, out.Checkout)
	assert.Equal(t, domain.SubscriptionActive, out.Subscription.Status)
	require.NotNil(t, out.Subscription.EndDate)

	var h models.Host
	testutil.Reload(t, db, &h, host.ID)
	require.NotNil(t, h.SubscriptionID)
	assert.Equal(t, out.Subscription.ID, *h.SubscriptionID)

	_, err = subs.Subscribe(context.Background(), hostActor(user), planNamed(t, db, "Free").ID)
	assert.EqualError(t, err, "You are already on the free plan")
}

func TestPaidSubscriptionActivatesOnSettlement(t *testing.T) {
	db, gw, subs, pay := newSubscriptionFixture(t)
	user, host := testutil.CreateHost(t, db)
	ctx := context.Background()
	require.NoError(t, db.Model(&models.Host{}).Where("id = ?", host.ID).Update("current_tour_count", domain.FreeTourLimit).Error)

	out, err := subs.Subscribe(ctx, hostActor(user), planNamed(t, db, "Standard").ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionPending, out.Subscription.Status)
	require.NotNil(t, out.Checkout)
	assert.Equal(t, int64(999), out.Checkout.AmountCents)

	body, sig := paidEvent(t, gw, out.Checkout, "evt_sub")
	require.NoError(t, pay.HandleWebhook(ctx, body, sig))

	var sub models.Subscription
	testutil.Reload(t, db, &sub, out.Subscription.ID)
	assert.Equal(t, domain.SubscriptionActive, sub.Status)
	assert.Equal(t, 12, sub.RemainingTours)

	var h models.Host
	testutil.Reload(t, db, &h, host.ID)
	assert.Equal(t, 12, h.TourLimit)
	assert.Equal(t, 0, h.CurrentTourCount)
	require.NoError(t, NewLimitService(db).CheckTour(user.ID))

	_, err = subs.Subscribe(ctx, hostActor(user), planNamed(t, db, "Premium").ID)
	assert.EqualError(t, err, "You already have an active subscription. Please cancel it first.")
}

func TestResubscribeReplacesPending(t *testing.T) {
	db, _, subs, _ := newSubscriptionFixture(t)
	user, _ := testutil.CreateHost(t, db)
	ctx := context.Background()

	first, err := subs.Subscribe(ctx, hostActor(user), planNamed(t, db, "Standard").ID)
	require.NoError(t, err)
	second, err := subs.Subscribe(ctx, hostActor(user), planNamed(t, db, "Premium").ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Subscription.ID, second.Subscription.ID)

	var old models.Subscription
	testutil.Reload(t, db, &old, first.Subscription.ID)
	assert.Equal(t, domain.SubscriptionCancelled, old.Status)

	var p models.Payment
	testutil.Reload(t, db, &p, first.Checkout.PaymentID)
	assert.Equal(t, domain.PaymentCancelled, p.Status)
}

func TestExpiredCheckoutCancelsPendingSubscription(t *testing.T) {
	db, gw, subs, pay := newSubscriptionFixture(t)
	user, _ := testutil.CreateHost(t, db)
	ctx := context.Background()

	out, err := subs.Subscribe(ctx, hostActor(user), planNamed(t, db, "Standard").ID)
	require.NoError(t, err)

	sess, err := gw.GetCheckoutSession(ctx, out.Checkout.SessionID)
	require.NoError(t, err)
	body, sig, err := gw.SignedEvent("evt_sub_expired", payment.EventCheckoutExpired, sess)
	require.NoError(t, err)
	require.NoError(t, pay.HandleWebhook(ctx, body, sig))

	var sub models.Subscription
	testutil.Reload(t, db, &sub, out.Subscription.ID)
	assert.Equal(t, domain.SubscriptionCancelled, sub.Status)
}

func TestLapsedSubscriptionFallsBackToFreeLimits(t *testing.T) {
	db, _, subs, _ := newSubscriptionFixture(t)
	user, host := testutil.CreateHost(t, db)

	out, err := subs.Subscribe(context.Background(), hostActor(user), planNamed(t, db, "Free").ID)
	require.NoError(t, err)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.Subscription{}).Where("id = ?", out.Subscription.ID).Update("end_date", past).Error)

	require.NoError(t, NewLimitService(db).CheckTour(user.ID))

	var sub models.Subscription
	testutil.Reload(t, db, &sub, out.Subscription.ID)
	assert.Equal(t, domain.SubscriptionExpired, sub.Status)

	var h models.Host
	testutil.Reload(t, db, &h, host.ID)
	assert.Nil(t, h.SubscriptionID)
	assert.Equal(t, domain.FreeTourLimit, h.TourLimit)
}

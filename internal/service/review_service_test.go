package service

import (
	"context"
	"testing"

	"tourhub/internal/apperr"
	"tourhub/internal/domain"
	"tourhub/internal/models"
	"tourhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func completedBooking(t *testing.T, db *gorm.DB, tour *models.Tour, status string) (*models.User, *models.Booking) {
	t.Helper()
	u, tourist := testutil.CreateTourist(t, db)
	b := &models.Booking{
		TourID:           tour.ID,
		UserID:           u.ID,
		TouristID:        tourist.ID,
		NumberOfPeople:   1,
		TotalAmountCents: tour.PriceCents,
		Status:           status,
		PaymentStatus:    domain.PaymentCompleted,
		PaymentMethod:    domain.PaymentMethodOnline,
	}
	require.NoError(t, db.Create(b).Error)
	return u, b
}

func TestReviewRequiresCompletedBooking(t *testing.T) {
	db := testutil.NewDB(t)
	_, host := testutil.CreateHost(t, db)
	tour := testutil.CreateTour(t, db, host.ID, 4000, 5)
	user, b := completedBooking(t, db, tour, domain.BookingConfirmed)

	_, err := NewReviewService(db, nil).Create(context.Background(), touristActor(user), CreateReviewInput{BookingID: b.ID, Rating: 4})
	assert.EqualError(t, err, "You can only review completed tours")
}

func TestReviewOncePerBooking(t *testing.T) {
	db := testutil.NewDB(t)
	_, host := testutil.CreateHost(t, db)
	tour := testutil.CreateTour(t, db, host.ID, 4000, 5)
	user, b := completedBooking(t, db, tour, domain.BookingCompleted)
	svc := NewReviewService(db, nil)
	ctx := context.Background()

	rv, err := svc.Create(ctx, touristActor(user), CreateReviewInput{BookingID: b.ID, Rating: 5, Comment: "Great guide"})
	require.NoError(t, err)
	assert.True(t, rv.IsApproved)

	var booking models.Booking
	testutil.Reload(t, db, &booking, b.ID)
	assert.True(t, booking.IsReviewed)

	_, err = svc.Create(ctx, touristActor(user), CreateReviewInput{BookingID: b.ID, Rating: 3})
	require.Error(t, err)
	assert.Equal(t, 400, apperr.StatusOf(err))
	assert.EqualError(t, err, "You have already reviewed this booking")
}

func TestReviewRejectsOtherUsersBooking(t *testing.T) {
	db := testutil.NewDB(t)
	_, host := testutil.CreateHost(t, db)
	tour := testutil.CreateTour(t, db, host.ID, 4000, 5)
	_, b := completedBooking(t, db, tour, domain.BookingCompleted)
	stranger, _ := testutil.CreateTourist(t, db)

	_, err := NewReviewService(db, nil).Create(context.Background(), touristActor(stranger), CreateReviewInput{BookingID: b.ID, Rating: 2})
	assert.Equal(t, 403, apperr.StatusOf(err))

	_, err = NewReviewService(db, nil).Create(context.Background(), touristActor(stranger), CreateReviewInput{BookingID: b.ID, Rating: 9})
	assert.EqualError(t, err, "Rating must be between 1 and 5")
}

func TestRatingAggregatesFollowApproval(t *testing.T) {
	db := testutil.NewDB(t)
	_, host := testutil.CreateHost(t, db)
	admin := testutil.CreateAdmin(t, db)
	tour := testutil.CreateTour(t, db, host.ID, 4000, 5)
	first, b1 := completedBooking(t, db, tour, domain.BookingCompleted)
	second, b2 := completedBooking(t, db, tour, domain.BookingCompleted)
	svc := NewReviewService(db, nil)
	ctx := context.Background()
	adminActor := Actor{UserID: admin.ID, Role: domain.RoleAdmin}

	_, err := svc.Create(ctx, touristActor(first), CreateReviewInput{BookingID: b1.ID, Rating: 5})
	require.NoError(t, err)
	low, err := svc.Create(ctx, touristActor(second), CreateReviewInput{BookingID: b2.ID, Rating: 3})
	require.NoError(t, err)

	assertRating := func(avg float64, count int) {
		t.Helper()
		var tr models.Tour
		testutil.Reload(t, db, &tr, tour.ID)
		assert.InDelta(t, avg, tr.AverageRating, 0.001)
		assert.Equal(t, count, tr.TotalReviews)
		var h models.Host
		testutil.Reload(t, db, &h, host.ID)
		assert.InDelta(t, avg, h.AverageRating, 0.001)
		assert.Equal(t, count, h.TotalReviews)
	}
	assertRating(4.0, 2)

	off := false
	_, err = svc.Update(ctx, adminActor, low.ID, UpdateReviewInput{IsApproved: &off})
	require.NoError(t, err)
	assertRating(5.0, 1)

	on := true
	_, err = svc.Update(ctx, adminActor, low.ID, UpdateReviewInput{IsApproved: &on})
	require.NoError(t, err)
	assertRating(4.0, 2)

	_, err = svc.Update(ctx, touristActor(second), low.ID, UpdateReviewInput{IsApproved: &off})
	assert.Equal(t, 403, apperr.StatusOf(err))

	require.NoError(t, svc.Delete(ctx, touristActor(second), low.ID))
	assertRating(5.0, 1)
	var booking models.Booking
	testutil.Reload(t, db, &booking, b2.ID)
	assert.False(t, booking.IsReviewed)
}

package service

import (
	"context"
	"testing"

	"tourhub/internal/apperr"
	"tourhub/internal/cache"
	"tourhub/internal/domain"
	"tourhub/internal/models"
	"tourhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func touristActor(u *models.User) Actor { return Actor{UserID: u.ID, Role: domain.RoleTourist} }
func hostActor(u *models.User) Actor    { return Actor{UserID: u.ID, Role: domain.RoleHost} }

func newBookingService(db *gorm.DB) *BookingService {
	return NewBookingService(db, "usd", cache.NewMemoryLocker(), nil)
}

func TestCreateOnlineBookingStaysPending(t *testing.T) {
	db := testutil.NewDB(t)
	_, host := testutil.CreateHost(t, db)
	tourist, _ := testutil.CreateTourist(t, db)
	tour := testutil.CreateTour(t, db, host.ID, 5000, 4)
	svc := newBookingService(db)

	total := int64(10000)
	b, err := svc.Create(context.Background(), touristActor(tourist), CreateBookingInput{
		TourID: tour.ID, NumberOfPeople: 2, TotalAmountCents: &total, PaymentMethod: "ONLINE",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, domain.PaymentPending, b.PaymentStatus)
	assert.Equal(t, int64(10000), b.TotalAmountCents)

	var fresh models.Tour
	testutil.Reload(t, db, &fresh, tour.ID)
	assert.Equal(t, 0, fresh.CurrentGroupSize)
}

func TestCreateBookingRejectsWrongTotal(t *testing.T) {
	db := testutil.NewDB(t)
	_, host := testutil.CreateHost(t, db)
	tourist, _ := testutil.CreateTourist(t, db)
	tour := testutil.CreateTour(t, db, host.ID, 5000, 4)

	total := int64(9000)
	_, err := newBookingService(db).Create(context.Background(), touristActor(tourist), CreateBookingInput{
		TourID: tour.ID, NumberOfPeople: 2, TotalAmountCents: &total,
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperr.StatusOf(err))
	assert.Contains(t, err.Error(), "Total amount must be $100.00 for 2 people")
}

func TestCreateBookingValidation(t *testing.T) {
	db := testutil.NewDB(t)
	_, host := testutil.CreateHost(t, db)
	tourist, _ := testutil.CreateTourist(t, db)
	tour := testutil.CreateTour(t, db, host.ID, 5000, 4)
	svc := newBookingService(db)
	ctx := context.Background()

	_, err := svc.Create(ctx, touristActor(tourist), CreateBookingInput{TourID: tour.ID, NumberOfPeople: 0})
	assert.EqualError(t, err, "Number of people must be at least 1")

	_, err = svc.Create(ctx, touristActor(tourist), CreateBookingInput{TourID: tour.ID, NumberOfPeople: 1, PaymentMethod: "CRYPTO"})
	assert.Equal(t, 400, apperr.StatusOf(err))

	require.NoError(t, db.Model(&models.Tour{}).Where("id = ?", tour.ID).Update("is_active", false).Error)
	_, err = svc.Create(ctx, touristActor(tourist), CreateBookingInput{TourID: tour.ID, NumberOfPeople: 1})
	assert.EqualError(t, err, "This tour is not available for booking")

	_, err = svc.Create(ctx, touristActor(tourist), CreateBookingInput{TourID: 9999, NumberOfPeople: 1})
	assert.Equal(t, 404, apperr.StatusOf(err))
}

func TestCreateBookingRejectsDuplicate(t *testing.T) {
	db := testutil.NewDB(t)
	_, host := testutil.CreateHost(t, db)
	tourist, _ := testutil.CreateTourist(t, db)
	tour := testutil.CreateTour(t, db, host.ID, 5000, 4)
	svc := newBookingService(db)

	_, err := svc.Create(context.Background(), touristActor(tourist), CreateBookingInput{TourID: tour.ID, NumberOfPeople: 1})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), touristActor(tourist), CreateBookingInput{TourID: tour.ID, NumberOfPeople: 1})
	assert.EqualError(t, err, "You already have a booking for this tour")
}

func TestCreateBookingChecksConfirmedCapacity(t *testing.T) {
	db := testutil.NewDB(t)
	_, host := testutil.CreateHost(t, db)
	first, _ := testutil.CreateTourist(t, db)
	second, _ := testutil.CreateTourist(t, db)
	third, _ := testutil.CreateTourist(t, db)
	tour := testutil.CreateTour(t, db, host.ID, 5000, 3)
	svc := newBookingService(db)
	ctx := context.Background()

	_, err := svc.Create(ctx, touristActor(first), CreateBookingInput{TourID: tour.ID, NumberOfPeople: 2, PaymentMethod: "COD"})
	require.NoError(t, err)

	// Pending online bookings hold no seats.
	_, err = svc.Create(ctx, touristActor(second), CreateBookingInput{TourID: tour.ID, NumberOfPeople: 1})
	require.NoError(t, err)

	_, err = svc.Create(ctx, touristActor(third), CreateBookingInput{TourID: tour.ID, NumberOfPeople: 2})
	assert.EqualError(t, err, "Only 1 spots available for this tour")
}

func TestCODBookingConfirmsAndClaimsSeats(t *testing.T) {
	db := testutil.NewDB(t)
	_, host := testutil.CreateHost(t, db)
	tourist, _ := testutil.CreateTourist(t, db)
	tour := testutil.CreateTour(t, db, host.ID, 2500, 5)

	b, err := newBookingService(db).Create(context.Background(), touristActor(tourist), CreateBookingInput{
		TourID: tour.ID, NumberOfPeople: 3, PaymentMethod: "cod",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	assert.Equal(t, domain.PaymentMethodCOD, b.PaymentMethod)

	var fresh models.Tour
	testutil.Reload(t, db, &fresh, tour.ID)
	assert.Equal(t, 3, fresh.CurrentGroupSize)

	var p models.Payment
	require.NoError(t, db.Where("booking_id = ?", b.ID).First(&p).Error)
	assert.Equal(t, "cod", p.Provider)
	assert.Equal(t, domain.PaymentPending, p.Status)
	assert.Equal(t, int64(7500), p.AmountCents)
}

func TestCancelConfirmedBookingReleasesSeats(t *testing.T) {
	db := testutil.NewDB(t)
	_, host := testutil.CreateHost(t, db)
	tourist, _ := testutil.CreateTourist(t, db)
	tour := testutil.CreateTour(t, db, host.ID, 2500, 5)
	svc := newBookingService(db)
	ctx := context.Background()

	b, err := svc.Create(ctx, touristActor(tourist), CreateBookingInput{TourID: tour.ID, NumberOfPeople: 2, PaymentMethod: "COD"})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, touristActor(tourist), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	var fresh models.Tour
	testutil.Reload(t, db, &fresh, tour.ID)
	assert.Equal(t, 0, fresh.CurrentGroupSize)

	_, err = svc.Cancel(ctx, touristActor(tourist), b.ID)
	assert.EqualError(t, err, "Booking is already cancelled")
}

func TestCancelNeverDropsCapacityBelowZero(t *testing.T) {
	db := testutil.NewDB(t)
	_, host := testutil.CreateHost(t, db)
	tourist, _ := testutil.CreateTourist(t, db)
	tour := testutil.CreateTour(t, db, host.ID, 2500, 5)
	svc := newBookingService(db)
	ctx := context.Background()

	b, err := svc.Create(ctx, touristActor(tourist), CreateBookingInput{TourID: tour.ID, NumberOfPeople: 2, PaymentMethod: "COD"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Tour{}).Where("id = ?", tour.ID).Update("current_group_size", 1).Error)

	_, err = svc.Cancel(ctx, touristActor(tourist), b.ID)
	require.NoError(t, err)

	var fresh models.Tour
	testutil.Reload(t, db, &fresh, tour.ID)
	assert.Equal(t, 0, fresh.CurrentGroupSize)
}

func TestCancelOtherUsersBookingForbidden(t *testing.T) {
	db := testutil.NewDB(t)
	_, host := testutil.CreateHost(t, db)
	owner, _ := testutil.CreateTourist(t, db)
	other, _ := testutil.CreateTourist(t, db)
	tour := testutil.CreateTour(t, db, host.ID, 2500, 5)
	svc := newBookingService(db)

	b, err := svc.Create(context.Background(), touristActor(owner), CreateBookingInput{TourID: tour.ID, NumberOfPeople: 1})
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), touristActor(other), b.ID)
	assert.Equal(t, 403, apperr.StatusOf(err))
}

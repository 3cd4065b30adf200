package service

import (
	"context"
	"testing"
	"time"

	"tourhub/internal/apperr"
	"tourhub/internal/domain"
	"tourhub/internal/models"
	"tourhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type finishedTourFixture struct {
	db        *gorm.DB
	tours     *TourService
	book      *BookingService
	hostUser  *models.User
	tour      *models.Tour
	confirmed *models.Booking
	pending   *models.Booking
}

// newFinishedTourFixture books one COD (confirmed) and one online (pending) booking,
// then moves the tour into the past.
func newFinishedTourFixture(t *testing.T) *finishedTourFixture {
	db := testutil.NewDB(t)
	hostUser, host := testutil.CreateHost(t, db)
	tour := testutil.CreateTour(t, db, host.ID, 5000, 6)
	book := newBookingService(db)
	ctx := context.Background()

	first, _ := testutil.CreateTourist(t, db)
	confirmed, err := book.Create(ctx, touristActor(first), CreateBookingInput{TourID: tour.ID, NumberOfPeople: 2, PaymentMethod: "COD"})
	require.NoError(t, err)
	second, _ := testutil.CreateTourist(t, db)
	pending, err := book.Create(ctx, touristActor(second), CreateBookingInput{TourID: tour.ID, NumberOfPeople: 1})
	require.NoError(t, err)

	return &finishedTourFixture{
		db: db, tours: NewTourService(db, nil), book: book,
		hostUser: hostUser, tour: tour, confirmed: confirmed, pending: pending,
	}
}

func (f *finishedTourFixture) endTour(t *testing.T) {
	t.Helper()
	end := time.Now().Add(-time.Hour)
	require.NoError(t, f.db.Model(&models.Tour{}).Where("id = ?", f.tour.ID).Updates(map[string]interface{}{
		"start_date": end.Add(-48 * time.Hour), "end_date": end,
	}).Error)
}

func TestCompleteTourBeforeEndIsRefused(t *testing.T) {
	f := newFinishedTourFixture(t)

	_, err := f.tours.Complete(context.Background(), hostActor(f.hostUser), f.tour.ID)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.StatusOf(err))
	assert.EqualError(t, err, "Tour cannot be completed before its end date")

	var b models.Booking
	testutil.Reload(t, f.db, &b, f.confirmed.ID)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
}

func TestCompleteTourCompletesConfirmedBookingsOnly(t *testing.T) {
	f := newFinishedTourFixture(t)
	f.endTour(t)

	n, err := f.tours.Complete(context.Background(), hostActor(f.hostUser), f.tour.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var b models.Booking
	testutil.Reload(t, f.db, &b, f.confirmed.ID)
	assert.Equal(t, domain.BookingCompleted, b.Status)
	assert.NotNil(t, b.CompletedAt)

	testutil.Reload(t, f.db, &b, f.pending.ID)
	assert.Equal(t, domain.BookingPending, b.Status)

	var tour models.Tour
	testutil.Reload(t, f.db, &tour, f.tour.ID)
	assert.False(t, tour.IsActive)
}

func TestCompleteTourIsLimitedToOwnerAndAdmin(t *testing.T) {
	f := newFinishedTourFixture(t)
	f.endTour(t)
	ctx := context.Background()

	otherHost, _ := testutil.CreateHost(t, f.db)
	_, err := f.tours.Complete(ctx, hostActor(otherHost), f.tour.ID)
	assert.Equal(t, 403, apperr.StatusOf(err))

	admin := testutil.CreateAdmin(t, f.db)
	n, err := f.tours.Complete(ctx, Actor{UserID: admin.ID, Role: domain.RoleAdmin}, f.tour.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBookingStatusUpdateRules(t *testing.T) {
	f := newFinishedTourFixture(t)
	ctx := context.Background()
	host := hostActor(f.hostUser)

	_, err := f.book.UpdateStatus(ctx, host, f.pending.ID, domain.BookingConfirmed)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.StatusOf(err))
	assert.EqualError(t, err, "Status can only be set to COMPLETED or CANCELLED")

	var tourist models.User
	testutil.Reload(t, f.db, &tourist, f.pending.UserID)
	_, err = f.book.UpdateStatus(ctx, touristActor(&tourist), f.pending.ID, domain.BookingCancelled)
	assert.Equal(t, 403, apperr.StatusOf(err))

	_, err = f.book.UpdateStatus(ctx, host, f.confirmed.ID, domain.BookingCompleted)
	assert.EqualError(t, err, "Cannot complete booking before tour ends")

	f.endTour(t)
	_, err = f.book.UpdateStatus(ctx, host, f.pending.ID, "completed")
	assert.EqualError(t, err, "Cannot complete a pending booking")

	b, err := f.book.UpdateStatus(ctx, host, f.confirmed.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCompleted, b.Status)
}

package service

import (
	"testing"

	"tourhub/internal/apperr"
	"tourhub/internal/repository"
	"tourhub/internal/testutil"
	"tourhub/pkg/mailer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPusher struct {
	sent map[uint]int
}

func (p *recordingPusher) SendToUser(userID uint, payload interface{}) {
	p.sent[userID]++
}

func TestNotificationsArePersistedPushedAndMailed(t *testing.T) {
	db := testutil.NewDB(t)
	user, _ := testutil.CreateTourist(t, db)
	mail := &mailer.Recorder{}
	live := &recordingPusher{sent: map[uint]int{}}
	svc := NewNotificationService(repository.NewNotificationRepository(db), repository.NewUserRepository(db), nil, live).WithMailer(mail)

	svc.BookingConfirmed(user.ID, 7, "Mountain Trek")
	svc.BookingCancelled(user.ID, 7, "Mountain Trek")

	list, unread, err := svc.List(user.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, int64(2), unread)
	assert.Equal(t, 2, live.sent[user.ID])

	sent := mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, user.Email, sent[0].To)
	assert.Equal(t, "Booking confirmed", sent[0].Subject)

	require.NoError(t, svc.MarkRead(user.ID, list[0].ID))
	_, unread, err = svc.List(user.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	other, _ := testutil.CreateTourist(t, db)
	err = svc.MarkRead(other.ID, list[1].ID)
	assert.Equal(t, 404, apperr.StatusOf(err))
}

func TestNilNotifierIsSafe(t *testing.T) {
	var svc *NotificationService
	assert.NotPanics(t, func() {
		svc.BookingConfirmed(1, 1, "x")
		svc.PayoutFailed(1, 1, 5000)
	})
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"time"

	"tourhub/internal/apperr"
	"tourhub/internal/logger"
	"tourhub/internal/models"
	"tourhub/internal/repository"
	"tourhub/pkg/mailer"

	"github.com/sirupsen/logrus"
)

// Notification types.
const (
	NotifBookingCreated        = "BOOKING_CREATED"
	NotifBookingConfirmed      = "BOOKING_CONFIRMED"
	NotifBookingCancelled      = "BOOKING_CANCELLED"
	NotifBookingRefunded       = "BOOKING_REFUNDED"
	NotifNewBooking            = "NEW_BOOKING"
	NotifPayoutCompleted       = "PAYOUT_COMPLETED"
	NotifPayoutFailed          = "PAYOUT_FAILED"
	NotifSubscriptionActivated = "SUBSCRIPTION_ACTIVATED"
	NotifReviewReceived        = "REVIEW_RECEIVED"
)

// Pusher delivers a notification over a live connection.
type Pusher interface {
	SendToUser(userID uint, payload interface{})
}

type NotificationService struct {
	repo     *repository.NotificationRepository
	userRepo *repository.UserRepository
	fcm      *FCMService
	live     Pusher
	mail     mailer.Mailer
}

func NewNotificationService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, fcm *FCMService, live Pusher) *NotificationService {
	return &NotificationService{repo: repo, userRepo: userRepo, fcm: fcm, live: live}
}

// WithMailer makes the transactional notifications (confirmations, refunds, payouts) also go out by email.
func (s *NotificationService) WithMailer(m mailer.Mailer) *NotificationService {
	s.mail = m
	return s
}

// Notify persists a notification and pushes it. Delivery failures are logged, not returned.
func (s *NotificationService) Notify(userID uint, notifType, title, body string, data map[string]interface{}) {
	if s == nil {
		return
	}
	log := logger.For("notification").WithFields(logrus.Fields{"user_id": userID, "type": notifType})
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	n := &models.Notification{UserID: userID, Type: notifType, Title: title, Body: body, Data: dataJSON}
	if err := s.repo.Create(n); err != nil {
		log.WithError(err).Error("persist notification")
		return
	}
	if s.live != nil {
		s.live.SendToUser(userID, n)
	}
	s.sendPush(userID, notifType, title, body, data)
}

func (s *NotificationService) sendPush(userID uint, notifType, title, body string, data map[string]interface{}) {
	if s.fcm == nil || s.userRepo == nil {
		return
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil || u.FCMToken == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.fcm.SendToUser(ctx, u.FCMToken, notifType, title, body, data); err != nil {
		logger.For("notification").WithError(err).WithField("user_id", userID).Warn("push failed")
	}
}

// notifyAndMail is Notify plus an email carrying the same title and body.
func (s *NotificationService) notifyAndMail(userID uint, notifType, title, body string, data map[string]interface{}) {
	s.Notify(userID, notifType, title, body, data)
	s.email(userID, title, body)
}

func (s *NotificationService) email(userID uint, subject, body string) {
	if s == nil || s.mail == nil || s.userRepo == nil {
		return
	}
	log := logger.For("notification").WithField("user_id", userID)
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		log.WithError(err).Warn("email recipient not found")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = s.mail.Send(ctx, mailer.Message{
		To:      u.Email,
		Subject: subject,
		HTML:    "<p>" + html.EscapeString(body) + "</p>",
	})
	switch {
	case errors.Is(err, mailer.ErrNotConfigured):
		log.Debug("smtp not configured, email skipped")
	case err != nil:
		log.WithError(err).Warn("send email")
	}
}

func (s *NotificationService) List(userID uint, limit, offset int) ([]models.Notification, int64, error) {
	list, err := s.repo.ListByUserID(userID, limit, offset)
	if err != nil {
		return nil, 0, dbErr(err)
	}
	unread, err := s.repo.CountUnread(userID)
	return list, unread, dbErr(err)
}

func (s *NotificationService) MarkRead(userID, id uint) error {
	ok, err := s.repo.MarkRead(id, userID)
	if err != nil {
		return dbErr(err)
	}
	if !ok {
		return apperr.NotFound("Notification not found")
	}
	return nil
}

func money(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

// wholeMoney is money without the cents when there are none: $50, $50.50.
func wholeMoney(cents int64) string {
	if cents%100 == 0 {
		return fmt.Sprintf("$%d", cents/100)
	}
	return money(cents)
}

func (s *NotificationService) BookingConfirmed(touristUserID uint, bookingID uint, tourTitle string) {
	s.notifyAndMail(touristUserID, NotifBookingConfirmed, "Booking confirmed",
		"Your booking for "+tourTitle+" is confirmed.", map[string]interface{}{"booking_id": bookingID})
}

func (s *NotificationService) NewPaidBooking(hostUserID uint, bookingID uint, tourTitle string, people int) {
	s.Notify(hostUserID, NotifNewBooking, "New booking",
		fmt.Sprintf("%d guest(s) booked %s.", people, tourTitle), map[string]interface{}{"booking_id": bookingID})
}

func (s *NotificationService) BookingRefunded(touristUserID uint, bookingID uint, tourTitle string) {
	s.notifyAndMail(touristUserID, NotifBookingRefunded, "Booking refunded",
		tourTitle+" filled up before your payment settled. Your payment has been refunded.", map[string]interface{}{"booking_id": bookingID})
}

func (s *NotificationService) BookingCancelled(userID uint, bookingID uint, tourTitle string) {
	s.Notify(userID, NotifBookingCancelled, "Booking cancelled",
		"The booking for "+tourTitle+" was cancelled.", map[string]interface{}{"booking_id": bookingID})
}

func (s *NotificationService) PayoutCompleted(hostUserID uint, payoutID uint, amountCents int64) {
	s.notifyAndMail(hostUserID, NotifPayoutCompleted, "Payout sent",
		"Your payout of "+money(amountCents)+" is on its way.", map[string]interface{}{"payout_id": payoutID})
}

func (s *NotificationService) PayoutFailed(hostUserID uint, payoutID uint, amountCents int64) {
	s.notifyAndMail(hostUserID, NotifPayoutFailed, "Payout failed",
		"Your payout of "+money(amountCents)+" failed and the amount was returned to your balance.", map[string]interface{}{"payout_id": payoutID})
}

func (s *NotificationService) SubscriptionActivated(hostUserID uint, subscriptionID uint, planName string) {
	s.Notify(hostUserID, NotifSubscriptionActivated, "Subscription active",
		"Your "+planName+" plan is now active.", map[string]interface{}{"subscription_id": subscriptionID})
}

func (s *NotificationService) ReviewReceived(hostUserID uint, reviewID uint, rating int) {
	s.Notify(hostUserID, NotifReviewReceived, "New review",
		fmt.Sprintf("You received a %d-star review.", rating), map[string]interface{}{"review_id": reviewID})
}

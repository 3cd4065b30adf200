package repository

import (
	"time"

	"tourhub/internal/domain"
	"tourhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDForUpdate locks the payment row for the current transaction.
func (r *PaymentRepository) GetByIDForUpdate(id uint) (*models.Payment, error) {
	var p models.Payment
	err := forUpdate(r.db).First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetBySessionID(sessionID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("session_id = ?", sessionID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) Update(p *models.Payment) error {
	return r.db.Save(p).Error
}

func (r *PaymentRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Payment{}).Where("id = ?", id).Updates(fields).Error
}

// LatestLiveForBooking returns the newest PENDING or PROCESSING payment of a booking.
func (r *PaymentRepository) LatestLiveForBooking(bookingID uint) (*models.Payment, error) {
	return r.latestLive("booking_id = ?", bookingID)
}

// LatestLiveForSubscription returns the newest PENDING or PROCESSING payment of a subscription.
func (r *PaymentRepository) LatestLiveForSubscription(subscriptionID uint) (*models.Payment, error) {
	return r.latestLive("subscription_id = ?", subscriptionID)
}

func (r *PaymentRepository) latestLive(cond string, id uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where(cond, id).
		Where("status IN ?", []string{domain.PaymentPending, domain.PaymentProcessing}).
		Order("created_at DESC").Order("id DESC").First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LatestForBooking returns the newest payment of a booking regardless of status.
func (r *PaymentRepository) LatestForBooking(bookingID uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("booking_id = ?", bookingID).Order("created_at DESC").Order("id DESC").First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CancelLiveForBooking cancels every in-flight payment of a booking.
func (r *PaymentRepository) CancelLiveForBooking(bookingID uint) error {
	return r.db.Model(&models.Payment{}).
		Where("booking_id = ? AND status IN ?", bookingID, []string{domain.PaymentPending, domain.PaymentProcessing}).
		Update("status", domain.PaymentCancelled).Error
}

// CancelLiveForSubscription cancels every in-flight payment of a subscription.
func (r *PaymentRepository) CancelLiveForSubscription(subscriptionID uint) error {
	return r.db.Model(&models.Payment{}).
		Where("subscription_id = ? AND status IN ?", subscriptionID, []string{domain.PaymentPending, domain.PaymentProcessing}).
		Update("status", domain.PaymentCancelled).Error
}

// ListRefundPending returns charges still owed a refund, untouched since before.
func (r *PaymentRepository) ListRefundPending(before time.Time, limit int) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.Where("refund_pending = ? AND transaction_id <> '' AND updated_at < ?", true, before).
		Order("updated_at ASC").Limit(limit).Find(&list).Error
	return list, err
}

// RecordEvent stores a provider event id. It returns false when the id was already recorded.
func (r *PaymentRepository) RecordEvent(eventID, eventType string) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.WebhookEvent{EventID: eventID, Type: eventType})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

type PaymentFilter struct {
	UserID *uint
	Status string
	Kind   string // booking | subscription
	From   *time.Time
	To     *time.Time
}

func (r *PaymentRepository) filtered(f PaymentFilter) *gorm.DB {
	q := r.db.Model(&models.Payment{})
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	switch f.Kind {
	case "booking":
		q = q.Where("booking_id IS NOT NULL")
	case "subscription":
		q = q.Where("subscription_id IS NOT NULL")
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}
	return q
}

func (r *PaymentRepository) List(f PaymentFilter, p Page) ([]models.Payment, int64, error) {
	q := r.filtered(f)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Payment
	err := p.apply(q.Preload("Booking").Preload("Booking.Tour").Preload("Subscription").Preload("Subscription.Plan"),
		map[string]string{"createdAt": "created_at", "amount": "amount_cents", "status": "status"}, "created_at").
		Find(&list).Error
	return list, total, err
}

// SumCompleted totals the completed amounts matching f.
func (r *PaymentRepository) SumCompleted(f PaymentFilter) (int64, error) {
	f.Status = domain.PaymentCompleted
	var row struct{ Total int64 }
	err := r.filtered(f).Select("COALESCE(SUM(amount_cents), 0) AS total").Scan(&row).Error
	return row.Total, err
}

// CompletedForHost lists completed booking payments for tours of the given host since a point in time.
func (r *PaymentRepository) CompletedForHost(hostID uint, since time.Time) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.Model(&models.Payment{}).
		Joins("JOIN bookings ON bookings.id = payments.booking_id").
		Joins("JOIN tours ON tours.id = bookings.tour_id").
		Where("tours.host_id = ? AND payments.status = ? AND payments.paid_at >= ?", hostID, domain.PaymentCompleted, since).
		Order("payments.paid_at ASC").
		Find(&list).Error
	return list, err
}

// TotalCompletedForHost sums completed booking payments for the host's tours.
func (r *PaymentRepository) TotalCompletedForHost(hostID uint) (int64, int64, error) {
	var row struct {
		Total int64
		Count int64
	}
	err := r.db.Model(&models.Payment{}).
		Joins("JOIN bookings ON bookings.id = payments.booking_id").
		Joins("JOIN tours ON tours.id = bookings.tour_id").
		Where("tours.host_id = ? AND payments.status = ?", hostID, domain.PaymentCompleted).
		Select("COALESCE(SUM(payments.amount_cents), 0) AS total, COUNT(payments.id) AS count").
		Scan(&row).Error
	return row.Total, row.Count, err
}

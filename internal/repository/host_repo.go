package repository

import (
	"time"

	"tourhub/internal/models"

	"gorm.io/gorm"
)

type HostRepository struct {
	db *gorm.DB
}

func NewHostRepository(db *gorm.DB) *HostRepository {
	return &HostRepository{db: db}
}

func (r *HostRepository) WithTx(tx *gorm.DB) *HostRepository {
	return &HostRepository{db: tx}
}

func (r *HostRepository) Create(h *models.Host) error {
	return r.db.Create(h).Error
}

func (r *HostRepository) GetByID(id uint) (*models.Host, error) {
	var h models.Host
	err := r.db.First(&h, id).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HostRepository) GetByUserID(userID uint) (*models.Host, error) {
	var h models.Host
	err := r.db.Where("user_id = ?", userID).First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// GetByUserIDForUpdate locks the host row for the current transaction.
func (r *HostRepository) GetByUserIDForUpdate(userID uint) (*models.Host, error) {
	var h models.Host
	err := forUpdate(r.db).Where("user_id = ?", userID).First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// GetWithSubscription loads the host with its current subscription and plan.
func (r *HostRepository) GetWithSubscription(userID uint) (*models.Host, error) {
	var h models.Host
	err := r.db.Preload("Subscription").Preload("Subscription.Plan").Where("user_id = ?", userID).First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HostRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Host{}).Where("id = ?", id).Updates(fields).Error
}

// Credit adds an earning to the spendable balance and the lifetime total.
func (r *HostRepository) Credit(hostID uint, amountCents int64, reference string) error {
	err := r.db.Model(&models.Host{}).Where("id = ?", hostID).Updates(map[string]interface{}{
		"balance_cents":        gorm.Expr("balance_cents + ?", amountCents),
		"total_earnings_cents": gorm.Expr("total_earnings_cents + ?", amountCents),
	}).Error
	if err != nil {
		return err
	}
	return r.addLedger(hostID, amountCents, "EARNING", reference)
}

// Debit takes amountCents from the balance only if enough is available.
func (r *HostRepository) Debit(hostID uint, amountCents int64, entryType, reference string) error {
	res := r.db.Model(&models.Host{}).
		Where("id = ? AND balance_cents >= ?", hostID, amountCents).
		Update("balance_cents", gorm.Expr("balance_cents - ?", amountCents))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return r.addLedger(hostID, -amountCents, entryType, reference)
}

// Restore puts a previously debited amount back on the balance.
func (r *HostRepository) Restore(hostID uint, amountCents int64, entryType, reference string) error {
	err := r.db.Model(&models.Host{}).Where("id = ?", hostID).
		Update("balance_cents", gorm.Expr("balance_cents + ?", amountCents)).Error
	if err != nil {
		return err
	}
	return r.addLedger(hostID, amountCents, entryType, reference)
}

func (r *HostRepository) addLedger(hostID uint, amountCents int64, entryType, reference string) error {
	return r.db.Create(&models.LedgerEntry{
		HostID:      hostID,
		AmountCents: amountCents,
		Type:        entryType,
		Reference:   reference,
	}).Error
}

func (r *HostRepository) Ledger(hostID uint, p Page) ([]models.LedgerEntry, int64, error) {
	q := r.db.Model(&models.LedgerEntry{}).Where("host_id = ?", hostID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.LedgerEntry
	err := p.apply(q, nil, "created_at").Find(&list).Error
	return list, total, err
}

func (r *HostRepository) TouchLastPayout(hostID uint, at time.Time) error {
	return r.db.Model(&models.Host{}).Where("id = ?", hostID).Update("last_payout_at", at).Error
}

// AdjustTourCount changes the tour counter by delta, never below zero.
func (r *HostRepository) AdjustTourCount(hostID uint, delta int) error {
	return r.adjustCounter(hostID, "current_tour_count", delta)
}

// AdjustBlogCount changes the blog counter by delta, never below zero.
func (r *HostRepository) AdjustBlogCount(hostID uint, delta int) error {
	return r.adjustCounter(hostID, "current_blog_count", delta)
}

func (r *HostRepository) adjustCounter(hostID uint, column string, delta int) error {
	q := r.db.Model(&models.Host{}).Where("id = ?", hostID)
	if delta < 0 {
		q = q.Where(column+" >= ?", -delta)
	}
	return q.Update(column, gorm.Expr(column+" + ?", delta)).Error
}

// SetRating stores the recomputed rating aggregate.
func (r *HostRepository) SetRating(hostID uint, avg float64, count int64) error {
	return r.UpdateFields(hostID, map[string]interface{}{"average_rating": avg, "total_reviews": count})
}

type TouristRepository struct {
	db *gorm.DB
}

func NewTouristRepository(db *gorm.DB) *TouristRepository {
	return &TouristRepository{db: db}
}

func (r *TouristRepository) WithTx(tx *gorm.DB) *TouristRepository {
	return &TouristRepository{db: tx}
}

func (r *TouristRepository) Create(t *models.Tourist) error {
	return r.db.Create(t).Error
}

func (r *TouristRepository) GetByID(id uint) (*models.Tourist, error) {
	var t models.Tourist
	err := r.db.First(&t, id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TouristRepository) GetByUserID(userID uint) (*models.Tourist, error) {
	var t models.Tourist
	err := r.db.Where("user_id = ?", userID).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TouristRepository) AddSpent(touristID uint, amountCents int64) error {
	return r.db.Model(&models.Tourist{}).Where("id = ?", touristID).
		Update("total_spent_cents", gorm.Expr("total_spent_cents + ?", amountCents)).Error
}

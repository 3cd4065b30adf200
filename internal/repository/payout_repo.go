package repository

import (
	"time"

	"tourhub/internal/domain"
	"tourhub/internal/models"

	"gorm.io/gorm"
)

type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) WithTx(tx *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: tx}
}

func (r *PayoutRepository) Create(p *models.Payout) error {
	return r.db.Create(p).Error
}

func (r *PayoutRepository) GetByID(id uint) (*models.Payout, error) {
	var p models.Payout
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPendingForUpdate locks a payout that is still PENDING.
func (r *PayoutRepository) GetPendingForUpdate(id uint) (*models.Payout, error) {
	var p models.Payout
	err := forUpdate(r.db).Where("id = ? AND status = ?", id, domain.PayoutPending).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PayoutRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Payout{}).Where("id = ?", id).Updates(fields).Error
}

func (r *PayoutRepository) IncrementAttempts(id uint) error {
	return r.db.Model(&models.Payout{}).Where("id = ?", id).UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}

func (r *PayoutRepository) ListByHost(hostID uint, p Page) ([]models.Payout, int64, error) {
	q := r.db.Model(&models.Payout{}).Where("host_id = ?", hostID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Payout
	err := p.apply(q, map[string]string{"createdAt": "created_at", "amount": "amount_cents"}, "created_at").Find(&list).Error
	return list, total, err
}

// ListStalePending returns PENDING payouts last touched before the cutoff.
func (r *PayoutRepository) ListStalePending(before time.Time, limit int) ([]models.Payout, error) {
	var list []models.Payout
	err := r.db.Where("status = ? AND updated_at < ?", domain.PayoutPending, before).
		Order("id ASC").Limit(limit).Find(&list).Error
	return list, err
}

type PayoutTotals struct {
	CompletedCents int64 `json:"total_paid_out_cents"`
	PendingCents   int64 `json:"pending_cents"`
	Count          int64 `json:"count"`
}

func (r *PayoutRepository) Totals(hostID uint) (*PayoutTotals, error) {
	var t PayoutTotals
	err := r.db.Model(&models.Payout{}).Where("host_id = ?", hostID).
		Select("COALESCE(SUM(CASE WHEN status = ? THEN amount_cents ELSE 0 END), 0) AS completed_cents, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN amount_cents ELSE 0 END), 0) AS pending_cents, "+
			"COUNT(*) AS count", domain.PayoutCompleted, domain.PayoutPending).
		Scan(&t).Error
	return &t, err
}

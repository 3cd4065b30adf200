package repository

import (
	"tourhub/internal/domain"
	"tourhub/internal/models"

	"gorm.io/gorm"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

// Plans

func (r *SubscriptionRepository) CreatePlan(p *models.SubscriptionPlan) error {
	return r.db.Create(p).Error
}

func (r *SubscriptionRepository) GetPlan(id uint) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SubscriptionRepository) GetPlanByName(name string) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	err := r.db.Where("name = ?", name).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SubscriptionRepository) ListPlans(activeOnly bool) ([]models.SubscriptionPlan, error) {
	q := r.db.Model(&models.SubscriptionPlan{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var list []models.SubscriptionPlan
	err := q.Order("price_cents ASC").Find(&list).Error
	return list, err
}

func (r *SubscriptionRepository) UpdatePlan(p *models.SubscriptionPlan) error {
	return r.db.Save(p).Error
}

func (r *SubscriptionRepository) DeletePlan(id uint) error {
	return r.db.Delete(&models.SubscriptionPlan{}, id).Error
}

func (r *SubscriptionRepository) CountForPlan(planID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.Subscription{}).Where("plan_id = ?", planID).Count(&n).Error
	return n, err
}

// Subscriptions

func (r *SubscriptionRepository) Create(s *models.Subscription) error {
	return r.db.Create(s).Error
}

func (r *SubscriptionRepository) GetByID(id uint) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.Preload("Plan").First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByIDForUpdate locks the subscription row for the current transaction.
func (r *SubscriptionRepository) GetByIDForUpdate(id uint) (*models.Subscription, error) {
	var s models.Subscription
	err := forUpdate(r.db).First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) Update(s *models.Subscription) error {
	return r.db.Omit("Plan").Save(s).Error
}

func (r *SubscriptionRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Subscription{}).Where("id = ?", id).Updates(fields).Error
}

func (r *SubscriptionRepository) Delete(id uint) error {
	return r.db.Delete(&models.Subscription{}, id).Error
}

// FindOpenForHost returns the host's ACTIVE or PENDING subscription, newest first.
func (r *SubscriptionRepository) FindOpenForHost(hostID uint) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.Preload("Plan").
		Where("host_id = ? AND status IN ?", hostID, []string{domain.SubscriptionActive, domain.SubscriptionPending}).
		Order("created_at DESC").Order("id DESC").First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AdjustRemaining moves the remaining tour or blog allowance by delta. Unlimited blog allowances stay NULL.
func (r *SubscriptionRepository) AdjustRemaining(id uint, column string, delta int) error {
	q := r.db.Model(&models.Subscription{}).Where("id = ? AND "+column+" IS NOT NULL", id)
	if delta < 0 {
		q = q.Where(column+" >= ?", -delta)
	}
	return q.UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

type SubscriptionFilter struct {
	Status string
	PlanID *uint
	HostID *uint
}

func (r *SubscriptionRepository) List(f SubscriptionFilter, p Page) ([]models.Subscription, int64, error) {
	q := r.db.Model(&models.Subscription{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PlanID != nil {
		q = q.Where("plan_id = ?", *f.PlanID)
	}
	if f.HostID != nil {
		q = q.Where("host_id = ?", *f.HostID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Subscription
	err := p.apply(q.Preload("Plan"), map[string]string{"createdAt": "created_at", "endDate": "end_date", "status": "status"}, "created_at").
		Find(&list).Error
	return list, total, err
}

type PlanUsage struct {
	PlanID   uint   `json:"plan_id"`
	PlanName string `json:"plan_name"`
	Active   int64  `json:"active"`
	Total    int64  `json:"total"`
}

type SubscriptionOverview struct {
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"by_status"`
	RevenueCents int64            `json:"revenue_cents"`
	Plans        []PlanUsage      `json:"plans"`
}

func (r *SubscriptionRepository) Overview() (*SubscriptionOverview, error) {
	o := &SubscriptionOverview{ByStatus: map[string]int64{}}
	var rows []StatusCount
	if err := r.db.Model(&models.Subscription{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		o.Total += row.Count
		o.ByStatus[row.Status] = row.Count
	}
	var rev struct{ Total int64 }
	err := r.db.Model(&models.Payment{}).Select("COALESCE(SUM(amount_cents), 0) AS total").
		Where("status = ? AND subscription_id IS NOT NULL", domain.PaymentCompleted).Scan(&rev).Error
	if err != nil {
		return nil, err
	}
	o.RevenueCents = rev.Total
	err = r.db.Model(&models.SubscriptionPlan{}).
		Select("subscription_plans.id AS plan_id, subscription_plans.name AS plan_name, "+
			"COALESCE(SUM(CASE WHEN subscriptions.status = ? THEN 1 ELSE 0 END), 0) AS active, "+
			"COUNT(subscriptions.id) AS total", domain.SubscriptionActive).
		Joins("LEFT JOIN subscriptions ON subscriptions.plan_id = subscription_plans.id AND subscriptions.deleted_at IS NULL").
		Group("subscription_plans.id, subscription_plans.name").
		Order("subscription_plans.id ASC").
		Scan(&o.Plans).Error
	return o, err
}

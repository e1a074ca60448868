package repository

import (
	"strings"

	"github.com/LukasBrandt/Loopline/app/models"
	"gorm.io/gorm"
)

// planRepository implements the PlanRepository interface
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

// GetByID retrieves a plan by its ID
func (r *planRepository) GetByID(id uint) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	err := r.db.First(&plan, id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetByExternalPriceID resolves a provider price reference to a catalog plan
func (r *planRepository) GetByExternalPriceID(priceID string) (*models.SubscriptionPlan, error) {
	trimmed := strings.TrimSpace(priceID)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var plan models.SubscriptionPlan
	err := r.db.Where("external_price_id = ? AND is_active = ?", trimmed, true).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListActive returns all active catalog plans
func (r *planRepository) ListActive() ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := r.db.Where("is_active = ?", true).Find(&plans).Error
	return plans, err
}

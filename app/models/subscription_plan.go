package models

import "time"

// SubscriptionPlan maps a provider price reference to the internal role a
// paying subscriber is granted. Catalog rows are managed out of band and are
// read-only for the webhook pipeline.
type SubscriptionPlan struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"type:varchar(150);not null" json:"name" validate:"required,max=150"`
	ExternalPriceID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"external_price_id" validate:"required"`
	RoleID          string    `gorm:"type:varchar(50);not null;index" json:"role_id" validate:"required"`
	IsActive        bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProfile holds the public profile of a user plus the external
// billing-customer linkage. The webhook pipeline only reads this table.
type UserProfile struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UserID             uint           `gorm:"not null;uniqueIndex" json:"user_id"`
	User               User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	DisplayName        string         `gorm:"type:varchar(150)" json:"display_name" validate:"max=150"`
	Bio                string         `gorm:"type:text;default:null" json:"bio" validate:"max=1000"`
	AvatarURL          string         `gorm:"type:varchar(255);default:null" json:"avatar_url" validate:"max=255"`
	ExternalCustomerID string         `gorm:"type:varchar(191);default:null;uniqueIndex" json:"-"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

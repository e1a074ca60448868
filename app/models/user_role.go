package models

import "time"

// UserRole is a granted role for a user. Subscription plan roles live here
// next to roles granted by other subsystems; the pair is unique.
type UserRole struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:ux_user_roles_user_role,unique,priority:1" json:"user_id"`
	RoleID    string    `gorm:"type:varchar(50);not null;index:ux_user_roles_user_role,unique,priority:2" json:"role_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

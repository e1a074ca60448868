package roles

import (
	"context"
	"errors"
	"strings"

	"github.com/LukasBrandt/Loopline/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service manages role grants for users. Subscription reconciliation and
// other subsystems go through this interface rather than the table directly.
type Service interface {
	GetUserRoles(ctx context.Context, userID uint) ([]string, error)
	Assign(ctx context.Context, userID uint, roleID string) error
	Unassign(ctx context.Context, userID uint, roleID string) error
}

type gormService struct {
	db *gorm.DB
}

// NewService creates a role service backed by GORM.
func NewService(db *gorm.DB) Service {
	return &gormService{db: db}
}

// GetUserRoles returns the role ids currently granted to a user.
func (s *gormService) GetUserRoles(ctx context.Context, userID uint) ([]string, error) {
	var roleIDs []string
	err := s.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ?", userID).
		Pluck("role_id", &roleIDs).Error
	return roleIDs, err
}

// Assign grants a role to a user. Granting an already-held role is a no-op.
func (s *gormService) Assign(ctx context.Context, userID uint, roleID string) error {
	role := strings.TrimSpace(roleID)
	if userID == 0 || role == "" {
		return errors.New("user_id and role_id are required")
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "role_id"},
		},
		DoNothing: true,
	}).Create(&models.UserRole{UserID: userID, RoleID: role}).Error
}

// Unassign revokes a role from a user. Revoking an absent role is a no-op.
func (s *gormService) Unassign(ctx context.Context, userID uint, roleID string) error {
	role := strings.TrimSpace(roleID)
	if userID == 0 || role == "" {
		return errors.New("user_id and role_id are required")
	}
	return s.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, role).
		Delete(&models.UserRole{}).Error
}

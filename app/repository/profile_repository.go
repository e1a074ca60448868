package repository

import (
	"strings"

	"github.com/LukasBrandt/Loopline/app/models"
	"gorm.io/gorm"
)

// profileRepository implements the ProfileRepository interface
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository instance
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Create creates a new user profile in the database
func (r *profileRepository) Create(profile *models.UserProfile) error {
	return r.db.Create(profile).Error
}

// GetByUserID retrieves the profile belonging to a user
func (r *profileRepository) GetByUserID(userID uint) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByExternalCustomerID resolves a billing-customer id to a profile
func (r *profileRepository) GetByExternalCustomerID(customerID string) (*models.UserProfile, error) {
	trimmed := strings.TrimSpace(customerID)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var profile models.UserProfile
	err := r.db.Where("external_customer_id = ?", trimmed).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Update saves changes to an existing profile
func (r *profileRepository) Update(profile *models.UserProfile) error {
	return r.db.Save(profile).Error
}

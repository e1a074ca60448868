package repository

import (
	"github.com/LukasBrandt/Loopline/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// ProfileRepository defines the interface for user-profile database operations
type ProfileRepository interface {
	Create(profile *models.UserProfile) error
	GetByUserID(userID uint) (*models.UserProfile, error)
	GetByExternalCustomerID(customerID string) (*models.UserProfile, error)
	Update(profile *models.UserProfile) error
}

// PlanRepository defines the interface for the subscription plan catalog
type PlanRepository interface {
	GetByID(id uint) (*models.SubscriptionPlan, error)
	GetByExternalPriceID(priceID string) (*models.SubscriptionPlan, error)
	ListActive() ([]models.SubscriptionPlan, error)
}

// WebhookEventRepository persists provider webhook deliveries idempotently
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
}

// Repositories groups all repository instances
type Repositories struct {
	User         UserRepository
	Profile      ProfileRepository
	Plan         PlanRepository
	WebhookEvent WebhookEventRepository
}

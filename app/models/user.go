package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// Subscription statuses mirror the payment provider's lifecycle states.
const (
	SUBSCRIPTION_ACTIVE             = "active"
	SUBSCRIPTION_TRIALING           = "trialing"
	SUBSCRIPTION_PAST_DUE           = "past_due"
	SUBSCRIPTION_UNPAID             = "unpaid"
	SUBSCRIPTION_INCOMPLETE         = "incomplete"
	SUBSCRIPTION_INCOMPLETE_EXPIRED = "incomplete_expired"
	SUBSCRIPTION_PAUSED             = "paused"
	// SUBSCRIPTION_CANCELED is terminal; leaving it requires a new subscription.
	SUBSCRIPTION_CANCELED = "canceled"
)

type User struct {
	ID                     uint           `gorm:"primaryKey" json:"id"`
	Name                   string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email                  string         `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password               string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role                   string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status                 string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	APIKeyHash             string         `gorm:"type:varchar(64);default:null;index" json:"-"`
	SubscriptionStatus     string         `gorm:"type:varchar(32);default:null" json:"subscription_status"`
	SubscriptionPlanID     *uint          `gorm:"default:null;index" json:"subscription_plan_id,omitempty"`
	ExternalSubscriptionID *string        `gorm:"type:varchar(191);default:null;index" json:"-"`
	LastLoginAt            *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt              time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(username string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     username,
		Email:    email,
		Password: pw,
		Role:     ROLE_USER,
		Status:   STATUS_INACTIVE,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// HashAPIKey returns the storable hash for a raw API key.
func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKey creates a new raw API key and stores its hash on the user.
// The raw key is returned once and never persisted.
func (u *User) GenerateAPIKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	raw := hex.EncodeToString(b)
	u.APIKeyHash = HashAPIKey(raw)
	return raw, nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// HasExternalSubscription reports whether the user is already linked to a
// provider subscription.
func (u *User) HasExternalSubscription() bool {
	return u.ExternalSubscriptionID != nil && *u.ExternalSubscriptionID != ""
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

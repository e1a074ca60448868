package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/LukasBrandt/Loopline/app/models"
	"gorm.io/gorm"
)

// NotificationUpdateProfile is the event name published to a user's realtime
// channel after the webhook pipeline changed their subscription state.
const NotificationUpdateProfile = "updateProfile"

// UserStore is the slice of the user repository the pipeline mutates.
type UserStore interface {
	GetByID(id uint) (*models.User, error)
	Update(user *models.User) error
}

// ProfileStore resolves billing customers to profiles. Read-only here.
type ProfileStore interface {
	GetByExternalCustomerID(customerID string) (*models.UserProfile, error)
}

// PlanStore is the read-only plan catalog.
type PlanStore interface {
	GetByID(id uint) (*models.SubscriptionPlan, error)
	GetByExternalPriceID(priceID string) (*models.SubscriptionPlan, error)
	ListActive() ([]models.SubscriptionPlan, error)
}

// RoleService grants and revokes user roles.
type RoleService interface {
	GetUserRoles(ctx context.Context, userID uint) ([]string, error)
	Assign(ctx context.Context, userID uint, roleID string) error
	Unassign(ctx context.Context, userID uint, roleID string) error
}

// Publisher delivers realtime notifications to a user.
type Publisher interface {
	Publish(ctx context.Context, userID uint, event string, payload interface{}) error
}

// Logger is the structured logger the service reports through.
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// Service applies provider subscription lifecycle events to local user state:
// subscription status, plan reference and the role implied by the plan.
// All collaborators are injected; the service holds no ambient state.
type Service struct {
	users     UserStore
	profiles  ProfileStore
	plans     PlanStore
	roles     RoleService
	publisher Publisher
	log       Logger
}

// NewService creates a subscription service from injected collaborators.
func NewService(users UserStore, profiles ProfileStore, plans PlanStore, roles RoleService, publisher Publisher, log Logger) *Service {
	return &Service{
		users:     users,
		profiles:  profiles,
		plans:     plans,
		roles:     roles,
		publisher: publisher,
		log:       log,
	}
}

// ResolveProfile maps a billing-customer id to the owning profile. The bool
// result distinguishes an unknown customer from a lookup failure.
func (s *Service) ResolveProfile(ctx context.Context, customerID string) (*models.UserProfile, bool, error) {
	_ = ctx
	profile, err := s.profiles.GetByExternalCustomerID(customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("profile lookup for customer %s: %w", customerID, err)
	}
	return profile, true, nil
}

// HandleCreated links a new provider subscription to the user. Replays for a
// user who already carries an external subscription id are no-ops.
func (s *Service) HandleCreated(ctx context.Context, userID uint, ev CreatedEvent) error {
	snap := ev.Subscription

	// A missing catalog plan is a data-integrity error, not a soft miss.
	plan, err := s.plans.GetByExternalPriceID(snap.PriceID)
	if err != nil {
		return fmt.Errorf("plan lookup for price %s: %w", snap.PriceID, err)
	}
	user, err := s.users.GetByID(userID)
	if err != nil {
		return fmt.Errorf("user lookup %d: %w", userID, err)
	}

	if user.HasExternalSubscription() {
		s.log.Infow("subscription already linked, skipping replay",
			"user_id", user.ID, "subscription_id", *user.ExternalSubscriptionID)
		return nil
	}

	if snap.Status == models.SUBSCRIPTION_ACTIVE {
		if err := s.ensureRole(ctx, user.ID, plan.RoleID); err != nil {
			return err
		}
	}

	user.SubscriptionStatus = snap.Status
	user.SubscriptionPlanID = &plan.ID
	subID := snap.SubscriptionID
	user.ExternalSubscriptionID = &subID
	if err := s.users.Update(user); err != nil {
		return fmt.Errorf("persist subscription state for user %d: %w", user.ID, err)
	}

	s.publishProfileUpdate(ctx, user)
	return nil
}

// HandleUpdated reconciles a changed provider subscription. Events carrying a
// subscription id other than the user's stored one are ignored.
func (s *Service) HandleUpdated(ctx context.Context, userID uint, ev UpdatedEvent) error {
	snap := ev.Subscription

	plan, err := s.plans.GetByExternalPriceID(snap.PriceID)
	if err != nil {
		return fmt.Errorf("plan lookup for price %s: %w", snap.PriceID, err)
	}
	user, err := s.users.GetByID(userID)
	if err != nil {
		return fmt.Errorf("user lookup %d: %w", userID, err)
	}

	if user.HasExternalSubscription() && *user.ExternalSubscriptionID != snap.SubscriptionID {
		s.log.Infow("event for foreign subscription ignored",
			"user_id", user.ID, "stored_subscription_id", *user.ExternalSubscriptionID,
			"event_subscription_id", snap.SubscriptionID)
		return nil
	}

	if snap.Status == models.SUBSCRIPTION_ACTIVE {
		switch {
		case user.SubscriptionPlanID == nil:
			// First grant for this user: a subscriber holds at most one
			// catalog role, so any other plan role is revoked.
			if err := s.ensureRole(ctx, user.ID, plan.RoleID); err != nil {
				return err
			}
			if err := s.revokeOtherCatalogRoles(ctx, user.ID, plan.RoleID); err != nil {
				return err
			}
		case *user.SubscriptionPlanID != plan.ID:
			oldPlan, err := s.plans.GetByID(*user.SubscriptionPlanID)
			if err != nil {
				return fmt.Errorf("previous plan lookup %d: %w", *user.SubscriptionPlanID, err)
			}
			if oldPlan.RoleID != plan.RoleID {
				if err := s.roles.Unassign(ctx, user.ID, oldPlan.RoleID); err != nil {
					return fmt.Errorf("unassign role %s from user %d: %w", oldPlan.RoleID, user.ID, err)
				}
			}
			if err := s.ensureRole(ctx, user.ID, plan.RoleID); err != nil {
				return err
			}
		case ev.PreviousStatus != nil:
			// Only the status changed, e.g. past_due back to active; make
			// sure the current plan's role is in place.
			if err := s.ensureRole(ctx, user.ID, plan.RoleID); err != nil {
				return err
			}
		}
	} else if snap.CancelAtPeriodEnd {
		// Pending cancellation; the deleted event finalizes it.
		s.log.Infow("cancellation pending at period end",
			"user_id", user.ID, "subscription_id", snap.SubscriptionID)
		return nil
	}

	user.SubscriptionStatus = snap.Status
	if snap.Status == models.SUBSCRIPTION_INCOMPLETE_EXPIRED {
		// Terminal without ever becoming active: drop the linkage entirely.
		user.SubscriptionPlanID = nil
		user.ExternalSubscriptionID = nil
	} else {
		user.SubscriptionPlanID = &plan.ID
		subID := snap.SubscriptionID
		user.ExternalSubscriptionID = &subID
	}
	if err := s.users.Update(user); err != nil {
		return fmt.Errorf("persist subscription state for user %d: %w", user.ID, err)
	}

	s.publishProfileUpdate(ctx, user)
	return nil
}

// HandleDeleted finalizes a terminated subscription: the plan role is revoked
// and the user's subscription linkage is cleared.
func (s *Service) HandleDeleted(ctx context.Context, userID uint, ev DeletedEvent) error {
	snap := ev.Subscription

	plan, err := s.plans.GetByExternalPriceID(snap.PriceID)
	if err != nil {
		return fmt.Errorf("plan lookup for price %s: %w", snap.PriceID, err)
	}
	user, err := s.users.GetByID(userID)
	if err != nil {
		return fmt.Errorf("user lookup %d: %w", userID, err)
	}

	if user.HasExternalSubscription() && *user.ExternalSubscriptionID != snap.SubscriptionID {
		s.log.Infow("event for foreign subscription ignored",
			"user_id", user.ID, "stored_subscription_id", *user.ExternalSubscriptionID,
			"event_subscription_id", snap.SubscriptionID)
		return nil
	}

	current, err := s.roles.GetUserRoles(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("role lookup for user %d: %w", user.ID, err)
	}
	if containsRole(current, plan.RoleID) {
		if err := s.roles.Unassign(ctx, user.ID, plan.RoleID); err != nil {
			return fmt.Errorf("unassign role %s from user %d: %w", plan.RoleID, user.ID, err)
		}
	}

	user.SubscriptionStatus = models.SUBSCRIPTION_CANCELED
	user.SubscriptionPlanID = nil
	user.ExternalSubscriptionID = nil
	if err := s.users.Update(user); err != nil {
		return fmt.Errorf("persist subscription state for user %d: %w", user.ID, err)
	}

	s.publishProfileUpdate(ctx, user)
	return nil
}

// ensureRole grants roleID unless the user already holds it, so replays never
// trip duplicate-assignment errors in the role service.
func (s *Service) ensureRole(ctx context.Context, userID uint, roleID string) error {
	current, err := s.roles.GetUserRoles(ctx, userID)
	if err != nil {
		return fmt.Errorf("role lookup for user %d: %w", userID, err)
	}
	if containsRole(current, roleID) {
		return nil
	}
	if err := s.roles.Assign(ctx, userID, roleID); err != nil {
		return fmt.Errorf("assign role %s to user %d: %w", roleID, userID, err)
	}
	return nil
}

// revokeOtherCatalogRoles removes every role that belongs to the plan catalog
// except keepRoleID from the user.
func (s *Service) revokeOtherCatalogRoles(ctx context.Context, userID uint, keepRoleID string) error {
	plans, err := s.plans.ListActive()
	if err != nil {
		return fmt.Errorf("plan catalog lookup: %w", err)
	}
	catalog := make(map[string]struct{}, len(plans))
	for _, p := range plans {
		if p.RoleID != keepRoleID {
			catalog[p.RoleID] = struct{}{}
		}
	}

	current, err := s.roles.GetUserRoles(ctx, userID)
	if err != nil {
		return fmt.Errorf("role lookup for user %d: %w", userID, err)
	}
	for _, roleID := range current {
		if _, ok := catalog[roleID]; !ok {
			continue
		}
		if err := s.roles.Unassign(ctx, userID, roleID); err != nil {
			return fmt.Errorf("unassign role %s from user %d: %w", roleID, userID, err)
		}
	}
	return nil
}

type profileUpdatePayload struct {
	UserID             uint   `json:"user_id"`
	SubscriptionStatus string `json:"subscription_status"`
	SubscriptionPlanID *uint  `json:"subscription_plan_id,omitempty"`
}

// publishProfileUpdate is best effort: the state change is already persisted,
// a failed notification only loses the realtime hint.
func (s *Service) publishProfileUpdate(ctx context.Context, user *models.User) {
	payload := profileUpdatePayload{
		UserID:             user.ID,
		SubscriptionStatus: user.SubscriptionStatus,
		SubscriptionPlanID: user.SubscriptionPlanID,
	}
	if err := s.publisher.Publish(ctx, user.ID, NotificationUpdateProfile, payload); err != nil {
		s.log.Errorw("profile update publish failed", "user_id", user.ID, "error", err)
	}
}

func containsRole(roles []string, roleID string) bool {
	for _, r := range roles {
		if r == roleID {
			return true
		}
	}
	return false
}

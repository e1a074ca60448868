package subscription

import (
	"context"
	"errors"
	"testing"

	"github.com/LukasBrandt/Loopline/app/models"
	"gorm.io/gorm"
)

type fakeUserStore struct {
	users   map[uint]*models.User
	updates int
}

func (f *fakeUserStore) GetByID(id uint) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) Update(user *models.User) error {
	f.updates++
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

type fakeProfileStore struct {
	profiles map[string]*models.UserProfile
	err      error
}

func (f *fakeProfileStore) GetByExternalCustomerID(customerID string) (*models.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[customerID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

type fakePlanStore struct {
	plans []models.SubscriptionPlan
}

func (f *fakePlanStore) GetByID(id uint) (*models.SubscriptionPlan, error) {
	for _, p := range f.plans {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePlanStore) GetByExternalPriceID(priceID string) (*models.SubscriptionPlan, error) {
	for _, p := range f.plans {
		if p.ExternalPriceID == priceID && p.IsActive {
			cp := p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePlanStore) ListActive() ([]models.SubscriptionPlan, error) {
	var out []models.SubscriptionPlan
	for _, p := range f.plans {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeRoleService struct {
	roles     map[uint][]string
	assigns   int
	unassigns int
}

func (f *fakeRoleService) GetUserRoles(_ context.Context, userID uint) ([]string, error) {
	return append([]string(nil), f.roles[userID]...), nil
}

func (f *fakeRoleService) Assign(_ context.Context, userID uint, roleID string) error {
	f.assigns++
	f.roles[userID] = append(f.roles[userID], roleID)
	return nil
}

func (f *fakeRoleService) Unassign(_ context.Context, userID uint, roleID string) error {
	f.unassigns++
	kept := f.roles[userID][:0]
	for _, r := range f.roles[userID] {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	f.roles[userID] = kept
	return nil
}

type fakePublisher struct {
	events []string
}

func (f *fakePublisher) Publish(_ context.Context, _ uint, event string, _ interface{}) error {
	f.events = append(f.events, event)
	return nil
}

type nopLogger struct{}

func (nopLogger) Infow(string, ...interface{})  {}
func (nopLogger) Warnw(string, ...interface{})  {}
func (nopLogger) Errorw(string, ...interface{}) {}

type fixture struct {
	users     *fakeUserStore
	profiles  *fakeProfileStore
	plans     *fakePlanStore
	roles     *fakeRoleService
	publisher *fakePublisher
	svc       *Service
}

func newFixture() *fixture {
	users := &fakeUserStore{users: map[uint]*models.User{
		7: {ID: 7, Name: "tester", Email: "tester@example.com"},
	}}
	profiles := &fakeProfileStore{profiles: map[string]*models.UserProfile{
		"cus_123": {ID: 1, UserID: 7, ExternalCustomerID: "cus_123"},
	}}
	plans := &fakePlanStore{plans: []models.SubscriptionPlan{
		{ID: 1, Name: "Premium", ExternalPriceID: "price_premium", RoleID: "premium", IsActive: true},
		{ID: 2, Name: "Premium Max", ExternalPriceID: "price_premium_max", RoleID: "premium_max", IsActive: true},
	}}
	roles := &fakeRoleService{roles: map[uint][]string{}}
	publisher := &fakePublisher{}

	return &fixture{
		users:     users,
		profiles:  profiles,
		plans:     plans,
		roles:     roles,
		publisher: publisher,
		svc:       NewService(users, profiles, plans, roles, publisher, nopLogger{}),
	}
}

func strptr(s string) *string { return &s }
func uintp(v uint) *uint      { return &v }

func snapshot(subID, status, priceID string) Snapshot {
	return Snapshot{
		SubscriptionID: subID,
		CustomerID:     "cus_123",
		Status:         status,
		PriceID:        priceID,
	}
}

func TestResolveProfile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	profile, found, err := f.svc.ResolveProfile(ctx, "cus_123")
	if err != nil || !found {
		t.Fatalf("expected profile to resolve, found=%t err=%v", found, err)
	}
	if profile.UserID != 7 {
		t.Fatalf("expected user 7, got %d", profile.UserID)
	}

	_, found, err = f.svc.ResolveProfile(ctx, "cus_unknown")
	if err != nil {
		t.Fatalf("unknown customer must not be an error, got %v", err)
	}
	if found {
		t.Fatalf("expected unknown customer to be not found")
	}

	f.profiles.err = errors.New("boom")
	_, _, err = f.svc.ResolveProfile(ctx, "cus_123")
	if err == nil {
		t.Fatalf("expected lookup failure to propagate")
	}
}

func TestHandleCreated_GrantsRoleAndPersists(t *testing.T) {
	f := newFixture()

	err := f.svc.HandleCreated(context.Background(), 7, CreatedEvent{Subscription: snapshot("sub_1", models.SUBSCRIPTION_ACTIVE, "price_premium")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.roles.assigns != 1 {
		t.Fatalf("expected exactly one role assignment, got %d", f.roles.assigns)
	}
	if got := f.roles.roles[7]; len(got) != 1 || got[0] != "premium" {
		t.Fatalf("expected role premium, got %v", got)
	}

	user := f.users.users[7]
	if user.SubscriptionStatus != models.SUBSCRIPTION_ACTIVE {
		t.Fatalf("expected active status, got %q", user.SubscriptionStatus)
	}
	if user.SubscriptionPlanID == nil || *user.SubscriptionPlanID != 1 {
		t.Fatalf("expected plan 1, got %v", user.SubscriptionPlanID)
	}
	if user.ExternalSubscriptionID == nil || *user.ExternalSubscriptionID != "sub_1" {
		t.Fatalf("expected external id sub_1, got %v", user.ExternalSubscriptionID)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0] != NotificationUpdateProfile {
		t.Fatalf("expected one updateProfile notification, got %v", f.publisher.events)
	}
}

func TestHandleCreated_ReplayIsNoop(t *testing.T) {
	f := newFixture()
	f.users.users[7].ExternalSubscriptionID = strptr("sub_1")

	err := f.svc.HandleCreated(context.Background(), 7, CreatedEvent{Subscription: snapshot("sub_1", models.SUBSCRIPTION_ACTIVE, "price_premium")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.users.updates != 0 || f.roles.assigns != 0 || len(f.publisher.events) != 0 {
		t.Fatalf("expected zero writes on replay, got updates=%d assigns=%d publishes=%d",
			f.users.updates, f.roles.assigns, len(f.publisher.events))
	}
}

func TestHandleCreated_NonActiveSkipsRoleGrant(t *testing.T) {
	f := newFixture()

	err := f.svc.HandleCreated(context.Background(), 7, CreatedEvent{Subscription: snapshot("sub_1", models.SUBSCRIPTION_TRIALING, "price_premium")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.roles.assigns != 0 {
		t.Fatalf("expected no role grant for trialing, got %d", f.roles.assigns)
	}
	if f.users.updates != 1 {
		t.Fatalf("expected the user row to be persisted, got %d updates", f.users.updates)
	}
}

func TestHandleCreated_MissingPlanIsAnError(t *testing.T) {
	f := newFixture()

	err := f.svc.HandleCreated(context.Background(), 7, CreatedEvent{Subscription: snapshot("sub_1", models.SUBSCRIPTION_ACTIVE, "price_unknown")})
	if err == nil {
		t.Fatalf("expected missing catalog plan to fail loudly")
	}
	if f.users.updates != 0 {
		t.Fatalf("expected no user writes, got %d", f.users.updates)
	}
}

func TestHandleUpdated_ForeignSubscriptionIgnored(t *testing.T) {
	f := newFixture()
	f.users.users[7].ExternalSubscriptionID = strptr("sub_1")

	err := f.svc.HandleUpdated(context.Background(), 7, UpdatedEvent{Subscription: snapshot("sub_other", models.SUBSCRIPTION_ACTIVE, "price_premium")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.users.updates != 0 || f.roles.assigns != 0 || f.roles.unassigns != 0 || len(f.publisher.events) != 0 {
		t.Fatalf("expected foreign event to change nothing")
	}
}

func TestHandleUpdated_PlanChangeSwapsRoles(t *testing.T) {
	f := newFixture()
	f.users.users[7].ExternalSubscriptionID = strptr("sub_1")
	f.users.users[7].SubscriptionPlanID = uintp(1)
	f.roles.roles[7] = []string{"premium"}

	err := f.svc.HandleUpdated(context.Background(), 7, UpdatedEvent{
		Subscription:    snapshot("sub_1", models.SUBSCRIPTION_ACTIVE, "price_premium_max"),
		PreviousPriceID: strptr("price_premium"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.roles.roles[7]; len(got) != 1 || got[0] != "premium_max" {
		t.Fatalf("expected exactly role premium_max, got %v", got)
	}
	if f.roles.unassigns != 1 || f.roles.assigns != 1 {
		t.Fatalf("expected one revoke and one grant, got unassigns=%d assigns=%d", f.roles.unassigns, f.roles.assigns)
	}

	user := f.users.users[7]
	if user.SubscriptionPlanID == nil || *user.SubscriptionPlanID != 2 {
		t.Fatalf("expected plan 2, got %v", user.SubscriptionPlanID)
	}
	if len(f.publisher.events) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.publisher.events))
	}
}

func TestHandleUpdated_FirstGrantRevokesOtherCatalogRoles(t *testing.T) {
	f := newFixture()
	f.users.users[7].ExternalSubscriptionID = strptr("sub_1")
	// Stale catalog role plus a role owned by another subsystem.
	f.roles.roles[7] = []string{"premium", "moderator"}

	err := f.svc.HandleUpdated(context.Background(), 7, UpdatedEvent{
		Subscription: snapshot("sub_1", models.SUBSCRIPTION_ACTIVE, "price_premium_max"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := f.roles.roles[7]
	if len(got) != 2 || !containsRole(got, "premium_max") || !containsRole(got, "moderator") {
		t.Fatalf("expected premium_max and moderator only, got %v", got)
	}
}

func TestHandleUpdated_StatusOnlyChangeRegrantsRole(t *testing.T) {
	f := newFixture()
	f.users.users[7].ExternalSubscriptionID = strptr("sub_1")
	f.users.users[7].SubscriptionPlanID = uintp(1)
	f.users.users[7].SubscriptionStatus = models.SUBSCRIPTION_PAST_DUE

	err := f.svc.HandleUpdated(context.Background(), 7, UpdatedEvent{
		Subscription:   snapshot("sub_1", models.SUBSCRIPTION_ACTIVE, "price_premium"),
		PreviousStatus: strptr(models.SUBSCRIPTION_PAST_DUE),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.roles.roles[7]; len(got) != 1 || got[0] != "premium" {
		t.Fatalf("expected premium to be granted again, got %v", got)
	}
	if f.users.users[7].SubscriptionStatus != models.SUBSCRIPTION_ACTIVE {
		t.Fatalf("expected status active, got %q", f.users.users[7].SubscriptionStatus)
	}
}

func TestHandleUpdated_PendingCancellationIsNoop(t *testing.T) {
	f := newFixture()
	f.users.users[7].ExternalSubscriptionID = strptr("sub_1")
	f.users.users[7].SubscriptionPlanID = uintp(1)

	snap := snapshot("sub_1", models.SUBSCRIPTION_PAST_DUE, "price_premium")
	snap.CancelAtPeriodEnd = true
	err := f.svc.HandleUpdated(context.Background(), 7, UpdatedEvent{Subscription: snap})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.users.updates != 0 || len(f.publisher.events) != 0 {
		t.Fatalf("expected pending cancellation to change nothing, got updates=%d publishes=%d",
			f.users.updates, len(f.publisher.events))
	}
}

func TestHandleUpdated_IncompleteExpiredClearsLinkage(t *testing.T) {
	f := newFixture()
	f.users.users[7].ExternalSubscriptionID = strptr("sub_1")
	f.users.users[7].SubscriptionPlanID = uintp(1)

	err := f.svc.HandleUpdated(context.Background(), 7, UpdatedEvent{
		Subscription: snapshot("sub_1", models.SUBSCRIPTION_INCOMPLETE_EXPIRED, "price_premium"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := f.users.users[7]
	if user.SubscriptionStatus != models.SUBSCRIPTION_INCOMPLETE_EXPIRED {
		t.Fatalf("expected incomplete_expired, got %q", user.SubscriptionStatus)
	}
	if user.SubscriptionPlanID != nil || user.ExternalSubscriptionID != nil {
		t.Fatalf("expected plan and external id to be cleared")
	}
}

func TestHandleDeleted_RevokesAndClears(t *testing.T) {
	f := newFixture()
	f.users.users[7].ExternalSubscriptionID = strptr("sub_1")
	f.users.users[7].SubscriptionPlanID = uintp(1)
	f.users.users[7].SubscriptionStatus = models.SUBSCRIPTION_ACTIVE
	f.roles.roles[7] = []string{"premium"}

	err := f.svc.HandleDeleted(context.Background(), 7, DeletedEvent{Subscription: snapshot("sub_1", models.SUBSCRIPTION_CANCELED, "price_premium")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.roles.roles[7]; len(got) != 0 {
		t.Fatalf("expected plan role revoked, got %v", got)
	}
	user := f.users.users[7]
	if user.SubscriptionStatus != models.SUBSCRIPTION_CANCELED {
		t.Fatalf("expected terminal status, got %q", user.SubscriptionStatus)
	}
	if user.SubscriptionPlanID != nil || user.ExternalSubscriptionID != nil {
		t.Fatalf("expected plan and external id to be cleared")
	}
	if len(f.publisher.events) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.publisher.events))
	}
}

func TestHandleDeleted_ForeignSubscriptionIgnored(t *testing.T) {
	f := newFixture()
	f.users.users[7].ExternalSubscriptionID = strptr("sub_1")
	f.roles.roles[7] = []string{"premium"}

	err := f.svc.HandleDeleted(context.Background(), 7, DeletedEvent{Subscription: snapshot("sub_other", models.SUBSCRIPTION_CANCELED, "price_premium")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.users.updates != 0 || f.roles.unassigns != 0 {
		t.Fatalf("expected foreign event to change nothing")
	}
}

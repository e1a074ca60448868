package entitlements

import (
	"strings"
)

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPremium    Plan = "premium"
	PlanPremiumMax Plan = "premium_max"
)

// Entitlements are the feature allowances a subscription plan unlocks.
type Entitlements struct {
	MaxUploadSizeMB    int  `json:"max_upload_size_mb"`
	MaxPinnedPosts     int  `json:"max_pinned_posts"`
	AnimatedAvatar     bool `json:"animated_avatar"`
	ProfileBadge       bool `json:"profile_badge"`
	PriorityModeration bool `json:"priority_moderation"`
}

// ForPlan returns the entitlements for a given plan. Unknown plans fall back
// to the free tier.
func ForPlan(plan Plan) Entitlements {
	switch plan {
	case PlanPremiumMax:
		return Entitlements{
			MaxUploadSizeMB:    100,
			MaxPinnedPosts:     10,
			AnimatedAvatar:     true,
			ProfileBadge:       true,
			PriorityModeration: true,
		}
	case PlanPremium:
		return Entitlements{
			MaxUploadSizeMB:    50,
			MaxPinnedPosts:     5,
			AnimatedAvatar:     true,
			ProfileBadge:       true,
		}
	default:
		return Entitlements{
			MaxUploadSizeMB: 10,
			MaxPinnedPosts:  1,
		}
	}
}

// ForRole maps a granted role id to its entitlements. Role ids and plan names
// share the same vocabulary.
func ForRole(roleID string) Entitlements {
	return ForPlan(Plan(strings.ToLower(roleID)))
}


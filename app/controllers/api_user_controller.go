package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/LukasBrandt/Loopline/app/repository"
	"github.com/LukasBrandt/Loopline/internal/pkg/entitlements"
	"github.com/LukasBrandt/Loopline/internal/pkg/usercontext"
	"github.com/LukasBrandt/Loopline/internal/pkg/utils"
)

// APIUserController serves user-facing subscription data.
type APIUserController struct {
	users repository.UserRepository
	plans repository.PlanRepository
}

// NewAPIUserController creates the user API controller.
func NewAPIUserController(users repository.UserRepository, plans repository.PlanRepository) *APIUserController {
	return &APIUserController{users: users, plans: plans}
}

// HandleGetSubscription returns the authenticated user's subscription status
// and current plan.
func (h *APIUserController) HandleGetSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	user, err := h.users.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user_not_found"})
		}
		fiberlog.Errorw("[API] user lookup failed", "user_id", userCtx.UserID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	resp := fiber.Map{
		"subscription_status": user.SubscriptionStatus,
		"plan":                nil,
		"avatar_url":          utils.GetGravatarURL(user.Email, 200),
		"entitlements":        entitlements.ForPlan(entitlements.PlanFree),
	}
	if user.SubscriptionPlanID != nil {
		plan, err := h.plans.GetByID(*user.SubscriptionPlanID)
		if err != nil {
			fiberlog.Errorw("[API] plan lookup failed", "plan_id", *user.SubscriptionPlanID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
		}
		resp["plan"] = fiber.Map{
			"id":      plan.ID,
			"name":    plan.Name,
			"role_id": plan.RoleID,
		}
		resp["entitlements"] = entitlements.ForRole(plan.RoleID)
	}

	return c.JSON(resp)
}

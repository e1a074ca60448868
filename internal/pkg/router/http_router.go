package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/LukasBrandt/Loopline/app/controllers"
	"github.com/LukasBrandt/Loopline/app/repository"
	"github.com/LukasBrandt/Loopline/internal/pkg/cache"
	"github.com/LukasBrandt/Loopline/internal/pkg/constants"
	"github.com/LukasBrandt/Loopline/internal/pkg/database"
	"github.com/LukasBrandt/Loopline/internal/pkg/env"
	"github.com/LukasBrandt/Loopline/internal/pkg/realtime"
	"github.com/LukasBrandt/Loopline/internal/pkg/roles"
	"github.com/LukasBrandt/Loopline/internal/pkg/subscription"
)

// HttpRouter installs the provider-facing and operational routes.
type HttpRouter struct{}

func NewHttpRouter() HttpRouter {
	return HttpRouter{}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	db := database.GetDB()
	repos := repository.GetGlobalRepositories()

	svc := subscription.NewService(
		repos.User,
		repos.Profile,
		repos.Plan,
		roles.NewService(db),
		realtime.NewPublisher(db, cache.GetClient()),
		subscription.NewFiberLogger(),
	)
	webhookCtrl := controllers.NewWebhookController(
		env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		repos.WebhookEvent,
		svc,
	)

	app.Post(constants.WebhookRoute, webhookCtrl.HandleStripeWebhook)
	app.Get(constants.LivenessRoute, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
}

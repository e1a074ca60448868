package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/LukasBrandt/Loopline/app/controllers"
	"github.com/LukasBrandt/Loopline/app/repository"
	"github.com/LukasBrandt/Loopline/internal/pkg/constants"
	"github.com/LukasBrandt/Loopline/internal/pkg/middleware"
)

// ApiRouter installs the authenticated JSON API.
type ApiRouter struct{}

func NewApiRouter() ApiRouter {
	return ApiRouter{}
}

func (a ApiRouter) InstallRouter(app *fiber.App) {
	repos := repository.GetGlobalRepositories()
	userCtrl := controllers.NewAPIUserController(repos.User, repos.Plan)

	// Registered before the auth middleware; the stats are public.
	app.Get(constants.APIv1Prefix+"/stats", controllers.HandleGetStats)

	v1 := app.Group(constants.APIv1Prefix, middleware.APIKeyAuthMiddleware())
	v1.Get("/user/subscription", userCtrl.HandleGetSubscription)
}

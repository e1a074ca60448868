package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/LukasBrandt/Loopline/app/repository"
	"github.com/LukasBrandt/Loopline/internal/pkg/cache"
	"github.com/LukasBrandt/Loopline/internal/pkg/database"
	"github.com/LukasBrandt/Loopline/internal/pkg/env"
	"github.com/LukasBrandt/Loopline/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// init fiber app
	app := fiber.New(fiber.Config{
		// Webhook payloads are small; signature verification needs the whole
		// raw body in memory anyway.
		BodyLimit: 64 * 1024, // 64 KiB
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}

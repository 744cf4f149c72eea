package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/minisource/httpscheduler/internal/handler"
)

// Handlers contains every HTTP handler the router wires up.
type Handlers struct {
	Job    *handler.JobHandler
	Log    *handler.LogHandler
	Health *handler.HealthHandler
}

// SetupRouter configures the Fiber app's middleware and REST surface.
func SetupRouter(app *fiber.App, h *Handlers) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} - ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))

	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", h.Health.Health)
	app.Get("/ready", h.Health.Ready)
	app.Get("/live", h.Health.Live)

	api := app.Group("/api")

	jobs := api.Group("/jobs")
	jobs.Get("/stats", h.Job.GetStats)
	jobs.Get("/", h.Job.List)
	jobs.Post("/", h.Job.Create)
	jobs.Get("/:id", h.Job.Get)
	jobs.Put("/:id", h.Job.Update)
	jobs.Delete("/:id", h.Job.Delete)
	jobs.Put("/:id/toggle", h.Job.Toggle)
	jobs.Post("/:id/trigger", h.Job.Trigger)
	jobs.Get("/:id/logs", h.Log.ListByJob)

	logs := api.Group("/logs")
	logs.Get("/search", h.Log.Search)
	logs.Get("/stats", h.Log.Stats)
	logs.Get("/:id", h.Log.Get)
}

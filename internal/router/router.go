package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/classpoint/classpoint-api/internal/config"
	"github.com/classpoint/classpoint-api/internal/handler"
	"github.com/classpoint/classpoint-api/internal/middleware"
	"github.com/classpoint/classpoint-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	TaskHandler       *handler.TaskHandler
	SubmissionHandler *handler.SubmissionHandler
	ShopHandler       *handler.ShopHandler
	StudentHandler    *handler.StudentHandler
	UserHandler       *handler.UserHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	jwtProtected := middleware.JWTProtected(cfg.JWTSecret, cfg.JWTCookieName)

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		deps.AuthHandler.Register(auth)
		deps.AuthHandler.RegisterProtected(auth.Group("", jwtProtected))
	}

	if deps.TaskHandler != nil {
		deps.TaskHandler.Register(api.Group("/tasks", jwtProtected))
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions", jwtProtected))
	}
	if deps.ShopHandler != nil {
		deps.ShopHandler.Register(api.Group("/shop", jwtProtected))
	}
	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(api.Group("", jwtProtected))
	}
	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users", jwtProtected))
	}
}

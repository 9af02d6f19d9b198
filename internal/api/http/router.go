package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-service/internal/api/http/handlers"
	"github.com/spec-kit/task-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tasks          *handlers.TasksHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. Register and login are the only
// user-facing routes outside the auth middleware; everything task- or
// account-scoped requires a verified token.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	users := app.Group("/users")
	users.Post("/register", cfg.Users.Register)
	users.Post("/login", cfg.Users.Login)
	users.Get("/verify-token", cfg.AuthMiddleware.Require(), cfg.Users.VerifyToken)

	me := users.Group("/me", cfg.AuthMiddleware.Require())
	me.Get("/", cfg.Users.Me)
	me.Put("/", cfg.Users.UpdateMe)
	me.Put("/password", cfg.Users.ChangePassword)
	me.Delete("/", cfg.Users.DeleteMe)
	me.Get("/activity", cfg.Users.Activity)

	tasks := app.Group("/tasks", cfg.AuthMiddleware.Require())
	tasks.Post("/", cfg.Tasks.Create)
	tasks.Get("/", cfg.Tasks.List)
	tasks.Get("/:id", cfg.Tasks.Get)
	tasks.Put("/:id", cfg.Tasks.Update)
	tasks.Patch("/:id/complete", cfg.Tasks.Complete)
	tasks.Delete("/:id", cfg.Tasks.Delete)
}

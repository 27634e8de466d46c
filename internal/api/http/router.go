package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/api/http/handlers"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/auth"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Tasks          *handlers.TasksHandler
	Users          *handlers.UsersHandler
	Audit          *handlers.AuditHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Put("/:id", cfg.Tickets.Update)
	tickets.Patch("/:id", cfg.Tickets.Patch)
	tickets.Delete("/:id", cfg.Tickets.Delete)

	tasks := api.Group("/tasks")
	tasks.Post("/", cfg.Tasks.Create)
	tasks.Get("/", cfg.Tasks.List)
	tasks.Get("/:id", cfg.Tasks.Get)
	tasks.Put("/:id", cfg.Tasks.Update)
	tasks.Patch("/:id", cfg.Tasks.Patch)
	tasks.Delete("/:id", cfg.Tasks.Delete)

	users := api.Group("/users")
	users.Get("/", cfg.Users.List)
	users.Get("/:id", cfg.Users.Get)
	users.Patch("/:id", cfg.Users.Patch)

	audit := api.Group("/audit", auth.RequireRole(domain.RoleSuperAdmin))
	audit.Get("/", cfg.Audit.ListRecent)
	audit.Get("/actors/:id", cfg.Audit.ListByActor)
}

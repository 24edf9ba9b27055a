package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/helpdesk-api/internal/api/http/handlers"
	"github.com/supportdesk/helpdesk-api/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Users        *handlers.UsersHandler
	Tickets      *handlers.TicketsHandler
	Tasks        *handlers.TasksHandler
	Tokens       *auth.TokenManager
	UploadPrefix string
	UploadDir    string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/register", cfg.Users.Register)
	app.Post("/login", cfg.Users.Login)
	app.Post("/change-password", cfg.Users.ChangePassword)
	app.Get("/session", auth.RequireToken(cfg.Tokens), cfg.Users.Session)

	tickets := app.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.PatchTicket)
	tickets.Post("/:id/cancel", cfg.Tickets.CancelTicket)
	tickets.Get("/:id/history", cfg.Tickets.History)

	tasks := app.Group("/tasks")
	tasks.Post("/", cfg.Tasks.CreateTask)
	tasks.Get("/", cfg.Tasks.ListTasks)
	tasks.Get("/:id", cfg.Tasks.GetTask)
	tasks.Patch("/:id", cfg.Tasks.PatchTask)
	tasks.Put("/:id/completed", cfg.Tasks.SetCompleted)
	tasks.Delete("/:id", cfg.Tasks.DeleteTask)

	if cfg.UploadDir != "" {
		app.Static(cfg.UploadPrefix, cfg.UploadDir, fiber.Static{ByteRange: true})
	}
}

package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Technicians    *handlers.TechniciansHandler
	EmailAdmin     *handlers.EmailAdminHandler
	UsersAdmin     *handlers.UsersAdminHandler
	Catalog        *handlers.CatalogHandler
	AuthMiddleware *auth.AuthMiddleware
	Gatherer       prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", auth.RequireRole(domain.RoleEndUser), cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/transitions/:name", cfg.Tickets.ApplyTransition)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/candidates", auth.RequireStaff(), cfg.Tickets.Candidates)

	app.Get("/technicians", cfg.AuthMiddleware.Handle, auth.RequireStaff(), cfg.Technicians.ListTechnicians)
	app.Get("/reports/status", cfg.AuthMiddleware.Handle, auth.RequireStaff(), cfg.Technicians.StatusReport)
	app.Get("/departments", cfg.AuthMiddleware.Handle, cfg.Catalog.ListDepartments)
	app.Get("/ticket-categories", cfg.AuthMiddleware.Handle, cfg.Catalog.ListCategories)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleDSIAdmin))
	admin.Get("/email/settings", cfg.EmailAdmin.GetSettings)
	admin.Put("/email/settings", cfg.EmailAdmin.UpdateSettings)
	admin.Get("/email/templates", cfg.EmailAdmin.ListTemplates)
	admin.Post("/email/templates", cfg.EmailAdmin.CreateTemplate)
	admin.Put("/email/templates/:id", cfg.EmailAdmin.UpdateTemplate)
	admin.Delete("/email/templates/:id", cfg.EmailAdmin.DeleteTemplate)
	admin.Get("/email/rules", cfg.EmailAdmin.ListRules)
	admin.Put("/email/rules/:event", cfg.EmailAdmin.UpdateRule)
	admin.Get("/email/frequency", cfg.EmailAdmin.GetFrequency)
	admin.Put("/email/frequency", cfg.EmailAdmin.UpdateFrequency)
	admin.Post("/email/test", cfg.EmailAdmin.SendTestEmail)
	admin.Get("/email/logs", cfg.EmailAdmin.Logs)

	admin.Get("/users", cfg.UsersAdmin.ListUsers)
	admin.Post("/users", cfg.UsersAdmin.CreateUser)
	admin.Put("/users/:id", cfg.UsersAdmin.UpdateUser)

	admin.Post("/departments", cfg.Catalog.CreateDepartment)
	admin.Put("/departments/:id", cfg.Catalog.UpdateDepartment)
	admin.Post("/ticket-categories", cfg.Catalog.CreateCategory)
	admin.Put("/ticket-categories/:id", cfg.Catalog.UpdateCategory)
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-hub/internal/api/http/handlers"
	"github.com/spec-kit/request-hub/internal/auth"
	"github.com/spec-kit/request-hub/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Requests       *handlers.RequestsHandler
	AdminRequests  *handlers.AdminRequestsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password/reset/request", cfg.Users.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Users.ConfirmPasswordReset)

	session := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	session.Get("/me", cfg.Users.Me)
	session.Post("/password/change", cfg.Users.ChangePassword)

	requests := app.Group("/requests", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	requests.Get("/options", cfg.Requests.FormOptions)
	requests.Post("", auth.RequireRole(domain.RoleRequestor), cfg.Requests.CreateRequest)
	requests.Get("", cfg.Requests.ListRequests)
	requests.Get("/:id", cfg.Requests.GetRequest)
	requests.Patch("/:id", auth.RequireRole(domain.RoleRequestor), cfg.Requests.UpdateRequest)
	requests.Post("/:id/logs", cfg.Requests.AddStatusLog)
	requests.Get("/:id/logs", cfg.Requests.ListStatusLogs)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	notifications.Get("", cfg.Notifications.List)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Post("/users", cfg.Users.AdminCreateUser)
	admin.Patch("/users/:id/active", cfg.Users.AdminSetActive)
	admin.Get("/engineers", cfg.AdminRequests.ListEngineers)
	admin.Get("/requests", cfg.AdminRequests.ListRequests)
	admin.Get("/requests/export/csv", cfg.AdminRequests.ExportCSV)
	admin.Get("/requests/overdue/count", cfg.AdminRequests.OverdueCount)
	admin.Patch("/requests/:id", cfg.AdminRequests.UpdateRequest)
	admin.Delete("/requests/:id", cfg.AdminRequests.DeleteRequest)
	admin.Post("/requests/:id/nudge", cfg.AdminRequests.Nudge)
	admin.Get("/requests/:id/links/outlook", cfg.AdminRequests.OutlookLink)
	admin.Get("/requests/:id/links/teams", cfg.AdminRequests.TeamsLink)
	admin.Post("/sweep", cfg.AdminRequests.RunSweep)
}

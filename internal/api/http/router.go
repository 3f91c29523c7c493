package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asafe/user-service/internal/api/http/handlers"
	"github.com/asafe/user-service/internal/auth"
	"github.com/asafe/user-service/internal/domain"
	"github.com/asafe/user-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Uploads        *handlers.UploadHandler
	Notifications  *handlers.NotificationHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics

	// PublicBroadcast lets anonymous callers broadcast notifications.
	PublicBroadcast bool
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	authenticated := cfg.AuthMiddleware.Handle
	adminOnly := auth.RequireRole(domain.RoleAdmin)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	users := api.Group("/user")
	users.Post("/", authenticated, adminOnly, cfg.Users.Create)
	users.Get("/:id", authenticated, cfg.Users.Get)
	users.Put("/:id", authenticated, adminOnly, cfg.Users.Update)
	users.Delete("/:id", authenticated, adminOnly, cfg.Users.Delete)

	api.Post("/upload/profile", authenticated, cfg.Uploads.Profile)

	notifications := api.Group("/notification")
	notifications.Get("/", cfg.Notifications.Upgrade, cfg.Notifications.Subscribe())
	if cfg.PublicBroadcast {
		notifications.Post("/", cfg.Notifications.Broadcast)
	} else {
		notifications.Post("/", authenticated, cfg.Notifications.Broadcast)
	}
}

package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-arena/internal/config"
	"github.com/noah-isme/gema-arena/internal/handler"
	"github.com/noah-isme/gema-arena/internal/middleware"
	"github.com/noah-isme/gema-arena/internal/models"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler              *handler.AuthHandler
	UserHandler              *handler.UserHandler
	WorkspaceHandler         *handler.WorkspaceHandler
	SubmissionHandler        *handler.SubmissionHandler
	ShopHandler              *handler.ShopHandler
	AnnouncementHandler      *handler.AnnouncementHandler
	AdminChallengeHandler    *handler.AdminChallengeHandler
	AdminShopHandler         *handler.AdminShopHandler
	AdminAnnouncementHandler *handler.AdminAnnouncementHandler
	AdminUserHandler         *handler.AdminUserHandler
	AdminActivityHandler     *handler.AdminActivityHandler
	UploadHandler            *handler.UploadHandler
	AuthMiddleware           fiber.Handler
	AuthRateLimit            fiber.Handler
	HealthChecks             []handler.HealthDependency
	MetricsHandler           fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if deps.MetricsHandler != nil {
		app.Get("/metrics", deps.MetricsHandler)
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks...))

	if deps.AuthHandler != nil {
		deps.AuthHandler.RegisterPublic(api.Group("/auth"), deps.AuthRateLimit)
	}

	auth := deps.AuthMiddleware
	if auth == nil {
		auth = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Routes above answer before this point; everything below needs a session.
	secured := api.Group("", auth)

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(secured.Group("/auth"))
	}
	if deps.UserHandler != nil {
		deps.UserHandler.Register(secured)
	}
	if deps.WorkspaceHandler != nil {
		deps.WorkspaceHandler.Register(secured)
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(secured.Group("/submissions"))
	}
	if deps.ShopHandler != nil {
		deps.ShopHandler.Register(secured.Group("/shop"))
	}
	if deps.AnnouncementHandler != nil {
		deps.AnnouncementHandler.Register(secured.Group("/announcements"))
	}

	admin := secured.Group("/admin", middleware.RequireRole(string(models.RoleAdmin)))
	if deps.AdminChallengeHandler != nil {
		deps.AdminChallengeHandler.Register(admin.Group("/challenges"))
	}
	if deps.AdminShopHandler != nil {
		deps.AdminShopHandler.Register(admin.Group("/shop"))
	}
	if deps.AdminAnnouncementHandler != nil {
		deps.AdminAnnouncementHandler.Register(admin.Group("/announcements"))
	}
	if deps.AdminUserHandler != nil {
		deps.AdminUserHandler.Register(admin)
	}
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activities"))
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.Register(admin.Group("/shop/uploads"))
	}
}

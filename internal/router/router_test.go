package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-arena/internal/config"
	"github.com/noah-isme/gema-arena/internal/handler"
	"github.com/noah-isme/gema-arena/internal/middleware"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/router"
	"github.com/noah-isme/gema-arena/internal/utils"
)

type announcementStub struct{}

func (announcementStub) Published(context.Context) ([]models.Announcement, error) {
	return []models.Announcement{}, nil
}

// fakeAuth accepts the "student" and "admin" bearer tokens.
func fakeAuth(c *fiber.Ctx) error {
	switch middleware.BearerToken(c) {
	case "student":
		c.Locals(middleware.LocalUserID, "u1")
		c.Locals(middleware.LocalUserRole, "STUDENT")
	case "admin":
		c.Locals(middleware.LocalUserID, "a1")
		c.Locals(middleware.LocalUserRole, "ADMIN")
	default:
		return utils.SendRedirect(c, fiber.StatusUnauthorized, "authentication required", middleware.LoginPath)
	}
	return c.Next()
}

func newApp() *fiber.App {
	app := fiber.New()
	router.Register(app, config.Config{AppName: "GEMA Arena", AppEnv: "test"}, router.Dependencies{
		AnnouncementHandler: handler.NewAnnouncementHandler(announcementStub{}, zerolog.Nop()),
		AuthMiddleware:      fakeAuth,
	})
	return app
}

func request(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestHealthIsPublic(t *testing.T) {
	resp := request(t, newApp(), "/api/v1/health", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "GEMA Arena", resp.Header.Get("X-Application"))
}

func TestStudentRoutesNeedSession(t *testing.T) {
	app := newApp()

	require.Equal(t, fiber.StatusUnauthorized, request(t, app, "/api/v1/announcements", "").StatusCode)
	require.Equal(t, fiber.StatusOK, request(t, app, "/api/v1/announcements", "student").StatusCode)
}

func TestAdminRoutesNeedAdminRole(t *testing.T) {
	app := newApp()

	require.Equal(t, fiber.StatusForbidden, request(t, app, "/api/v1/admin/anything", "student").StatusCode)
	require.Equal(t, fiber.StatusNotFound, request(t, app, "/api/v1/admin/anything", "admin").StatusCode)
}

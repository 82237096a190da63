package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-arena/internal/utils"
)

// RequireRole ensures that the authenticated user possesses one of the
// allowed roles. Others are sent back to the dashboard.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := strings.ToUpper(strings.TrimSpace(role))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(LocalUserRole).(string)
		if _, ok := allowed[strings.ToUpper(strings.TrimSpace(role))]; !ok {
			return utils.SendRedirect(c, fiber.StatusForbidden, "insufficient permissions", DashboardPath)
		}
		return c.Next()
	}
}

package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/service"
	"github.com/noah-isme/gema-arena/internal/session"
	"github.com/noah-isme/gema-arena/internal/utils"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

// Locals keys set by WithAuth.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
	LocalUserName = "user_name"
	LocalToken    = "access_token"

	LocalCookieSecure = "cookie_secure"
)

// Redirect targets returned with auth failures.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// SessionResolver maps access tokens to principals.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (service.Principal, error)
	Invalidate(ctx context.Context, token string)
}

// AuthOptions configures the WithAuth middleware.
type AuthOptions struct {
	Secret       string
	CookieSecure bool
	Logger       zerolog.Logger
	Now          func() time.Time
}

// WithAuth authenticates the request from the bearer header or the token
// cookie. Rejected sessions clear the cookie and point the client to the
// login page.
func WithAuth(resolver SessionResolver, opts AuthOptions) fiber.Handler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return func(c *fiber.Ctx) error {
		c.Locals(LocalCookieSecure, opts.CookieSecure)

		token := BearerToken(c)
		if token == "" {
			return utils.SendRedirect(c, fiber.StatusUnauthorized, "authentication required", LoginPath)
		}

		claims, err := inspectToken(token, opts.Secret, now())
		if err != nil {
			return reject(c, opts, "session expired")
		}

		principal, err := resolver.Resolve(c.UserContext(), token)
		switch {
		case err == nil:
		case arena.IsUnauthorized(err), errors.Is(err, session.ErrNoSession):
			resolver.Invalidate(c.UserContext(), token)
			return reject(c, opts, "session expired")
		default:
			opts.Logger.Error().Err(err).Str("correlation_id", GetCorrelationID(c)).Msg("failed to resolve session")
			return utils.SendError(c, fiber.StatusBadGateway, "unable to verify session")
		}

		if claims.Subject != "" && principal.UserID != "" && claims.Subject != principal.UserID {
			opts.Logger.Warn().Str("correlation_id", GetCorrelationID(c)).Msg("token subject does not match session")
			return reject(c, opts, "session expired")
		}

		c.Locals(LocalUserID, principal.UserID)
		c.Locals(LocalUserRole, string(principal.Role))
		c.Locals(LocalUserName, principal.Name)
		c.Locals(LocalToken, token)
		c.SetUserContext(arena.WithToken(c.UserContext(), token))

		return c.Next()
	}
}

func reject(c *fiber.Ctx, opts AuthOptions, message string) error {
	ExpireTokenCookie(c, opts.CookieSecure)
	return utils.SendRedirect(c, fiber.StatusUnauthorized, message, LoginPath)
}

// SetTokenCookie stores the access token in the session cookie.
func SetTokenCookie(c *fiber.Ctx, token string, ttl time.Duration, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ExpireTokenCookie clears the session cookie.
func ExpireTokenCookie(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// CookieSecure reports the configured Secure flag of the session cookie. It
// falls back to the request scheme on routes WithAuth does not guard.
func CookieSecure(c *fiber.Ctx) bool {
	if secure, ok := c.Locals(LocalCookieSecure).(bool); ok {
		return secure
	}
	return c.Secure()
}

// UserID returns the authenticated user id of the request.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// Token returns the access token of the authenticated request.
func Token(c *fiber.Ctx) string {
	token, _ := c.Locals(LocalToken).(string)
	return token
}

// Actor returns the authenticated user as an audit actor.
func Actor(c *fiber.Ctx) service.ActivityActor {
	role, _ := c.Locals(LocalUserRole).(string)
	name, _ := c.Locals(LocalUserName).(string)
	return service.ActivityActor{ID: UserID(c), Name: name, Role: role}
}

package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/middleware"
	"github.com/noah-isme/gema-arena/internal/service"
	"github.com/noah-isme/gema-arena/internal/utils"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

// CookieOptions controls the session cookie written on login.
type CookieOptions struct {
	TTL    time.Duration
	Secure bool
}

// AuthHandler serves login, registration and logout.
type AuthHandler struct {
	service service.AuthService
	cookie  CookieOptions
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, cookie CookieOptions, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		cookie:  cookie,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPublic binds the routes reachable without a session. attempts, when
// set, throttles login and registration.
func (h *AuthHandler) RegisterPublic(router fiber.Router, attempts fiber.Handler) {
	if attempts != nil {
		router.Post("/login", attempts, h.login)
		router.Post("/register", attempts, h.register)
	} else {
		router.Post("/login", h.login)
		router.Post("/register", h.register)
	}
	router.Post("/logout", h.logout)
}

// Register binds the routes that need a session.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Get("/me", h.me)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Login(requestContext(c), payload)
	if err != nil {
		return h.authError(c, err, "failed to sign in")
	}

	middleware.SetTokenCookie(c, result.AccessToken, h.cookie.TTL, h.cookie.Secure)
	requestLogger(h.logger, c).Info().Str("user_id", result.User.ID).Msg("user signed in")
	return utils.SendSuccess(c, "signed in", result)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Register(requestContext(c), payload)
	if err != nil {
		return h.authError(c, err, "failed to register")
	}

	middleware.SetTokenCookie(c, result.AccessToken, h.cookie.TTL, h.cookie.Secure)
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "account created", result)
}

// logout always clears the cookie, even when the session was already gone.
func (h *AuthHandler) logout(c *fiber.Ctx) error {
	token := middleware.BearerToken(c)
	if err := h.service.Logout(requestContext(c), token); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to drop session on logout")
	}
	middleware.ExpireTokenCookie(c, h.cookie.Secure)
	return utils.SendSuccess(c, "signed out", fiber.Map{"redirect": middleware.LoginPath})
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	user, err := h.service.Me(requestContext(c), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load profile")
	}
	return utils.SendSuccess(c, "current user", user)
}

// authError keeps upstream 401s on the login form instead of redirecting.
func (h *AuthHandler) authError(c *fiber.Ctx, err error, fallback string) error {
	if isValidationError(err) {
		return sendValidation(c, err)
	}
	if arena.IsUnauthorized(err) {
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid student id or password")
	}
	return respondError(c, h.logger, err, fallback)
}

package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/middleware"
	"github.com/noah-isme/gema-arena/internal/service"
	"github.com/noah-isme/gema-arena/internal/utils"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

// listRequest reads the page and limit query parameters.
func listRequest(c *fiber.Ctx) (dto.ListRequest, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return dto.ListRequest{}, errors.New("invalid page")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return dto.ListRequest{}, errors.New("invalid limit")
	}
	return dto.ListRequest{Page: page, Limit: limit}, nil
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func sendValidation(c *fiber.Ctx, err error) error {
	return utils.Fail(c, fiber.StatusBadRequest, "validation failed", dto.ValidationDetails(err))
}

// respondError maps service and upstream failures to responses. Rejected
// sessions clear the cookie and point to the login page; role mismatches
// point back to the dashboard.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	log := requestLogger(logger, c)

	switch {
	case isValidationError(err):
		return sendValidation(c, err)
	case errors.Is(err, service.ErrWorkspaceClosed):
		return utils.SendError(c, fiber.StatusConflict, "workspace closed, reload it")
	case errors.Is(err, service.ErrActivityLogDisabled):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrUploadStorageDisabled):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUploadTypeNotAllowed), errors.Is(err, service.ErrRedemptionCodeRequired):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if notice, ok := service.UnavailableNotice(err); ok {
		return utils.SendNotice(c, notice, nil)
	}

	if apiErr, ok := arena.AsAPIError(err); ok {
		switch {
		case apiErr.StatusCode == fiber.StatusUnauthorized:
			middleware.ExpireTokenCookie(c, middleware.CookieSecure(c))
			return utils.SendRedirect(c, fiber.StatusUnauthorized, "session expired, please sign in again", middleware.LoginPath)
		case apiErr.StatusCode == fiber.StatusForbidden:
			return utils.SendRedirect(c, fiber.StatusForbidden, apiErr.Message, middleware.DashboardPath)
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return utils.SendError(c, apiErr.StatusCode, apiErr.Message)
		default:
			log.Error().Err(err).Int("upstream_status", apiErr.StatusCode).Msg(fallback)
			return utils.SendError(c, fiber.StatusBadGateway, "arena is unavailable, try again later")
		}
	}

	if errors.Is(err, arena.ErrUnreachable) {
		log.Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusBadGateway, "arena is unavailable, try again later")
	}

	log.Error().Err(err).Msg(fallback)
	return utils.SendError(c, fiber.StatusInternalServerError, fallback)
}

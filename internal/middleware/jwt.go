package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// TokenCookie is the cookie carrying the access token.
const TokenCookie = "token"

var errTokenRejected = errors.New("invalid token")

// tokenClaims is what the portal reads from an access token before asking
// the arena backend about it.
type tokenClaims struct {
	Subject string
	Role    string
}

// BearerToken returns the access token of the request: the Authorization
// header first, then the token cookie.
func BearerToken(c *fiber.Ctx) string {
	authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	const bearer = "bearer "
	if len(authorization) > len(bearer) && strings.EqualFold(authorization[:len(bearer)], bearer) {
		return strings.TrimSpace(authorization[len(bearer):])
	}
	return strings.TrimSpace(c.Cookies(TokenCookie))
}

// inspectToken reads the claims of token. With a secret the HMAC signature is
// verified; without one the token is only decoded and the backend stays the
// authority. Expired tokens are rejected either way.
func inspectToken(token, secret string, now time.Time) (tokenClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithTimeFunc(func() time.Time { return now }))

	var err error
	if secret != "" {
		_, err = parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
	} else {
		_, _, err = parser.ParseUnverified(token, claims)
		if err == nil {
			if exp, expErr := claims.GetExpirationTime(); expErr == nil && exp != nil && !now.Before(exp.Time) {
				err = jwt.ErrTokenExpired
			}
		}
	}
	if err != nil {
		return tokenClaims{}, fmt.Errorf("%w: %v", errTokenRejected, err)
	}

	return tokenClaims{
		Subject: claimString(claims, "sub", "userId", "id"),
		Role:    normalizeRole(claims["role"]),
	}, nil
}

func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		switch v := claims[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToUpper(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
				return strings.ToUpper(strings.TrimSpace(str))
			}
		}
	}
	return ""
}

package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/task-service/pkg/util"
)

const (
	userIDKey        = "auth_user_id"
	authenticatedKey = "auth_authenticated"

	// FallbackTokenHeader is accepted when no Authorization header is sent.
	FallbackTokenHeader = "x-access-token"

	missingTokenHint = "Send token as: Authorization: Bearer <token> or x-access-token header"
)

// Middleware validates bearer tokens and attaches the caller identity to
// the request context. Tokens are self-contained; no store lookup happens
// per request.
type Middleware struct {
	tokens *TokenManager
}

// NewMiddleware constructs middleware around a token manager.
func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// Require rejects unauthenticated requests before the downstream handler
// runs. Expired tokens are reported distinctly from invalid ones.
func (m *Middleware) Require() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := ExtractToken(c)
		if token == "" {
			return apperrors.NewUnauthorizedWithHint(
				"No token provided. Please include authorization token in headers.",
				missingTokenHint,
			)
		}

		claims, err := m.tokens.Parse(token)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				return apperrors.NewTokenExpired()
			case errors.Is(err, ErrTokenMalformed):
				return apperrors.NewUnauthorized("Malformed token")
			default:
				return apperrors.NewUnauthorized("Invalid token")
			}
		}

		c.Locals(userIDKey, claims.UserID())
		c.Locals(authenticatedKey, true)
		return c.Next()
	}
}

// Optional performs the same extraction and verification but never rejects;
// downstream handlers decide whether identity is required.
func (m *Middleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(authenticatedKey, false)

		if token := ExtractToken(c); token != "" {
			if claims, err := m.tokens.Parse(token); err == nil {
				c.Locals(userIDKey, claims.UserID())
				c.Locals(authenticatedKey, true)
			}
		}
		return c.Next()
	}
}

// ExtractToken pulls the bearer token from the Authorization header or the
// fallback custom header. Empty string means no token was supplied.
func ExtractToken(c *fiber.Ctx) string {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(c.Get(FallbackTokenHeader))
}

// UserIDFromContext retrieves the authenticated user id.
func UserIDFromContext(c *fiber.Ctx) (string, bool) {
	val := c.Locals(userIDKey)
	if val == nil {
		return "", false
	}
	id, ok := val.(string)
	return id, ok && id != ""
}

// IsAuthenticated reports whether the request carries a verified identity.
func IsAuthenticated(c *fiber.Ctx) bool {
	val, ok := c.Locals(authenticatedKey).(bool)
	return ok && val
}

package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/lumichat/lumichat/internal/pkg/auth"
	"github.com/lumichat/lumichat/internal/pkg/cache"
)

const (
	KeyUserID   = "user_id"
	KeyUserRole = "user_role"
)

// TokenCacheKey is the Redis mirror for an issued token; logout or expiry
// deletes it, invalidating the JWT before its own expiry.
func TokenCacheKey(email string) string {
	return "auth:token:" + email
}

// RequireAuth resolves the bearer token (Authorization header or token
// cookie), validates it against the signing key and the Redis mirror, and
// stores the user identity in request locals.
func RequireAuth(c *fiber.Ctx) error {
	token := strings.TrimSpace(strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer"))
	if token == "" {
		token = c.Cookies("token")
	}
	if token == "" {
		return unauthorized(c)
	}

	claims, err := auth.ParseToken(token)
	if err != nil {
		return unauthorized(c)
	}

	stored, err := cache.Get(TokenCacheKey(claims.Email))
	if err != nil || stored != token {
		return unauthorized(c)
	}

	c.Locals(KeyUserID, claims.UserID)
	c.Locals(KeyUserRole, claims.Role)
	return c.Next()
}

// UserID returns the authenticated user id set by RequireAuth.
func UserID(c *fiber.Ctx) uint {
	if id, ok := c.Locals(KeyUserID).(uint); ok {
		return id
	}
	return 0
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status":  "Fail",
		"message": "login required",
		"data":    nil,
	})
}

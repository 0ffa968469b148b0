package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"projectflow/config"
	"projectflow/models"
	"projectflow/services"
	"projectflow/store"
	"projectflow/utils"
)

// UserLoader is the lookup Protected needs to resolve a token's subject.
type UserLoader interface {
	FindUserByID(ctx context.Context, id uuid.UUID, opts store.ReadOptions) (*models.User, error)
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(services.Fail(services.CodeInvalidToken, message))
}

// Protected admits requests carrying a valid access token for an active user
// and stores that user in Locals.
func Protected(users UserLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Try to get token from Authorization header first
		var token string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return unauthorized(c, "Invalid authorization format")
			}
			token = tokenParts[1]
		} else {
			// Fall back to cookie if header not present
			token = c.Cookies("access_token")
			if token == "" {
				return unauthorized(c, "Authorization required")
			}
		}

		claims, err := utils.ParseSessionToken(config.AppConfig.JWTSecret, token, utils.TokenTypeAccess)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		user, err := users.FindUserByID(c.UserContext(), claims.UserID, store.ReadOptions{IncludeDeleted: true})
		if errors.Is(err, store.ErrNotFound) {
			return unauthorized(c, "User not found")
		}
		if err != nil {
			r := services.FromError(err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(r)
		}

		if !user.Active() {
			return c.Status(fiber.StatusForbidden).JSON(services.Fail(services.CodeAccountInactive, "Account is not active"))
		}

		// Password changes bump the version and invalidate older tokens
		if claims.TokenVersion != user.Credentials.TokenVersion {
			return unauthorized(c, "Invalid token version")
		}

		c.Locals("user", user)
		c.Locals("userID", user.ID)
		return c.Next()
	}
}

// CurrentUser returns the user stored by Protected.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

// CurrentUserID returns the id stored by Protected, or uuid.Nil.
func CurrentUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals("userID").(uuid.UUID)
	return id
}

// RequireRole admits only users whose account role matches. Use after Protected.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || user.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(services.Fail(services.CodeForbidden, "Insufficient permissions"))
		}
		return c.Next()
	}
}

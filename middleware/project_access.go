package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"projectflow/models"
	"projectflow/services"
	"projectflow/store"
	"projectflow/utils"
)

// ProjectAuthorizer resolves the project behind a record and checks the caller's rights on it.
type ProjectAuthorizer interface {
	Authorize(ctx context.Context, userID uuid.UUID, kind models.EntityKind, id uuid.UUID, perm store.Permission) error
}

// RequireProjectPermission admits the request when the caller holds perm on the
// project owning the :id record of kind. Administrators are always admitted.
// Use after Protected.
func RequireProjectPermission(acl ProjectAuthorizer, kind models.EntityKind, perm store.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return unauthorized(c, "Authorization required")
		}
		if user.Role == models.AdminRole {
			return c.Next()
		}

		id, err := utils.ParseUUIDParam(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(services.Fail(services.CodeInvalidInput, err.Error()))
		}

		if err := acl.Authorize(c.UserContext(), user.ID, kind, id, perm); err != nil {
			r := services.FromError(err)
			status := fiber.StatusInternalServerError
			switch {
			case errors.Is(err, store.ErrForbidden):
				status = fiber.StatusForbidden
			case errors.Is(err, store.ErrNotFound):
				status = fiber.StatusNotFound
			case errors.Is(err, store.ErrInvalidInput):
				status = fiber.StatusBadRequest
			case r.Code == services.CodeServiceUnavailable:
				status = fiber.StatusServiceUnavailable
			}
			return c.Status(status).JSON(r)
		}
		return c.Next()
	}
}

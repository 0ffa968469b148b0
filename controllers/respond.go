package controller

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"projectflow/middleware"
	"projectflow/models"
	"projectflow/services"
	"projectflow/store"
)

func statusFor(code services.Code) int {
	switch code {
	case services.CodeOK:
		return fiber.StatusOK
	case services.CodeInvalidInput, services.CodeInvalidToken:
		return fiber.StatusBadRequest
	case services.CodeInvalidCredentials, services.CodeTwoFactorRequired:
		return fiber.StatusUnauthorized
	case services.CodeAccountInactive, services.CodeForbidden:
		return fiber.StatusForbidden
	case services.CodeNotFound:
		return fiber.StatusNotFound
	case services.CodeConflict, services.CodeEmailTaken:
		return fiber.StatusConflict
	case services.CodeAccountLocked:
		return fiber.StatusLocked
	case services.CodeRateLimited:
		return fiber.StatusTooManyRequests
	case services.CodeServiceUnavailable:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func respond(c *fiber.Ctx, r *services.Result) error {
	return c.Status(statusFor(r.Code)).JSON(r)
}

func ok(c *fiber.Ctx, message string, data interface{}) error {
	return respond(c, services.OK(message, data))
}

func created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(services.OK(message, data))
}

func badRequest(c *fiber.Ctx, message string, errs ...string) error {
	return respond(c, services.Fail(services.CodeInvalidInput, message, errs...))
}

func storeFailure(c *fiber.Ctx, err error) error {
	return respond(c, services.FromError(err))
}

// readOptions honours ?include_deleted=true for administrators only.
func readOptions(c *fiber.Ctx) store.ReadOptions {
	include, _ := strconv.ParseBool(c.Query("include_deleted"))
	user := middleware.CurrentUser(c)
	return store.ReadOptions{IncludeDeleted: include && user != nil && user.Role == models.AdminRole}
}

// restoreBase keeps identity fields that a request body must not change.
func restoreBase(e models.Entity, base models.Base) {
	*models.BaseOf(e) = base
}

package controller

import (
	"github.com/gofiber/fiber/v2"

	"projectflow/middleware"
	"projectflow/models"
	"projectflow/store"
	"projectflow/utils"
)

// UserController holds the administrator account endpoints.
type UserController struct {
	Store *store.Store
}

func NewUserController(s *store.Store) *UserController {
	return &UserController{Store: s}
}

func (uc *UserController) GetUser(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	user, err := uc.Store.FindUserByID(c.UserContext(), id, readOptions(c))
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", user)
}

func (uc *UserController) DeactivateUser(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if id == middleware.CurrentUserID(c) {
		return badRequest(c, "You cannot deactivate your own account")
	}
	if err := uc.Store.DeactivateUser(c.UserContext(), middleware.CurrentUserID(c), id); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "User deactivated successfully", nil)
}

// ListUserActivity returns audit entries for one user record.
func (uc *UserController) ListUserActivity(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	logs, err := uc.Store.ListActivity(c.UserContext(), store.ActivityFilter{
		EntityType: models.KindUser,
		EntityID:   &id,
		Limit:      c.QueryInt("limit", 100),
	})
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", logs)
}

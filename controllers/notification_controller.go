package controller

import (
	"github.com/gofiber/fiber/v2"

	"projectflow/middleware"
	"projectflow/store"
	"projectflow/utils"
)

type NotificationController struct {
	Store *store.Store
}

func NewNotificationController(s *store.Store) *NotificationController {
	return &NotificationController{Store: s}
}

// ListNotifications returns the caller's notifications; ?unread=true keeps unread ones only.
func (nc *NotificationController) ListNotifications(c *fiber.Ctx) error {
	list, err := nc.Store.ListNotifications(c.UserContext(), middleware.CurrentUserID(c), c.QueryBool("unread"), readOptions(c))
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "", list)
}

func (nc *NotificationController) MarkRead(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	n, err := nc.Store.MarkRead(c.UserContext(), middleware.CurrentUserID(c), id)
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Notification marked as read", n)
}

func (nc *NotificationController) MarkAllRead(c *fiber.Ctx) error {
	count, err := nc.Store.MarkAllRead(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "All notifications marked as read", fiber.Map{"updated": count})
}

func (nc *NotificationController) DeleteNotification(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := nc.Store.DeleteNotification(c.UserContext(), middleware.CurrentUserID(c), id); err != nil {
		return storeFailure(c, err)
	}
	return ok(c, "Notification deleted successfully", nil)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"makiti/internal/services"
	"makiti/internal/validate"
)

type NotificationHandler struct {
	Notifications *services.NotificationService
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	list, err := h.Notifications.List(c.UserContext(), principal(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"notifications": list})
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	n, err := h.Notifications.UnreadCount(c.UserContext(), principal(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": n})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", "invalid notification id")
	}
	if err := h.Notifications.MarkRead(c.UserContext(), principal(c), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	n, err := h.Notifications.MarkAllRead(c.UserContext(), principal(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "All notifications marked as read", "updated": n})
}

func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", "invalid notification id")
	}
	if err := h.Notifications.Delete(c.UserContext(), principal(c), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification deleted"})
}

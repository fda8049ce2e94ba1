package handlers

import (
	"github.com/gofiber/fiber/v2"

	"makiti/internal/services"
)

// AuthHandler exposes the caller's identity as this service sees it.
type AuthHandler struct {
	Users services.IdentityStore
}

// GET /me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	u, err := h.Users.GetUser(c.UserContext(), principal(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

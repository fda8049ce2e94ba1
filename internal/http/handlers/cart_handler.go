package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "makiti/internal/log"
	"makiti/internal/services"
	"makiti/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

type cartLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	cv, err := h.Cart.View(c.UserContext(), principal(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(cv)
}

// POST /cart/add
func (h *CartHandler) Add(c *fiber.Ctx) error {
	var req cartLineRequest
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	pid, ok := validate.ID(req.ProductID)
	if !ok {
		return invalid(c, "product_id", "invalid product_id")
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if !validate.Qty(req.Quantity) {
		return invalid(c, "quantity", "quantity must be between 1 and 99")
	}
	p := principal(c)
	if err := h.Cart.Add(c.UserContext(), p.UserID, pid, req.Quantity); err != nil {
		return fail(c, err)
	}
	applog.Info(c, "cart.add", map[string]any{"user_id": p.UserID, "product_id": pid, "qty": req.Quantity})
	return h.View(c)
}

// PUT /cart/update; a quantity of 0 removes the line.
func (h *CartHandler) Update(c *fiber.Ctx) error {
	var req cartLineRequest
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	pid, ok := validate.ID(req.ProductID)
	if !ok {
		return invalid(c, "product_id", "invalid product_id")
	}
	if req.Quantity > validate.MaxQty {
		return invalid(c, "quantity", "quantity must be at most 99")
	}
	if err := h.Cart.Update(c.UserContext(), principal(c).UserID, pid, req.Quantity); err != nil {
		return fail(c, err)
	}
	return h.View(c)
}

// DELETE /cart/remove/:productId
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	pid, ok := validate.ID(c.Params("productId"))
	if !ok {
		return invalid(c, "productId", "invalid productId")
	}
	if err := h.Cart.Remove(c.UserContext(), principal(c).UserID, pid); err != nil {
		return fail(c, err)
	}
	return h.View(c)
}

// DELETE /cart/clear
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	if err := h.Cart.Clear(c.UserContext(), principal(c).UserID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Cart cleared"})
}

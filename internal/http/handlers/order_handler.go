package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"makiti/internal/domain"
	applog "makiti/internal/log"
	"makiti/internal/services"
	"makiti/internal/validate"
)

type OrderHandler struct {
	Checkout *services.CheckoutService
	Orders   *services.OrderService
}

// POST /checkout
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	var req services.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	addr := &req.ShippingAddress
	var ok bool
	if addr.FullName, ok = validate.Optional(addr.FullName, 100); !ok {
		return invalid(c, "full_name", "full_name is too long")
	}
	if addr.Address, ok = validate.Optional(addr.Address, 200); !ok {
		return invalid(c, "address", "address is too long")
	}
	if addr.City, ok = validate.Optional(addr.City, 100); !ok {
		return invalid(c, "city", "city is too long")
	}
	if addr.PostalCode, ok = validate.PostalCode(addr.PostalCode); !ok {
		return invalid(c, "postal_code", "invalid postal_code")
	}
	if addr.Phone != "" {
		if addr.Phone, ok = validate.Phone(addr.Phone); !ok {
			return invalid(c, "phone", "invalid phone")
		}
	}
	req.DeliveryMethod = strings.ToLower(strings.TrimSpace(req.DeliveryMethod))

	p := principal(c)
	res, err := h.Checkout.Checkout(c.UserContext(), p, req)
	if err != nil {
		applog.Security(c, "checkout.fail", map[string]any{"user_id": p.UserID, "kind": string(domain.CodeOf(err))})
		return fail(c, err)
	}
	applog.Audit(c, "checkout.place", map[string]any{"user_id": p.UserID, "order_id": res.OrderID, "total": res.Total})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Order placed successfully",
		"order_id": res.OrderID,
		"total":    res.Total,
	})
}

// GET /orders/history
func (h *OrderHandler) History(c *fiber.Ctx) error {
	orders, err := h.Orders.History(c.UserContext(), principal(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"orders": orders})
}

// GET /orders/:id
func (h *OrderHandler) View(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", "invalid order id")
	}
	p := principal(c)
	o, err := h.Orders.Get(c.UserContext(), p, id)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeForbidden) {
			applog.Security(c, "access.denied.order", map[string]any{"order_id": id, "user_id": p.UserID})
		}
		return fail(c, err)
	}
	return c.JSON(o)
}

// PUT /orders/:id/status takes {"status": ...} or ?new_status=.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", "invalid order id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return invalid(c, "body", "invalid request body")
		}
	}
	status := strings.TrimSpace(body.Status)
	if status == "" {
		status = strings.TrimSpace(c.Query("new_status"))
	}
	if status == "" {
		return invalid(c, "status", "status is required")
	}

	p := principal(c)
	o, err := h.Orders.UpdateStatus(c.UserContext(), p, id, domain.OrderStatus(strings.ToLower(status)))
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeForbidden) {
			applog.Security(c, "access.denied.order_status", map[string]any{"order_id": id, "user_id": p.UserID})
		}
		return fail(c, err)
	}
	applog.Audit(c, "order.status.update", map[string]any{"order_id": id, "status": string(o.Status), "by": p.UserID})
	return c.JSON(fiber.Map{"message": "Order status updated", "order": o})
}

// GET /seller/orders
func (h *OrderHandler) SellerOrders(c *fiber.Ctx) error {
	views, err := h.Orders.SellerOrders(c.UserContext(), principal(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"orders": views})
}

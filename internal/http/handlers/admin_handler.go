package handlers

import (
	"github.com/gofiber/fiber/v2"

	"makiti/internal/domain"
	applog "makiti/internal/log"
	"makiti/internal/services"
	"makiti/internal/validate"
)

// AdminHandler serves the seller-approval queue.
type AdminHandler struct {
	Approval *services.ApprovalService
}

// GET /admin/seller-requests
func (h *AdminHandler) PendingRequests(c *fiber.Ctx) error {
	apps, err := h.Approval.ListPending(c.UserContext(), principal(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"requests": apps})
}

// PUT /admin/seller-requests/:userId
func (h *AdminHandler) Decide(c *fiber.Ctx) error {
	userID, ok := validate.ID(c.Params("userId"))
	if !ok {
		return invalid(c, "userId", "invalid userId")
	}
	var body struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	reason, ok := validate.Optional(body.Reason, 500)
	if !ok {
		return invalid(c, "reason", "reason is limited to 500 characters")
	}

	p := principal(c)
	req, err := h.Approval.Decide(c.UserContext(), p, userID, domain.ApprovalAction(body.Action), reason)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "seller.request.decide", map[string]any{
		"user_id": userID, "request_id": req.ID, "status": string(req.Status), "by": p.UserID,
	})
	return c.JSON(fiber.Map{"message": "Seller request " + string(req.Status), "request": req})
}

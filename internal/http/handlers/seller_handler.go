package handlers

import (
	"github.com/gofiber/fiber/v2"

	"makiti/internal/domain"
	applog "makiti/internal/log"
	"makiti/internal/services"
	"makiti/internal/validate"
)

type SellerHandler struct {
	Approval *services.ApprovalService
}

type sellerRequestBody struct {
	domain.BusinessInfo
	domain.DocumentRef
}

// POST /seller/request
func (h *SellerHandler) Submit(c *fiber.Ctx) error {
	var body sellerRequestBody
	if err := c.BodyParser(&body); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	var ok bool
	if body.Name, ok = validate.Optional(body.Name, 100); !ok {
		return invalid(c, "business_name", "business_name is too long")
	}
	if body.Description, ok = validate.Optional(body.Description, 1000); !ok {
		return invalid(c, "business_description", "business_description is too long")
	}
	if body.Address, ok = validate.Optional(body.Address, 200); !ok {
		return invalid(c, "business_address", "business_address is too long")
	}
	if body.Phone != "" {
		if body.Phone, ok = validate.Phone(body.Phone); !ok {
			return invalid(c, "business_phone", "invalid business_phone")
		}
	}
	if body.URL != "" {
		if body.URL, ok = validate.DocumentURL(body.URL); !ok {
			return invalid(c, "document_url", "document_url must be an http(s) URL")
		}
	}

	p := principal(c)
	req, err := h.Approval.Submit(c.UserContext(), p, body.BusinessInfo, body.DocumentRef)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "seller.request.submit", map[string]any{"user_id": p.UserID, "request_id": req.ID})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Seller request submitted", "request": req})
}

// GET /seller/request/status
func (h *SellerHandler) Status(c *fiber.Ctx) error {
	view, err := h.Approval.Status(c.UserContext(), principal(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(view)
}

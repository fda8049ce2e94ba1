package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "makiti/internal/log"
	"makiti/internal/services"
	"makiti/internal/validate"
)

type ReviewHandler struct {
	Reviews *services.ReviewService
}

// POST /reviews
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	var in services.ReviewInput
	if err := c.BodyParser(&in); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	var ok bool
	if in.OrderID, ok = validate.ID(in.OrderID); !ok {
		return invalid(c, "order_id", "invalid order_id")
	}
	if in.SellerID, ok = validate.ID(in.SellerID); !ok {
		return invalid(c, "seller_id", "invalid seller_id")
	}
	if in.ProductID != "" {
		if in.ProductID, ok = validate.ID(in.ProductID); !ok {
			return invalid(c, "product_id", "invalid product_id")
		}
	}

	p := principal(c)
	rv, err := h.Reviews.Create(c.UserContext(), p, in)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "review.create", map[string]any{"review_id": rv.ID, "seller_id": rv.SellerID, "rating": rv.Rating})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Review submitted", "review": rv})
}

// POST /reviews/:id/reply
func (h *ReviewHandler) Reply(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", "invalid review id")
	}
	var body struct {
		Reply string `json:"reply"`
	}
	if err := c.BodyParser(&body); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	rv, err := h.Reviews.Reply(c.UserContext(), principal(c), id, body.Reply)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Reply saved", "review": rv})
}

// GET /reviews/seller/:sellerId
func (h *ReviewHandler) BySeller(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("sellerId"))
	if !ok {
		return invalid(c, "sellerId", "invalid sellerId")
	}
	list, err := h.Reviews.SellerReviews(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(list)
}

// GET /reviews/product/:productId
func (h *ReviewHandler) ByProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("productId"))
	if !ok {
		return invalid(c, "productId", "invalid productId")
	}
	list, err := h.Reviews.ProductReviews(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(list)
}

// GET /reviews/order/:orderId
func (h *ReviewHandler) ByOrder(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("orderId"))
	if !ok {
		return invalid(c, "orderId", "invalid orderId")
	}
	list, err := h.Reviews.OrderReviews(c.UserContext(), principal(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"reviews": list})
}

// GET /reviews/can-review/:orderId
func (h *ReviewHandler) CanReview(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("orderId"))
	if !ok {
		return invalid(c, "orderId", "invalid orderId")
	}
	view, err := h.Reviews.CanReview(c.UserContext(), principal(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(view)
}

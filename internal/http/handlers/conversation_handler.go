package handlers

import (
	"github.com/gofiber/fiber/v2"

	"makiti/internal/domain"
	applog "makiti/internal/log"
	"makiti/internal/services"
	"makiti/internal/validate"
)

type ConversationHandler struct {
	Messaging *services.MessagingService
}

func conversationID(c *fiber.Ctx) (string, bool) {
	return validate.ID(c.Params("id"))
}

// POST /conversations/start/:sellerId
func (h *ConversationHandler) Start(c *fiber.Ctx) error {
	sellerID, ok := validate.ID(c.Params("sellerId"))
	if !ok {
		return invalid(c, "sellerId", "invalid sellerId")
	}
	var body struct {
		ProductID string `json:"product_id"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return invalid(c, "body", "invalid request body")
		}
	}
	if body.ProductID != "" {
		if body.ProductID, ok = validate.ID(body.ProductID); !ok {
			return invalid(c, "product_id", "invalid product_id")
		}
	}
	conv, err := h.Messaging.Start(c.UserContext(), principal(c), sellerID, body.ProductID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"conversation": conv})
}

// GET /conversations
func (h *ConversationHandler) List(c *fiber.Ctx) error {
	list, err := h.Messaging.List(c.UserContext(), principal(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"conversations": list})
}

// GET /conversations/unread/count
func (h *ConversationHandler) UnreadCount(c *fiber.Ctx) error {
	n, err := h.Messaging.UnreadTotal(c.UserContext(), principal(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": n})
}

// GET /conversations/:id/messages
func (h *ConversationHandler) Messages(c *fiber.Ctx) error {
	id, ok := conversationID(c)
	if !ok {
		return invalid(c, "id", "invalid conversation id")
	}
	p := principal(c)
	msgs, err := h.Messaging.Messages(c.UserContext(), p, id)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeForbidden) {
			applog.Security(c, "access.denied.conversation", map[string]any{"conversation_id": id, "user_id": p.UserID})
		}
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

// POST /conversations/:id/messages
func (h *ConversationHandler) Send(c *fiber.Ctx) error {
	id, ok := conversationID(c)
	if !ok {
		return invalid(c, "id", "invalid conversation id")
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	p := principal(c)
	msg, err := h.Messaging.Send(c.UserContext(), p, id, body.Content)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeForbidden) {
			applog.Security(c, "access.denied.conversation", map[string]any{"conversation_id": id, "user_id": p.UserID})
		}
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}

// PUT /conversations/:id/messages marks the thread read for the caller.
func (h *ConversationHandler) MarkRead(c *fiber.Ctx) error {
	id, ok := conversationID(c)
	if !ok {
		return invalid(c, "id", "invalid conversation id")
	}
	if err := h.Messaging.Read(c.UserContext(), principal(c), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Conversation marked as read"})
}

// DELETE /conversations/:id
func (h *ConversationHandler) Delete(c *fiber.Ctx) error {
	id, ok := conversationID(c)
	if !ok {
		return invalid(c, "id", "invalid conversation id")
	}
	p := principal(c)
	if err := h.Messaging.Delete(c.UserContext(), p, id); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "conversation.delete", map[string]any{"conversation_id": id, "user_id": p.UserID})
	return c.JSON(fiber.Map{"message": "Conversation deleted"})
}

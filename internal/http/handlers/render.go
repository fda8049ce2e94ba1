package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"makiti/internal/domain"
	applog "makiti/internal/log"
)

const genericMessage = "Something went wrong. Please try again."

func statusOf(code domain.ErrorCode) int {
	switch code {
	case domain.ErrCodeValidation, domain.ErrCodeConflict, domain.ErrCodeInsufficientStock, domain.ErrCodeDuplicateReview:
		return fiber.StatusBadRequest
	case domain.ErrCodeUnauthorized:
		return fiber.StatusUnauthorized
	case domain.ErrCodeForbidden:
		return fiber.StatusForbidden
	case domain.ErrCodeNotFound:
		return fiber.StatusNotFound
	case domain.ErrCodeRateLimited:
		return fiber.StatusTooManyRequests
	case domain.ErrCodeTransient:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func errorBody(code domain.ErrorCode, message string) fiber.Map {
	return fiber.Map{"error": fiber.Map{"kind": string(code), "message": message}}
}

// fail writes err as a JSON error. Messages of internal errors never reach the client.
func fail(c *fiber.Ctx, err error) error {
	code := domain.CodeOf(err)
	status := statusOf(code)
	msg := genericMessage
	var de *domain.Error
	if errors.As(err, &de) && status < fiber.StatusInternalServerError {
		msg = de.Message
	}
	c.Status(status)
	switch {
	case code == domain.ErrCodeTransient:
		msg = "Service temporarily unavailable, please retry."
		applog.Error(c, "request.transient", err, nil)
	case status >= fiber.StatusInternalServerError:
		applog.Error(c, "request.fail", err, nil)
	}
	return c.JSON(errorBody(code, msg))
}

func invalid(c *fiber.Ctx, field, message string) error {
	applog.Security(c, "validation.fail", map[string]any{"field": field})
	return fail(c, domain.NewError(domain.ErrCodeValidation, message))
}

// ErrorHandler is the app-wide fallback for errors returned by handlers and
// middleware (unknown routes, oversized bodies, panics turned into errors).
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch {
		case fe.Code == fiber.StatusNotFound:
			return c.Status(fe.Code).JSON(errorBody(domain.ErrCodeNotFound, "route not found"))
		case fe.Code < fiber.StatusInternalServerError:
			applog.Security(c, "request.rejected", map[string]any{"status": fe.Code})
			return c.Status(fe.Code).JSON(errorBody(domain.ErrCodeValidation, fe.Message))
		}
		applog.Error(c, "server.error", err, nil)
		return c.Status(fe.Code).JSON(errorBody(domain.ErrCodeInternal, genericMessage))
	}
	return fail(c, err)
}

package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"makiti/internal/auth"
	"makiti/internal/domain"
	applog "makiti/internal/log"
	"makiti/internal/services"
)

const principalKey = "principal"

// RequestContext gives every request a context carrying its request id and,
// when timeout is positive, a deadline.
func RequestContext(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			ctx = applog.ContextWithRequestID(ctx, rid)
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// Authenticate resolves the bearer token into a Principal. The role comes from
// the user record, not from the token.
func Authenticate(v *auth.Verifier, users services.IdentityStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || raw == "" {
			applog.Security(c, "auth.token.missing", nil)
			return fail(c, domain.ErrUnauthorized)
		}
		claims, err := v.Verify(strings.TrimSpace(raw))
		if err != nil {
			applog.Security(c, "auth.token.invalid", map[string]any{"reason": err.Error()})
			return fail(c, domain.ErrUnauthorized)
		}
		u, err := users.GetUser(c.UserContext(), claims.Subject)
		if err != nil {
			if domain.IsDomainError(err, domain.ErrCodeNotFound) {
				applog.Security(c, "auth.user.unknown", map[string]any{"user_id": claims.Subject})
				return fail(c, domain.ErrUnauthorized)
			}
			return fail(c, err)
		}
		c.Locals(principalKey, domain.Principal{UserID: u.ID, Role: u.Role, Name: u.DisplayName(u.Email), Email: u.Email})
		return c.Next()
	}
}

// RequireRole lets the request through only for the given roles.
func RequireRole(area string, roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := principal(c)
		for _, r := range roles {
			if p.Role == r {
				return c.Next()
			}
		}
		applog.Security(c, "access.denied."+area, map[string]any{"user_id": p.UserID, "role": string(p.Role)})
		return fail(c, domain.ErrForbidden)
	}
}

func principal(c *fiber.Ctx) domain.Principal {
	p, _ := c.Locals(principalKey).(domain.Principal)
	return p
}

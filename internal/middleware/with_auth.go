package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/utils"
)

// Auth role constants used by the WithAuth helper.
const (
	AuthRoleAny     = "any"
	AuthRoleTutor   = "tutor"
	AuthRoleStudent = "student"
)

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	Role string
}

// WithAuth wraps a handler with role guards. It runs behind JWTProtected and
// only consults the locals that middleware sets.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}

	return func(c *fiber.Ctx) error {
		if c.Locals("user_id") == nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if role == AuthRoleAny {
			return handler(c)
		}

		currentRole := models.NormalizeRole(normalizeRoleValue(c.Locals("user_role")))
		if currentRole != role {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return handler(c)
	}
}

func normalizeRoleValue(value interface{}) string {
	role, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(role))
}

package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/praxis-api/internal/utils"
)

// Auth role constants used by the WithAuth helper.
const (
	AuthRoleAny        = "any"
	AuthRoleTrainee    = RoleTrainee
	AuthRoleSupervisor = RoleSupervisor
	AuthRoleAdmin      = RoleAdmin
	// AuthRoleReviewer admits supervisors and admins.
	AuthRoleReviewer = "reviewer"
)

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth wraps a handler with authentication and role guards.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}

	requireUser := opts.RequireUser
	if role != AuthRoleAny {
		requireUser = true
	}

	return func(c *fiber.Ctx) error {
		if requireUser && !hasUser(c) {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		if role == AuthRoleAny {
			return handler(c)
		}

		currentRole := normalizeRoleValue(c.Locals(LocalUserRole))
		switch role {
		case AuthRoleReviewer:
			if currentRole != RoleSupervisor && currentRole != RoleAdmin {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", fiber.Map{"required_role": role})
			}
		default:
			if currentRole != role {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", fiber.Map{"required_role": role})
			}
		}

		return handler(c)
	}
}

// RequireActor is the group form of WithAuth: any authenticated user with a
// recognised role may pass.
func RequireActor() fiber.Handler {
	return WithAuth(func(c *fiber.Ctx) error {
		if knownRole(normalizeRoleValue(c.Locals(LocalUserRole))) == "" {
			return utils.Fail(c, fiber.StatusForbidden, "unrecognised role", nil)
		}
		return c.Next()
	}, AuthOptions{RequireUser: true})
}

func hasUser(c *fiber.Ctx) bool {
	switch id := c.Locals(LocalUserID).(type) {
	case uint:
		return id != 0
	case int:
		return id > 0
	default:
		return false
	}
}

package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MemberFox/MemberFox/internal/pkg/constants"
	"github.com/MemberFox/MemberFox/internal/pkg/usercontext"
)

func sessionActive(c *fiber.Ctx) bool {
	active, _ := c.Locals(usercontext.KeyFromProtected).(bool)
	return active
}

// RequireAuth gates web pages behind a signed-in session.
func RequireAuth(c *fiber.Ctx) error {
	if !sessionActive(c) {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireAdmin additionally demands the admin role.
func RequireAdmin(c *fiber.Ctx) error {
	if !sessionActive(c) {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}
	if isAdmin, _ := c.Locals(usercontext.KeyIsAdmin).(bool); !isAdmin {
		return c.Redirect(constants.PublicRoute, fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireSetupComplete routes members who have not finished the onboarding
// wizard back into it. Admins bypass the gate so staff accounts can reach
// the admin area without a membership.
func RequireSetupComplete(c *fiber.Ctx) error {
	ctx := usercontext.GetUserContext(c)
	if !ctx.IsLoggedIn {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}
	if ctx.IsAdmin || ctx.SetupComplete {
		return c.Next()
	}
	return c.Redirect(constants.SetupRoute, fiber.StatusSeeOther)
}

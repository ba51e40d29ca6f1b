// Package usercontext carries the per-request identity resolved by the
// session and API key middlewares.
package usercontext

import "github.com/gofiber/fiber/v2"

// Locals keys shared between the middlewares and route guards
const (
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyIsAdmin       = "isAdmin"
	KeyFromProtected = "from_protected"
)

// UserContext is the resolved identity of the requester.
type UserContext struct {
	UserID        uint   `json:"user_id"`
	Username      string `json:"username"`
	IsLoggedIn    bool   `json:"is_logged_in"`
	IsAdmin       bool   `json:"is_admin"`
	Tier          string `json:"tier"`
	SetupComplete bool   `json:"setup_complete"`
}

// GetUserContext returns the context stored by the middleware, or an
// anonymous one when the request never passed it.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals("USER_CONTEXT").(UserContext); ok {
		return ctx
	}
	return UserContext{}
}

// GetUserID returns the requester's user ID, 0 for anonymous requests.
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}

// HasCompletedSetup reports whether the requester finished the setup wizard.
func HasCompletedSetup(c *fiber.Ctx) bool {
	return GetUserContext(c).SetupComplete
}

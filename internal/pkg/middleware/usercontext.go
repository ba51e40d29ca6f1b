package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/MemberFox/MemberFox/app/controllers"
	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/internal/pkg/database"
	"github.com/MemberFox/MemberFox/internal/pkg/session"
	"github.com/MemberFox/MemberFox/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session into a UserContext local that
// handlers and templates read. Runs on every request outside /auth/.
func UserContextMiddleware(c *fiber.Ctx) error {
	// Goth keeps its own fiber session store for the OAuth dance; touching
	// our store on those routes collides with it.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return continueAnonymous(c)
	}

	userID, ok := sess.Get(controllers.USER_ID).(uint)
	if !ok {
		return continueAnonymous(c)
	}

	username := session.GetSessionValue(c, controllers.USER_NAME)
	isAdmin, _ := sess.Get(controllers.USER_IS_ADMIN).(bool)
	tier := session.GetSessionValue(c, controllers.USER_TIER)
	setupVal := session.GetSessionValue(c, controllers.SETUP_COMPLETE)

	// the setup flag is cached in the session; fall back to the database
	// once after login and remember the answer
	if setupVal == "" {
		setupVal = "0"
		if db := database.GetDB(); db != nil {
			var user models.User
			if err := db.First(&user, userID).Error; err == nil && user.HasCompletedSetup() {
				setupVal = "1"
			}
			if tier == "" {
				var membership models.Membership
				if err := db.Where("user_id = ?", userID).First(&membership).Error; err == nil {
					tier = membership.Tier
				}
			}
		}
		_ = session.SetSessionValue(c, controllers.SETUP_COMPLETE, setupVal)
		if tier != "" {
			_ = session.SetSessionValue(c, controllers.USER_TIER, tier)
		}
	}

	c.Locals("USER_CONTEXT", usercontext.UserContext{
		UserID:        userID,
		Username:      username,
		IsLoggedIn:    true,
		IsAdmin:       isAdmin,
		Tier:          tier,
		SetupComplete: setupVal == "1",
	})
	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUserID, userID)
	c.Locals(usercontext.KeyUsername, username)
	c.Locals(usercontext.KeyIsAdmin, isAdmin)

	// the Save inside keeps the session expiry sliding while the member
	// stays active
	_ = session.SetSessionValue(c, controllers.USER_NAME, username)

	return c.Next()
}

func continueAnonymous(c *fiber.Ctx) error {
	c.Locals("USER_CONTEXT", usercontext.UserContext{})
	c.Locals(usercontext.KeyFromProtected, false)
	c.Locals(usercontext.KeyIsAdmin, false)
	return c.Next()
}

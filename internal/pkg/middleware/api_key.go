package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/app/repository"
	"github.com/MemberFox/MemberFox/internal/pkg/database"
	"github.com/MemberFox/MemberFox/internal/pkg/usercontext"
)

// APIKeyAuthMiddleware authenticates JSON API requests by API key, taken
// from X-API-Key or a bearer Authorization header.
func APIKeyAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rawKey := apiKeyFromRequest(c)
		if rawKey == "" {
			return apiError(c, fiber.StatusUnauthorized, "unauthorized", "Missing API key")
		}

		db := database.GetDB()
		if db == nil {
			log.Print("api key middleware: database unavailable")
			return apiError(c, fiber.StatusInternalServerError, "internal_server_error", "Database unavailable")
		}

		repos := repository.GetGlobalFactory()
		user, settings, err := repos.GetUserRepository().GetByAPIKeyHash(models.HashAPIKey(rawKey))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apiError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid API key")
			}
			log.Printf("api key lookup failed: %v", err)
			return apiError(c, fiber.StatusInternalServerError, "internal_server_error", "API key verification failed")
		}

		if user.Status != models.STATUS_ACTIVE {
			return apiError(c, fiber.StatusForbidden, "forbidden", "User inactive")
		}

		// the membership tier is optional, setup may not be finished yet
		tier := ""
		if membership, err := repos.GetMembershipRepository().GetByUserID(user.ID); err == nil {
			tier = membership.Tier
		}

		// best effort, a failed timestamp update must not block the request
		settings.TouchAPIKeyUsage()
		if err := db.Model(settings).Update("api_key_last_used_at", settings.APIKeyLastUsedAt).Error; err != nil {
			log.Printf("api key usage timestamp for user %d: %v", user.ID, err)
		}

		isAdmin := user.Role == models.ROLE_ADMIN
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			UserID:        user.ID,
			Username:      user.Name,
			IsLoggedIn:    true,
			IsAdmin:       isAdmin,
			Tier:          tier,
			SetupComplete: user.HasCompletedSetup(),
		})
		c.Locals(usercontext.KeyFromProtected, true)
		c.Locals(usercontext.KeyUserID, user.ID)
		c.Locals(usercontext.KeyUsername, user.Name)
		c.Locals(usercontext.KeyIsAdmin, isAdmin)

		return c.Next()
	}
}

// apiKeyFromRequest prefers the X-API-Key header and falls back to a bearer
// Authorization token.
func apiKeyFromRequest(c *fiber.Ctx) string {
	if key := strings.TrimSpace(c.Get("X-API-Key")); key != "" {
		return key
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func apiError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/internal/pkg/constants"
	"github.com/MemberFox/MemberFox/internal/pkg/database"
)

// HandleUserSettings renders the settings page and saves preference changes.
func HandleUserSettings(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return c.Redirect(constants.LoginRoute)
	}

	settings, err := models.GetOrCreateUserSettings(database.GetDB(), user.ID)
	if err != nil {
		log.Errorf("[User] Failed to load settings for user %d: %v", user.ID, err)
		fm := fiber.Map{
			"type":    "error",
			"message": "We could not load your settings. Please try again later.",
		}
		return flash.WithError(c, fm).Redirect(constants.MemberDashboardRoute)
	}

	if c.Method() == fiber.MethodPost {
		settings.Newsletter = c.FormValue("newsletter") == "on"
		settings.ProfileVisible = c.FormValue("profile_visible") == "on"

		if err := database.GetDB().Save(settings).Error; err != nil {
			log.Errorf("[User] Failed to save settings for user %d: %v", user.ID, err)
			fm := fiber.Map{
				"type":    "error",
				"message": "We could not save your settings. Please try again.",
			}
			return flash.WithError(c, fm).Redirect(constants.UserSettingsRoute)
		}

		fm := fiber.Map{
			"type":    "success",
			"message": "Your settings have been saved.",
		}
		return flash.WithSuccess(c, fm).Redirect(constants.UserSettingsRoute)
	}

	return render(c, "user/settings", " | Settings", fiber.Map{
		"User":     user,
		"Settings": settings,
	})
}

// HandleUserAPIKeyGenerate issues a fresh API key. The raw secret appears in
// the flash exactly once; only its hash is stored.
func HandleUserAPIKeyGenerate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return c.Redirect(constants.LoginRoute)
	}

	settings, err := models.GetOrCreateUserSettings(database.GetDB(), user.ID)
	if err != nil {
		log.Errorf("[User] Failed to load settings for user %d: %v", user.ID, err)
		fm := fiber.Map{
			"type":    "error",
			"message": "We could not load your settings. Please try again later.",
		}
		return flash.WithError(c, fm).Redirect(constants.UserSettingsRoute)
	}

	rawKey, err := settings.IssueAPIKey()
	if err != nil {
		log.Errorf("[User] API key generation failed for user %d: %v", user.ID, err)
		fm := fiber.Map{
			"type":    "error",
			"message": "We could not generate an API key. Please try again.",
		}
		return flash.WithError(c, fm).Redirect(constants.UserSettingsRoute)
	}

	if err := database.GetDB().Save(settings).Error; err != nil {
		log.Errorf("[User] Failed to store API key for user %d: %v", user.ID, err)
		fm := fiber.Map{
			"type":    "error",
			"message": "We could not store the API key. Please try again.",
		}
		return flash.WithError(c, fm).Redirect(constants.UserSettingsRoute)
	}

	fm := fiber.Map{
		"type":    "success",
		"message": "Your new API key: " + rawKey + " - copy it now, it will not be shown again.",
	}
	return flash.WithSuccess(c, fm).Redirect(constants.UserSettingsRoute)
}

// HandleUserAPIKeyRevoke invalidates the active API key.
func HandleUserAPIKeyRevoke(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return c.Redirect(constants.LoginRoute)
	}

	settings, err := models.GetOrCreateUserSettings(database.GetDB(), user.ID)
	if err != nil {
		log.Errorf("[User] Failed to load settings for user %d: %v", user.ID, err)
		fm := fiber.Map{
			"type":    "error",
			"message": "We could not load your settings. Please try again later.",
		}
		return flash.WithError(c, fm).Redirect(constants.UserSettingsRoute)
	}

	if !settings.HasActiveAPIKey() {
		fm := fiber.Map{
			"type":    "error",
			"message": "There is no active API key to revoke.",
		}
		return flash.WithError(c, fm).Redirect(constants.UserSettingsRoute)
	}

	settings.RevokeAPIKey()
	if err := database.GetDB().Save(settings).Error; err != nil {
		log.Errorf("[User] Failed to revoke API key for user %d: %v", user.ID, err)
		fm := fiber.Map{
			"type":    "error",
			"message": "We could not revoke the API key. Please try again.",
		}
		return flash.WithError(c, fm).Redirect(constants.UserSettingsRoute)
	}

	fm := fiber.Map{
		"type":    "success",
		"message": "Your API key has been revoked.",
	}
	return flash.WithSuccess(c, fm).Redirect(constants.UserSettingsRoute)
}

package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/app/repository"
	"github.com/MemberFox/MemberFox/internal/pkg/database"
	"github.com/MemberFox/MemberFox/internal/pkg/tiers"
	"github.com/MemberFox/MemberFox/internal/pkg/usercontext"
)

// apiFail writes the uniform JSON error envelope of the v1 API.
func apiFail(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// HandleGetUserAccount returns the account document for the authenticated
// caller (API key or session).
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return apiFail(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	account, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apiFail(c, fiber.StatusNotFound, "not_found", "User not found")
	}
	if err != nil {
		return apiFail(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	db := database.GetDB()
	if db == nil {
		return apiFail(c, fiber.StatusInternalServerError, "internal_server_error", "Database unavailable")
	}
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		return apiFail(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user settings")
	}

	membershipInfo, err := membershipSummary(userCtx.UserID)
	if err != nil {
		return apiFail(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load membership")
	}

	return c.JSON(fiber.Map{
		"id":                   account.ID,
		"username":             account.Name,
		"email":                account.Email,
		"status":               account.Status,
		"is_admin":             account.Role == models.ROLE_ADMIN,
		"graduation_year":      account.GraduationYear,
		"setup_complete":       account.HasCompletedSetup(),
		"created_at":           account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at":        formatTimePtr(account.LastLoginAt),
		"api_key_last_used_at": formatTimePtr(settings.APIKeyLastUsedAt),
		"membership":           membershipInfo,
		"stats": fiber.Map{
			"login_count":   account.LoginCount,
			"profile_views": account.ProfileViewCount,
		},
		"preferences": fiber.Map{
			"newsletter":      settings.Newsletter,
			"profile_visible": settings.ProfileVisible,
		},
	})
}

// membershipSummary condenses the membership block of the account document.
// Members that never finished the wizard have none; that is not an error.
func membershipSummary(userID uint) (interface{}, error) {
	repo := repository.GetGlobalFactory().GetMembershipRepository()
	membership, err := repo.GetByUserID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	active := false
	if subs, err := repo.ListSubscriptions(membership.ID); err == nil {
		now := time.Now()
		for _, sub := range subs {
			if sub.ActiveAt(now) {
				active = true
				break
			}
		}
	}

	desc, _ := tiers.Description(tiers.Tier(membership.Tier))
	return fiber.Map{
		"tier":                membership.Tier,
		"tier_description":    desc,
		"has_customer":        membership.HasCustomer(),
		"subscription_active": active,
	}, nil
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/internal/pkg/constants"
	"github.com/MemberFox/MemberFox/internal/pkg/database"
	"github.com/MemberFox/MemberFox/internal/pkg/security"
	"github.com/MemberFox/MemberFox/internal/pkg/session"
	"github.com/MemberFox/MemberFox/internal/pkg/statistics"
)

// OAUTH_NEXT carries the requested post-login target across the provider
// round-trip; the callback URL itself holds only code and state.
const OAUTH_NEXT = "OAUTH_NEXT"

// HandleOAuthBegin stashes the requested post-login target in the session and
// hands off to the provider redirect.
func HandleOAuthBegin(c *fiber.Ctx) error {
	if next := c.Query("next"); next != "" {
		_ = session.SetSessionValue(c, OAUTH_NEXT, next)
	}
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider handshake, resolves the identity
// to a member account and signs that member in.
func HandleOAuthCallback(c *fiber.Ctx) error {
	identity, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("OAuth failed: %v", err))
	}

	db := database.GetDB()
	user, err := memberForIdentity(db, identity)
	if err != nil {
		return err
	}

	if user.Status == models.STATUS_DISABLED {
		return fiber.NewError(fiber.StatusForbidden, "account disabled")
	}

	// A provider login proves the address just like a consumed magic link
	if user.EmailVerifiedAt == nil || user.Status == models.STATUS_INACTIVE {
		user.MarkVerified()
		_ = db.Save(user).Error
	}

	next := session.GetSessionValue(c, OAUTH_NEXT)

	if err := establishSession(c, user); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session save failed")
	}
	recordLogin(user)

	if next != "" {
		_ = session.SetSessionValue(c, OAUTH_NEXT, "")
	}
	target := oauthRedirectTarget(user, next)

	// Ensure HTMX boosted flows perform a full redirect and refresh head/meta
	c.Set("HX-Redirect", target)
	return c.Redirect(target, fiber.StatusSeeOther)
}

// oauthRedirectTarget applies the same post-login rules as the magic link
// consume path: the requested target is validated, and unfinished onboarding
// wins over any request.
func oauthRedirectTarget(user *models.User, next string) string {
	target := security.SafeRedirect(next, publicBaseURL(), postLoginTarget(user))
	if !user.HasCompletedSetup() && !user.IsAdmin() {
		target = constants.SetupRoute
	}
	return target
}

// memberForIdentity returns the member linked to the given provider identity.
// First-time identities get linked to the member with the same email address,
// creating that member when the address is unknown.
func memberForIdentity(db *gorm.DB, identity goth.User) (*models.User, error) {
	var account models.ProviderAccount
	err := db.Where("provider = ? AND provider_user_id = ?", identity.Provider, identity.UserID).
		First(&account).Error
	switch {
	case err == nil:
		return refreshProviderLink(db, &account, identity)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return linkNewIdentity(db, identity)
	default:
		return nil, fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("db error: %v", err))
	}
}

// refreshProviderLink stores the newest provider tokens on an existing link
// and loads the member behind it.
func refreshProviderLink(db *gorm.DB, account *models.ProviderAccount, identity goth.User) (*models.User, error) {
	account.AccessToken = identity.AccessToken
	account.RefreshToken = identity.RefreshToken
	account.ExpiresAt = tokenExpiry(identity)
	if err := db.Save(account).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("update tokens failed: %v", err))
	}

	var user models.User
	if err := db.First(&user, account.UserID).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "linked user not found")
	}
	return &user, nil
}

// linkNewIdentity attaches a first-time provider identity to a member account.
func linkNewIdentity(db *gorm.DB, identity goth.User) (*models.User, error) {
	// Members are keyed by email; an identity without one cannot be matched
	// or mailed magic links later
	if identity.Email == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "your provider account does not expose an email address")
	}

	var user models.User
	_ = db.Where("email = ?", identity.Email).First(&user).Error
	if user.ID == 0 {
		// The provider already verified the address, so the account starts
		// active
		user = models.User{
			Name:   firstNonEmpty(identity.Name, identity.NickName, identity.Email),
			Email:  identity.Email,
			Role:   models.ROLE_MEMBER,
			Status: models.STATUS_ACTIVE,
		}
		user.MarkVerified()
		if err := db.Create(&user).Error; err != nil {
			return nil, fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("create user failed: %v", err))
		}
		go statistics.UpdateStatisticsCache()
	}

	account := models.ProviderAccount{
		UserID:         user.ID,
		Provider:       identity.Provider,
		ProviderUserID: identity.UserID,
		Email:          identity.Email,
		AccessToken:    identity.AccessToken,
		RefreshToken:   identity.RefreshToken,
		ExpiresAt:      tokenExpiry(identity),
	}
	if err := db.Create(&account).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("link provider failed: %v", err))
	}
	return &user, nil
}

// tokenExpiry converts goth's zero-value expiry into a nullable column value.
func tokenExpiry(identity goth.User) *time.Time {
	if identity.ExpiresAt.IsZero() {
		return nil
	}
	t := identity.ExpiresAt
	return &t
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

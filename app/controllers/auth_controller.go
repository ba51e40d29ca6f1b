package controllers

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/internal/pkg/cache"
	"github.com/MemberFox/MemberFox/internal/pkg/constants"
	"github.com/MemberFox/MemberFox/internal/pkg/database"
	"github.com/MemberFox/MemberFox/internal/pkg/env"
	"github.com/MemberFox/MemberFox/internal/pkg/hcaptcha"
	"github.com/MemberFox/MemberFox/internal/pkg/jobqueue"
	"github.com/MemberFox/MemberFox/internal/pkg/metrics/counter"
	"github.com/MemberFox/MemberFox/internal/pkg/security"
	"github.com/MemberFox/MemberFox/internal/pkg/session"
	"github.com/MemberFox/MemberFox/internal/pkg/statistics"
)

const (
	AUTH_KEY       string = "authenticated"
	USER_ID        string = "user_id"
	USER_NAME      string = "username"
	USER_IS_ADMIN  string = "isAdmin"
	FROM_PROTECTED string = "from_protected"
	USER_TIER      string = "user_tier"
	SETUP_COMPLETE string = "setup_complete"
)

// magicLinkTTL bounds how long an emailed sign-in link stays valid.
const magicLinkTTL = 15 * time.Minute

// magicRequestCooldown throttles link requests per address.
const magicRequestCooldown = time.Minute

// neutralMagicMessage is shown for every magic-link request outcome so the
// form cannot be used to probe which addresses have an account.
const neutralMagicMessage = "If the address belongs to a member account, a sign-in link is on its way. Check your inbox."

// HandleAuthLogin handles the password sign-in for staff accounts. Members
// have no password and use the magic-link flow instead.
func HandleAuthLogin(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		var user models.User
		fm := fiber.Map{
			"type": "error",
		}

		// notice: in production you should not inform the user
		// with detailed messages about login failures
		result := database.GetDB().Where("email = ?", strings.TrimSpace(c.FormValue("email"))).First(&user)
		if result.Error != nil {
			fm["message"] = "There is a problem with the login process"

			return flash.WithError(c, fm).Redirect(constants.LoginRoute)
		}

		if !user.CanPasswordLogin() || !user.CheckPassword(c.FormValue("password")) {
			fm["message"] = "There is a problem with the login process"

			return flash.WithError(c, fm).Redirect(constants.LoginRoute)
		}

		if user.Status == models.STATUS_DISABLED {
			fm["message"] = "There is a problem with the login process"

			return flash.WithError(c, fm).Redirect(constants.LoginRoute)
		}

		if err := establishSession(c, &user); err != nil {
			fm["message"] = fmt.Sprintf("something went wrong: %s", err)

			return flash.WithError(c, fm).Redirect(constants.LoginRoute)
		}

		recordLogin(&user)

		fm = fiber.Map{
			"type":    "success",
			"message": "Welcome back!",
		}

		target := security.SafeRedirect(c.FormValue("next"), publicBaseURL(), postLoginTarget(&user))
		return flash.WithSuccess(c, fm).Redirect(target)
	}

	return render(c, "auth/login", " | Sign in", fiber.Map{
		"Next": c.Query("next", ""),
	})
}

func HandleAuthLogout(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type": "error",
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		fm["message"] = "logged out (no sess)"

		return flash.WithError(c, fm).Redirect(constants.LoginRoute)
	}

	err = sess.Destroy()
	if err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect(constants.LoginRoute)
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "Bye! See you soon.",
	}

	c.Locals(FROM_PROTECTED, false)

	return flash.WithSuccess(c, fm).Redirect(constants.LoginRoute)
}

// HandleMagicRequest renders the magic-link form and processes submissions.
// The answer is the same for known and unknown addresses.
func HandleMagicRequest(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		return handleMagicRequestPost(c)
	}

	return render(c, "auth/magic", " | Sign in via email", fiber.Map{
		"HCaptchaSitekey": env.GetEnv("HCAPTCHA_SITEKEY", ""),
		"Next":            c.Query("next", ""),
	})
}

func handleMagicRequestPost(c *fiber.Ctx) error {
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	name := strings.TrimSpace(c.FormValue("name"))

	if email == "" {
		fm := fiber.Map{
			"type":    "error",
			"message": "Please enter your email address.",
		}
		return flash.WithError(c, fm).Redirect(constants.MagicRequestRoute)
	}

	// Captcha is only enforced when a sitekey is configured
	if env.GetEnv("HCAPTCHA_SITEKEY", "") != "" {
		valid, err := hcaptcha.Verify(c.FormValue("h-captcha-response"))
		if err != nil || !valid {
			errorMsg := "Captcha validation failed. Please try again."
			if err != nil && env.IsDev() {
				errorMsg = fmt.Sprintf("Captcha validation failed: %v", err)
			}
			fm := fiber.Map{
				"type":    "error",
				"message": errorMsg,
			}
			return flash.WithError(c, fm).Redirect(constants.MagicRequestRoute)
		}
	}

	neutral := fiber.Map{
		"type":    "success",
		"message": neutralMagicMessage,
	}

	// One link per address per cooldown window; repeated submits get the
	// neutral answer without another mail
	if ok, err := cache.SetNX("magic_request:"+email, "1", magicRequestCooldown); err == nil && !ok {
		return flash.WithSuccess(c, neutral).Redirect(constants.MagicRequestRoute)
	}

	ipv4, _ := GetClientIP(c)
	log.Infof("[Auth] Magic link requested for %s (ip=%s)", email, ipv4)

	var user models.User
	err := database.GetDB().Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if user.Status != models.STATUS_DISABLED {
			if err := sendMagicLink(&user, c.FormValue("next")); err != nil {
				log.Errorf("[Auth] Failed to queue magic link for user %d: %v", user.ID, err)
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First contact with a name registers a fresh member account. The
		// answer stays neutral even when registration is closed.
		if name != "" && registrationEnabled() {
			if err := registerMember(name, email); err != nil {
				log.Errorf("[Auth] Failed to register member %s: %v", email, err)
			}
		}
	default:
		log.Errorf("[Auth] Magic link lookup failed for %s: %v", email, err)
	}

	return flash.WithSuccess(c, neutral).Redirect(constants.MagicRequestRoute)
}

// HandleMagicConsume verifies an emailed sign-in token, burns it and starts
// the session. A Redis marker keyed by token id blocks replays for the rest
// of the token lifetime.
func HandleMagicConsume(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type": "error",
	}

	token := c.Query("token")
	if token == "" {
		fm["message"] = "This sign-in link is incomplete. Please request a new one."

		return flash.WithError(c, fm).Redirect(constants.MagicRequestRoute)
	}

	claims, err := security.VerifyLoginToken(token, env.GetEnv("APP_SECRET", ""))
	if err != nil {
		fm["message"] = "This sign-in link is invalid or has expired. Please request a new one."

		return flash.WithError(c, fm).Redirect(constants.MagicRequestRoute)
	}

	ttl := time.Until(time.Unix(claims.ExpiresAt, 0))
	if ttl <= 0 {
		ttl = time.Minute
	}
	if ok, err := cache.SetNX("magic_consume:"+claims.TokenID, "1", ttl); err != nil || !ok {
		if err != nil {
			log.Errorf("[Auth] Consume marker for token %s failed: %v", claims.TokenID, err)
		}
		fm["message"] = "This sign-in link was already used. Please request a new one."

		return flash.WithError(c, fm).Redirect(constants.MagicRequestRoute)
	}

	var user models.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		fm["message"] = "There is a problem with the login process"

		return flash.WithError(c, fm).Redirect(constants.LoginRoute)
	}

	// A link issued before an email change must not sign in the new address
	if !strings.EqualFold(user.Email, claims.Email) || user.Status == models.STATUS_DISABLED {
		fm["message"] = "There is a problem with the login process"

		return flash.WithError(c, fm).Redirect(constants.LoginRoute)
	}

	// The first successful link activates the account
	user.MarkVerified()
	if err := database.GetDB().Save(&user).Error; err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect(constants.LoginRoute)
	}

	if err := establishSession(c, &user); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect(constants.LoginRoute)
	}

	recordLogin(&user)

	target := security.SafeRedirect(c.Query("next"), publicBaseURL(), postLoginTarget(&user))
	if !user.HasCompletedSetup() && !user.IsAdmin() {
		// Unfinished onboarding wins over any requested target
		target = constants.SetupRoute
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "You are signed in.",
	}

	return flash.WithSuccess(c, fm).Redirect(target)
}

// sendMagicLink signs a fresh single-use token and queues the mail job.
func sendMagicLink(user *models.User, next string) error {
	token, err := security.GenerateLoginToken(user.ID, user.Email, uuid.NewString(), magicLinkTTL, env.GetEnv("APP_SECRET", ""))
	if err != nil {
		return err
	}

	link := publicBaseURL() + constants.MagicConsumeRoute + "?token=" + url.QueryEscape(token)
	if next != "" {
		link += "&next=" + url.QueryEscape(next)
	}

	_, err = jobqueue.GetManager().GetQueue().EnqueueMagicLinkMail(user.ID, user.Email, user.Name, link, magicLinkTTL)
	return err
}

// registerMember creates the inactive account for a first-time address and
// queues the welcome mail. The account stays inactive until the first link
// is used.
func registerMember(name, email string) error {
	user, err := models.CreateUser(name, email)
	if err != nil {
		return err
	}
	if err := database.GetDB().Create(user).Error; err != nil {
		return err
	}

	token, err := security.GenerateLoginToken(user.ID, user.Email, uuid.NewString(), magicLinkTTL, env.GetEnv("APP_SECRET", ""))
	if err != nil {
		return err
	}
	link := publicBaseURL() + constants.MagicConsumeRoute + "?token=" + url.QueryEscape(token) + "&next=" + url.QueryEscape(constants.SetupRoute)

	if _, err := jobqueue.GetManager().GetQueue().EnqueueWelcomeMail(user.ID, user.Email, user.Name, link); err != nil {
		return err
	}

	// Update statistics after registration
	go statistics.UpdateStatisticsCache()

	return nil
}

// establishSession writes the authenticated session shared by every login
// path (password, magic link, OAuth).
func establishSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}

	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, user.ID)
	sess.Set(USER_NAME, user.Name)
	sess.Set(USER_IS_ADMIN, user.IsAdmin())

	if err := sess.Save(); err != nil {
		return err
	}

	// Cache the gate state so the user context middleware can skip the DB
	setupVal := "0"
	if user.HasCompletedSetup() {
		setupVal = "1"
	}
	return session.SetSessionValue(c, SETUP_COMPLETE, setupVal)
}

// recordLogin updates the login bookkeeping shared by all sign-in paths.
func recordLogin(user *models.User) {
	database.GetDB().Model(user).Update("last_login_at", time.Now())
	if err := counter.AddUserLogin(user.ID); err != nil {
		log.Errorf("[Auth] Failed to count login for user %d: %v", user.ID, err)
	}
}

// postLoginTarget picks the landing page after a successful sign-in.
func postLoginTarget(user *models.User) string {
	if user.IsAdmin() {
		return constants.AdminRoute
	}
	return constants.MemberDashboardRoute
}

// registrationEnabled falls back to the default (open) when the settings
// have not been loaded yet.
func registrationEnabled() bool {
	settings := models.GetAppSettings()
	return settings == nil || settings.IsRegistrationEnabled()
}

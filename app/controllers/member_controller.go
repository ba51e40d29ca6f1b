package controllers

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/app/repository"
	"github.com/MemberFox/MemberFox/internal/pkg/avatar"
	"github.com/MemberFox/MemberFox/internal/pkg/constants"
	"github.com/MemberFox/MemberFox/internal/pkg/database"
	"github.com/MemberFox/MemberFox/internal/pkg/jobqueue"
	"github.com/MemberFox/MemberFox/internal/pkg/metrics/counter"
	"github.com/MemberFox/MemberFox/internal/pkg/session"
	"github.com/MemberFox/MemberFox/internal/pkg/tiers"
	"github.com/MemberFox/MemberFox/internal/pkg/utils"
)

// maxAvatarBytes caps avatar uploads before any decode work happens.
const maxAvatarBytes = 10 << 20

// avatarURL returns the uploaded avatar if one exists, otherwise the
// Gravatar fallback for the member's email.
func avatarURL(user *models.User, size int) string {
	if user.AvatarPath != "" {
		return "/" + user.AvatarPath
	}
	return utils.GetGravatarURL(user.Email, size)
}

// HandleMemberDashboard renders the member landing page with the membership
// state and activity numbers.
func HandleMemberDashboard(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return c.Redirect(constants.LoginRoute)
	}

	data := fiber.Map{
		"User":      user,
		"AvatarURL": avatarURL(user, avatar.Size),
	}

	repos := repository.GetGlobalRepositories()
	if membership, err := repos.Membership.GetByUserID(user.ID); err == nil {
		desc, _ := tiers.Description(tiers.Tier(membership.Tier))
		data["TierDescription"] = desc

		if subs, err := repos.Membership.ListSubscriptions(membership.ID); err == nil {
			now := time.Now()
			for i := range subs {
				if subs[i].ActiveAt(now) {
					data["ActiveSubscription"] = subs[i]
					break
				}
			}
			data["Subscriptions"] = subs
		}
	}

	if user.HasPendingEmailChange() {
		data["PendingEmail"] = user.PendingEmail
	}

	return render(c, "member/dashboard", " | Dashboard", data)
}

// HandleMemberProfile renders and processes the profile form. Changing the
// email address only records a pending change; the switch happens when the
// confirmation link sent to the new address is opened.
func HandleMemberProfile(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return c.Redirect(constants.LoginRoute)
	}

	if c.Method() == fiber.MethodPost {
		return handleMemberProfilePost(c, user)
	}

	if err := counter.AddProfileView(user.ID); err != nil {
		log.Errorf("[Member] Failed to count profile view for user %d: %v", user.ID, err)
	}

	return render(c, "member/profile", " | Profile", fiber.Map{
		"User":         user,
		"AvatarURL":    avatarURL(user, avatar.Size),
		"PendingEmail": user.PendingEmail,
	})
}

func handleMemberProfilePost(c *fiber.Ctx, user *models.User) error {
	user.Name = strings.TrimSpace(c.FormValue("name"))
	user.Street = strings.TrimSpace(c.FormValue("street"))
	user.City = strings.TrimSpace(c.FormValue("city"))
	user.Zip = strings.TrimSpace(c.FormValue("zip"))
	user.Country = strings.TrimSpace(c.FormValue("country"))
	if year, err := strconv.Atoi(c.FormValue("graduation_year")); err == nil {
		user.GraduationYear = year
	}

	if err := user.Validate(); err != nil {
		fm := fiber.Map{
			"type":    "error",
			"message": "Please check your input. Name and a valid graduation year are required.",
		}
		return flash.WithError(c, fm).Redirect("/member/profile")
	}

	newEmail := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	emailChangeRequested := newEmail != "" && !strings.EqualFold(newEmail, user.Email)
	if emailChangeRequested {
		var count int64
		database.GetDB().Model(&models.User{}).Where("email = ?", newEmail).Count(&count)
		if count > 0 {
			fm := fiber.Map{
				"type":    "error",
				"message": "This email address is already in use.",
			}
			return flash.WithError(c, fm).Redirect("/member/profile")
		}

		if err := user.BeginEmailChange(newEmail); err != nil {
			log.Errorf("[Member] Failed to generate email change token for user %d: %v", user.ID, err)
			fm := fiber.Map{
				"type":    "error",
				"message": "We could not start the email change. Please try again later.",
			}
			return flash.WithError(c, fm).Redirect("/member/profile")
		}
	}

	if err := database.GetDB().Save(user).Error; err != nil {
		log.Errorf("[Member] Failed to save profile for user %d: %v", user.ID, err)
		fm := fiber.Map{
			"type":    "error",
			"message": "We could not save your profile. Please try again.",
		}
		return flash.WithError(c, fm).Redirect("/member/profile")
	}

	// The navbar shows the session copy of the name
	_ = session.SetSessionValue(c, USER_NAME, user.Name)

	message := "Your profile has been updated."
	if emailChangeRequested {
		link := publicBaseURL() + "/member/profile/verify-email-change?token=" + user.EmailChangeToken
		if _, err := jobqueue.GetManager().GetQueue().EnqueueEmailChangeMail(user.ID, user.PendingEmail, user.Name, link); err != nil {
			log.Errorf("[Member] Failed to queue email change mail for user %d: %v", user.ID, err)
		}
		message = "Your profile has been updated. We sent a confirmation link to your new email address."
	}

	fm := fiber.Map{
		"type":    "success",
		"message": message,
	}
	return flash.WithSuccess(c, fm).Redirect("/member/profile")
}

// HandleVerifyEmailChange applies a pending email change. The link from the
// confirmation mail works without a session; the token is the proof.
func HandleVerifyEmailChange(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type": "error",
	}

	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		fm["message"] = "This confirmation link is incomplete."

		return flash.WithError(c, fm).Redirect(constants.PublicRoute)
	}

	repos := repository.GetGlobalRepositories()
	user, err := repos.User.GetByEmailChangeToken(token)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[Member] Email change lookup failed: %v", err)
		}
		fm["message"] = "This confirmation link is invalid or has expired."

		return flash.WithError(c, fm).Redirect(constants.PublicRoute)
	}

	if !user.IsEmailChangeTokenValid(token) || user.PendingEmail == "" {
		fm["message"] = "This confirmation link is invalid or has expired."

		return flash.WithError(c, fm).Redirect(constants.PublicRoute)
	}

	// The new address may have been taken since the change was requested
	var count int64
	database.GetDB().Model(&models.User{}).Where("email = ? AND id <> ?", user.PendingEmail, user.ID).Count(&count)
	if count > 0 {
		user.ClearEmailChangeRequest()
		_ = database.GetDB().Save(user).Error

		fm["message"] = "This email address is already in use."

		return flash.WithError(c, fm).Redirect(constants.PublicRoute)
	}

	user.Email = user.PendingEmail
	user.ClearEmailChangeRequest()
	if err := database.GetDB().Save(user).Error; err != nil {
		log.Errorf("[Member] Failed to apply email change for user %d: %v", user.ID, err)
		fm["message"] = "We could not update your email address. Please try again later."

		return flash.WithError(c, fm).Redirect(constants.PublicRoute)
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "Your email address has been updated.",
	}

	return flash.WithSuccess(c, fm).Redirect(constants.LoginRoute)
}

// HandleMemberAvatar stores a new profile picture. The upload is sniffed
// before any decode and the previous file is removed after the switch.
func HandleMemberAvatar(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return c.Redirect(constants.LoginRoute)
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		fm := fiber.Map{
			"type":    "error",
			"message": "Please choose an image to upload.",
		}
		return flash.WithError(c, fm).Redirect("/member/profile")
	}

	if fileHeader.Size > maxAvatarBytes {
		fm := fiber.Map{
			"type":    "error",
			"message": "The image is too large. Maximum size is 10 MB.",
		}
		return flash.WithError(c, fm).Redirect("/member/profile")
	}

	pre, err := fileHeader.Open()
	if err != nil {
		log.Errorf("[Member] Error opening uploaded avatar for sniff: %v", err)
		fm := fiber.Map{
			"type":    "error",
			"message": "We could not read the uploaded file.",
		}
		return flash.WithError(c, fm).Redirect("/member/profile")
	}
	head := make([]byte, 512)
	n, _ := io.ReadFull(pre, head)
	if n > 0 {
		head = head[:n]
	}
	_ = pre.Close()

	if _, err := avatar.ValidateImageBySniff(fileHeader.Filename, head); err != nil {
		fm := fiber.Map{
			"type":    "error",
			"message": err.Error(),
		}
		return flash.WithError(c, fm).Redirect("/member/profile")
	}

	tmpPath := filepath.Join(os.TempDir(), uuid.NewString()+strings.ToLower(filepath.Ext(fileHeader.Filename)))
	if err := c.SaveFile(fileHeader, tmpPath); err != nil {
		log.Errorf("[Member] Error saving uploaded avatar: %v", err)
		fm := fiber.Map{
			"type":    "error",
			"message": "We could not save the uploaded file.",
		}
		return flash.WithError(c, fm).Redirect("/member/profile")
	}
	defer os.Remove(tmpPath)

	newPath, err := avatar.Process(tmpPath, avatar.StorageDir)
	if err != nil {
		log.Errorf("[Member] Avatar processing failed for user %d: %v", user.ID, err)
		fm := fiber.Map{
			"type":    "error",
			"message": "We could not process the image. Please try a different file.",
		}
		return flash.WithError(c, fm).Redirect("/member/profile")
	}

	oldPath := user.AvatarPath
	user.AvatarPath = newPath
	if err := database.GetDB().Save(user).Error; err != nil {
		avatar.Remove(newPath)
		log.Errorf("[Member] Failed to store avatar path for user %d: %v", user.ID, err)
		fm := fiber.Map{
			"type":    "error",
			"message": "We could not save your new avatar. Please try again.",
		}
		return flash.WithError(c, fm).Redirect("/member/profile")
	}
	avatar.Remove(oldPath)

	fm := fiber.Map{
		"type":    "success",
		"message": "Your avatar has been updated.",
	}
	return flash.WithSuccess(c, fm).Redirect("/member/profile")
}

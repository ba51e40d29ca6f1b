package controllers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/internal/pkg/billing"
	"github.com/MemberFox/MemberFox/internal/pkg/constants"
	"github.com/MemberFox/MemberFox/internal/pkg/database"
	"github.com/MemberFox/MemberFox/internal/pkg/session"
	"github.com/MemberFox/MemberFox/internal/pkg/tiers"
)

// setupTimeout bounds the Stripe calls a wizard step may trigger.
const setupTimeout = 15 * time.Second

// HandleSetup sends the user to their current wizard step. The step is
// derived from persisted state only, so a half-finished setup resumes at the
// right place on any device.
func HandleSetup(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return c.Redirect(constants.LoginRoute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	return c.Redirect(resolveSetupStep(ctx, user))
}

// setupStepRoute maps the onboarding state to the wizard route handling the
// earliest incomplete step. Later flags only count once the earlier ones hold.
func setupStepRoute(profileComplete, tierSelected, subscriptionActive bool) string {
	switch {
	case !profileComplete:
		return constants.SetupProfileRoute
	case !tierSelected:
		return constants.SetupTierRoute
	case !subscriptionActive:
		return constants.SetupSubscriptionRoute
	default:
		return constants.SetupDoneRoute
	}
}

// resolveSetupStep loads the persisted onboarding state and picks the next
// route. Lookup failures resolve to the step that would re-check the state.
func resolveSetupStep(ctx context.Context, user *models.User) string {
	if user.ProfileCompletedAt == nil {
		return setupStepRoute(false, false, false)
	}

	svc := billingService()
	membership, err := svc.GetMembership(ctx, user.ID)
	if err != nil {
		log.Errorf("[Setup] Failed to load membership for user %d: %v", user.ID, err)
		return setupStepRoute(true, false, false)
	}
	if membership == nil {
		return setupStepRoute(true, false, false)
	}

	need, err := svc.ShouldSetup(ctx, membership)
	if err != nil {
		log.Errorf("[Setup] Subscription check failed for user %d: %v", user.ID, err)
		return setupStepRoute(true, true, false)
	}

	return setupStepRoute(true, true, !need)
}

// HandleSetupProfile renders and processes the profile step.
func HandleSetupProfile(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return c.Redirect(constants.LoginRoute)
	}

	if c.Method() == fiber.MethodPost {
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
			return flash.WithError(c, fm).Redirect(constants.SetupProfileRoute)
		}

		if user.ProfileCompletedAt == nil {
			now := time.Now()
			user.ProfileCompletedAt = &now
		}

		if err := database.GetDB().Save(user).Error; err != nil {
			log.Errorf("[Setup] Failed to save profile for user %d: %v", user.ID, err)
			fm := fiber.Map{
				"type":    "error",
				"message": "We could not save your profile. Please try again.",
			}
			return flash.WithError(c, fm).Redirect(constants.SetupProfileRoute)
		}

		// The navbar shows the session copy of the name
		_ = session.SetSessionValue(c, USER_NAME, user.Name)

		return c.Redirect(constants.SetupRoute)
	}

	return render(c, "setup/profile", " | Your profile", fiber.Map{
		"User": user,
		"Step": 1,
	})
}

// HandleSetupTier renders the tier choices and applies the selection. Starter
// memberships leave this step ready to finish; paid tiers continue to the
// subscription step.
func HandleSetupTier(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return c.Redirect(constants.LoginRoute)
	}

	if c.Method() == fiber.MethodPost {
		svc := billingService()
		ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
		defer cancel()

		membership, err := svc.SelectTier(ctx, user, tiers.Tier(c.FormValue("tier")))
		if err != nil {
			if errors.Is(err, billing.ErrInvalidTier) {
				fm := fiber.Map{
					"type":    "error",
					"message": "Please choose one of the offered memberships.",
				}
				return flash.WithError(c, fm).Redirect(constants.SetupTierRoute)
			}

			log.Errorf("[Setup] Tier selection failed for user %d: %v", user.ID, err)
			fm := fiber.Map{
				"type":    "error",
				"message": "We could not set up your membership. Please try again later.",
			}
			return flash.WithError(c, fm).Redirect(constants.SetupTierRoute)
		}

		_ = session.SetSessionValue(c, USER_TIER, membership.Tier)

		return c.Redirect(constants.SetupRoute)
	}

	type tierOption struct {
		Code        string
		Description string
	}
	options := make([]tierOption, 0, len(tiers.All()))
	for _, t := range tiers.All() {
		desc, _ := tiers.Description(t)
		options = append(options, tierOption{Code: string(t), Description: desc})
	}

	return render(c, "setup/tier", " | Choose your membership", fiber.Map{
		"Tiers": options,
		"Step":  2,
	})
}

// HandleSetupSubscription re-evaluates the subscription state on GET and
// starts a Stripe checkout on POST. Checkout success and cancel both return
// here; the re-evaluation decides whether the step is finished.
func HandleSetupSubscription(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return c.Redirect(constants.LoginRoute)
	}

	svc := billingService()
	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	membership, err := svc.GetMembership(ctx, user.ID)
	if err != nil {
		log.Errorf("[Setup] Failed to load membership for user %d: %v", user.ID, err)
		return c.Redirect(constants.SetupTierRoute)
	}
	if membership == nil {
		return c.Redirect(constants.SetupTierRoute)
	}

	if c.Method() == fiber.MethodPost {
		successURL := publicBaseURL() + constants.SetupSubscriptionRoute + "?success=1"
		cancelURL := publicBaseURL() + constants.SetupSubscriptionRoute + "?canceled=1"

		checkoutURL, err := svc.StartCheckout(ctx, membership, successURL, cancelURL)
		if err != nil {
			if errors.Is(err, tiers.ErrNoPriceConfigured) {
				fm := fiber.Map{
					"type":    "error",
					"message": "Payments are not configured for this membership yet. Please contact the office.",
				}
				return flash.WithError(c, fm).Redirect(constants.SetupSubscriptionRoute)
			}
			if errors.Is(err, billing.ErrNoCustomer) {
				return c.Redirect(constants.SetupTierRoute)
			}

			log.Errorf("[Setup] Checkout start failed for user %d: %v", user.ID, err)
			fm := fiber.Map{
				"type":    "error",
				"message": "We could not start the checkout. Please try again later.",
			}
			return flash.WithError(c, fm).Redirect(constants.SetupSubscriptionRoute)
		}

		return c.Redirect(checkoutURL, fiber.StatusSeeOther)
	}

	checkFailed := false
	need, err := svc.ShouldSetup(ctx, membership)
	if err != nil {
		log.Errorf("[Setup] Subscription check failed for user %d: %v", user.ID, err)
		checkFailed = true
	} else if !need {
		return c.Redirect(constants.SetupDoneRoute)
	}

	desc, _ := tiers.Description(tiers.Tier(membership.Tier))

	return render(c, "setup/subscription", " | Subscription", fiber.Map{
		"TierDescription": desc,
		"Canceled":        c.Query("canceled") == "1",
		"CheckFailed":     checkFailed,
		"Step":            3,
	})
}

// HandleSetupDone marks the onboarding as finished once the subscription is
// in place and opens the gate for the rest of the application.
func HandleSetupDone(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return c.Redirect(constants.LoginRoute)
	}

	svc := billingService()
	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	membership, err := svc.GetMembership(ctx, user.ID)
	if err != nil || membership == nil {
		return c.Redirect(constants.SetupTierRoute)
	}

	need, err := svc.ShouldSetup(ctx, membership)
	if err != nil {
		log.Errorf("[Setup] Subscription check failed for user %d: %v", user.ID, err)
		return c.Redirect(constants.SetupSubscriptionRoute)
	}
	if need {
		return c.Redirect(constants.SetupSubscriptionRoute)
	}

	if user.SetupCompletedAt == nil {
		now := time.Now()
		user.SetupCompletedAt = &now
		if err := database.GetDB().Save(user).Error; err != nil {
			log.Errorf("[Setup] Failed to mark setup complete for user %d: %v", user.ID, err)
		}
	}

	_ = session.SetSessionValue(c, SETUP_COMPLETE, "1")
	_ = session.SetSessionValue(c, USER_TIER, membership.Tier)

	desc, _ := tiers.Description(tiers.Tier(membership.Tier))

	return render(c, "setup/done", " | All done", fiber.Map{
		"TierDescription": desc,
		"Step":            4,
	})
}

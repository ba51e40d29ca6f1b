package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/MemberFox/MemberFox/internal/pkg/billing"
	"github.com/MemberFox/MemberFox/internal/pkg/constants"
	"github.com/MemberFox/MemberFox/internal/pkg/tiers"
)

// paymentsTimeout bounds the Stripe calls behind the payments pages.
const paymentsTimeout = 20 * time.Second

// HandlePayments is the payments landing: members with a Stripe customer go
// straight to the hosted billing portal, everyone else to tier selection.
func HandlePayments(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return c.Redirect(constants.LoginRoute)
	}

	svc := billingService()
	ctx, cancel := context.WithTimeout(context.Background(), paymentsTimeout)
	defer cancel()

	membership, err := svc.GetMembership(ctx, user.ID)
	if err != nil {
		log.Errorf("[Payments] Failed to load membership for user %d: %v", user.ID, err)
		fm := fiber.Map{
			"type":    "error",
			"message": "We could not load your membership. Please try again later.",
		}
		return flash.WithError(c, fm).Redirect(constants.MemberDashboardRoute)
	}
	if membership == nil || !membership.HasCustomer() {
		return c.Redirect(constants.SetupTierRoute)
	}

	portalURL, err := svc.PortalURL(ctx, membership, publicBaseURL()+constants.PaymentsOverviewRoute)
	if err != nil {
		log.Errorf("[Payments] Portal session failed for user %d: %v", user.ID, err)
		fm := fiber.Map{
			"type":    "error",
			"message": "The billing portal is not available right now. Please try again later.",
		}
		return flash.WithError(c, fm).Redirect(constants.PaymentsOverviewRoute)
	}

	return c.Redirect(portalURL, fiber.StatusSeeOther)
}

// HandlePaymentsOverview renders the invoice and payment-method tables.
// Starter members without a Stripe customer get the empty state instead of
// an error.
func HandlePaymentsOverview(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return c.Redirect(constants.LoginRoute)
	}

	svc := billingService()
	ctx, cancel := context.WithTimeout(context.Background(), paymentsTimeout)
	defer cancel()

	membership, err := svc.GetMembership(ctx, user.ID)
	if err != nil {
		log.Errorf("[Payments] Failed to load membership for user %d: %v", user.ID, err)
		fm := fiber.Map{
			"type":    "error",
			"message": "We could not load your membership. Please try again later.",
		}
		return flash.WithError(c, fm).Redirect(constants.MemberDashboardRoute)
	}
	if membership == nil {
		return c.Redirect(constants.SetupTierRoute)
	}

	desc, _ := tiers.Description(tiers.Tier(membership.Tier))
	data := fiber.Map{
		"TierDescription": desc,
		"HasCustomer":     membership.HasCustomer(),
		"Invoices":        []billing.InvoiceRow{},
		"PaymentMethods":  []billing.PaymentMethodRow{},
	}

	if membership.HasCustomer() {
		invoices, err := svc.Invoices(ctx, membership)
		if err != nil && !errors.Is(err, billing.ErrNoCustomer) {
			log.Errorf("[Payments] Invoice fetch failed for user %d: %v", user.ID, err)
			data["LoadError"] = true
		} else if invoices != nil {
			data["Invoices"] = invoices
		}

		methods, err := svc.PaymentMethods(ctx, membership)
		if err != nil && !errors.Is(err, billing.ErrNoCustomer) {
			log.Errorf("[Payments] Payment method fetch failed for user %d: %v", user.ID, err)
			data["LoadError"] = true
		} else if methods != nil {
			data["PaymentMethods"] = methods
		}
	}

	return render(c, "payments/overview", " | Payments", data)
}

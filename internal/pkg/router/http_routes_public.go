package router

import (
	"github.com/MemberFox/MemberFox/app/controllers"
	"github.com/MemberFox/MemberFox/internal/pkg/constants"
	"github.com/MemberFox/MemberFox/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Auth
	app.Get("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Magic link consumption; the signed token is the proof, no CSRF involved
	app.Get(constants.MagicConsumeRoute, controllers.HandleMagicConsume)

	// Email change confirmation; reached from the mail sent to the new address
	app.Get("/member/profile/verify-email-change", controllers.HandleVerifyEmailChange)

	// Billing provider webhooks (no CSRF, signature-verified in controller)
	app.Post(constants.StripeWebhookRoute, controllers.HandleStripeWebhook)
}

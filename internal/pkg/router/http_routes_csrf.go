package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/MemberFox/MemberFox/app/controllers"
	"github.com/MemberFox/MemberFox/internal/pkg/env"
	"github.com/MemberFox/MemberFox/internal/pkg/middleware"
)

// csrfConfig protects the HTML forms. API routes authenticate by key and are
// skipped.
func csrfConfig() csrf.Config {
	return csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}
}

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	group := app.Group("", cors.New(), csrf.New(csrfConfig()))

	group.Get("/", controllers.HandleStart)
	group.Get("/login", controllers.HandleAuthLogin)
	group.Post("/login", controllers.HandleAuthLogin)
	group.Get("/auth/magic", controllers.HandleMagicRequest)
	group.Post("/auth/magic", controllers.HandleMagicRequest)

	// Social OAuth; must come after /auth/magic so the literal route wins
	group.Get("/auth/:provider", controllers.HandleOAuthBegin)
	group.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Setup wizard (auth only; the completion gate must not cover the wizard)
	wizard := group.Group("/setup", middleware.RequireAuth)
	wizard.Get("/", controllers.HandleSetup)
	wizard.Get("/profile", controllers.HandleSetupProfile)
	wizard.Post("/profile", controllers.HandleSetupProfile)
	wizard.Get("/tier", controllers.HandleSetupTier)
	wizard.Post("/tier", controllers.HandleSetupTier)
	wizard.Get("/subscription", controllers.HandleSetupSubscription)
	wizard.Post("/subscription", controllers.HandleSetupSubscription)
	wizard.Get("/done", controllers.HandleSetupDone)

	// Everything below sits behind the completed-setup gate
	member := group.Group("/member", middleware.RequireAuth, middleware.RequireSetupComplete)
	member.Get("/dashboard", controllers.HandleMemberDashboard)
	member.Get("/profile", controllers.HandleMemberProfile)
	member.Post("/profile", controllers.HandleMemberProfile)
	member.Post("/avatar", controllers.HandleMemberAvatar)

	payments := group.Group("/payments", middleware.RequireAuth, middleware.RequireSetupComplete)
	payments.Get("/", controllers.HandlePayments)
	payments.Get("/overview", controllers.HandlePaymentsOverview)

	settings := group.Group("/user/settings", middleware.RequireAuth, middleware.RequireSetupComplete)
	settings.Get("/", controllers.HandleUserSettings)
	settings.Post("/", controllers.HandleUserSettings)
	settings.Post("/api-key", controllers.HandleUserAPIKeyGenerate)
	settings.Post("/api-key/revoke", controllers.HandleUserAPIKeyRevoke)

	h.registerAdminRoutes(group)
}

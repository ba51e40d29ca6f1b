package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MemberFox/MemberFox/app/controllers"
	"github.com/MemberFox/MemberFox/internal/pkg/middleware"
	"github.com/MemberFox/MemberFox/internal/pkg/oauth"
	"github.com/MemberFox/MemberFox/internal/pkg/session"
)

// HttpRouter installs the HTML-facing routes plus the session, OAuth and
// user-context plumbing they depend on.
type HttpRouter struct{}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	session.NewSessionStore()
	oauth.Setup()

	// Every request carries the user context before any route runs
	app.Use(middleware.UserContextMiddleware)

	controllers.InitializeAdminController()

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

package router

import "github.com/gofiber/fiber/v2"

// Router installs a related set of routes on the app
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter registers every route group. The HTML router must come first
// because it initializes the session store, the OAuth providers and the
// global user-context middleware the API routes rely on.
func InstallRouter(app *fiber.App) {
	for _, r := range []Router{NewHttpRouter(), NewApiRouter()} {
		r.InstallRouter(app)
	}
}

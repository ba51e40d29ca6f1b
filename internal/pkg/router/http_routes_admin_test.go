package router

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The admin mutations are browser form POSTs and sit inside the CSRF group
// like every other HTML form.
func TestAdminMutationsRejectMissingCSRFToken(t *testing.T) {
	app := fiber.New()
	HttpRouter{}.registerCSRFProtectedRoutes(app)

	for _, path := range []string{
		"/admin/settings",
		"/admin/export",
		"/admin/members/1/disable",
	} {
		req := httptest.NewRequest(fiber.MethodPost, path, nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, path)
	}
}

func TestAdminPagesRedirectAnonymousUsers(t *testing.T) {
	app := fiber.New()
	HttpRouter{}.registerCSRFProtectedRoutes(app)

	for _, path := range []string{
		"/admin",
		"/admin/members",
		"/admin/webhooks",
		"/admin/settings",
	} {
		req := httptest.NewRequest(fiber.MethodGet, path, nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode, path)
	}
}

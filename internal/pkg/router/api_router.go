package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apiv1 "github.com/MemberFox/MemberFox/internal/api/v1"
)

// ApiRouter mounts the JSON API under /api.
type ApiRouter struct{}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (a ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", apiRoot)

	v1 := api.Group("/v1")
	apiv1.RegisterHandlers(v1, apiv1.NewAPIServer())
}

func apiRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Hello from api"})
}

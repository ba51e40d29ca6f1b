package router

import (
	"github.com/MemberFox/MemberFox/app/controllers"
	"github.com/MemberFox/MemberFox/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

// registerAdminRoutes takes the CSRF-protected group as root: the disable,
// export and settings mutations are plain HTML form POSTs.
func (h HttpRouter) registerAdminRoutes(root fiber.Router) {
	adminGroup := root.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/", controllers.HandleAdminDashboard)

	// Member management
	adminGroup.Get("/members", controllers.HandleAdminMembers)
	adminGroup.Get("/members/:id", controllers.HandleAdminMemberDetail)
	adminGroup.Post("/members/:id/disable", controllers.HandleAdminMemberDisable)

	// CSV export to object storage (queued)
	adminGroup.Post("/export", controllers.HandleAdminExport)

	// Billing webhook log
	adminGroup.Get("/webhooks", controllers.HandleAdminWebhooks)

	// Application settings
	adminGroup.Get("/settings", controllers.HandleAdminSettings)
	adminGroup.Post("/settings", controllers.HandleAdminSettingsUpdate)
}

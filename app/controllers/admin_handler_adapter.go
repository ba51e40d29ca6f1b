package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MemberFox/MemberFox/app/repository"
)

var adminController *AdminController

// InitializeAdminController wires the shared admin controller against the
// global repository set. Called once at startup, after the factory exists.
func InitializeAdminController() {
	adminController = NewAdminController(repository.GetGlobalRepositories())
}

// GetAdminController returns the shared admin controller, initializing it on
// first use.
func GetAdminController() *AdminController {
	if adminController == nil {
		InitializeAdminController()
	}
	return adminController
}

// The router registers plain fiber handlers; these adapters bridge it to the
// repository-backed controller methods.

func HandleAdminDashboard(c *fiber.Ctx) error { return GetAdminController().HandleDashboard(c) }

func HandleAdminMembers(c *fiber.Ctx) error { return GetAdminController().HandleMembers(c) }

func HandleAdminMemberDetail(c *fiber.Ctx) error { return GetAdminController().HandleMemberDetail(c) }

func HandleAdminMemberDisable(c *fiber.Ctx) error {
	return GetAdminController().HandleMemberDisable(c)
}

func HandleAdminExport(c *fiber.Ctx) error { return GetAdminController().HandleExport(c) }

func HandleAdminWebhooks(c *fiber.Ctx) error { return GetAdminController().HandleWebhooks(c) }

func HandleAdminSettings(c *fiber.Ctx) error { return GetAdminController().HandleSettings(c) }

func HandleAdminSettingsUpdate(c *fiber.Ctx) error {
	return GetAdminController().HandleSettingsUpdate(c)
}

package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/MemberFox/MemberFox/app/controllers"
	"github.com/MemberFox/MemberFox/internal/pkg/statistics"
)

// APIServer implements the ServerInterface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetMemberStats returns the cached public member statistics
func (s *APIServer) GetMemberStats(c *fiber.Ctx) error {
	data := statistics.GetStatisticsData()

	return c.Status(fiber.StatusOK).JSON(MemberStats{
		TotalMembers:        data.TotalMembers,
		ActiveSubscriptions: data.ActiveSubscriptions,
		NewMembersToday:     data.NewMembersToday,
		TierCounts:          data.TierCounts,
	})
}

// GetUserProfile returns account information for the authenticated user (API key).
// Security is enforced via API key middleware attached in RegisterHandlers.
func (s *APIServer) GetUserProfile(c *fiber.Ctx) error {
	return controllers.HandleGetUserAccount(c)
}

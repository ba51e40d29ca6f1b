// Package apiv1 provides the handlers behind public/docs/v1/openapi.yml.
package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MemberFox/MemberFox/internal/pkg/middleware"
)

// Pong defines model for Pong.
type Pong struct {
	Ping string `json:"ping"`
}

// MemberStats defines model for MemberStats.
type MemberStats struct {
	TotalMembers        int            `json:"total_members"`
	ActiveSubscriptions int            `json:"active_subscriptions"`
	NewMembersToday     int            `json:"new_members_today"`
	TierCounts          map[string]int `json:"tier_counts"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// GetPing returns a liveness probe response
	GetPing(c *fiber.Ctx) error
	// GetMemberStats returns the public member statistics
	GetMemberStats(c *fiber.Ctx) error
	// GetUserProfile returns the authenticated user's account
	GetUserProfile(c *fiber.Ctx) error
}

// RegisterHandlers attaches all v1 routes to the given router group.
// The profile endpoint requires an API key; everything else is public.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	router.Get("/ping", si.GetPing)
	router.Get("/stats/members", si.GetMemberStats)
	router.Get("/profile", middleware.APIKeyAuthMiddleware(), si.GetUserProfile)
}

package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MemberFox/MemberFox/internal/pkg/statistics"
	"github.com/MemberFox/MemberFox/internal/pkg/usercontext"
)

// HandleStart renders the landing page with the cached member statistics
func HandleStart(c *fiber.Ctx) error {
	statsData := statistics.GetStatisticsData()

	return render(c, "index", "", fiber.Map{
		"TotalMembers":        statsData.TotalMembers,
		"ActiveSubscriptions": statsData.ActiveSubscriptions,
		"NewMembersToday":     statsData.NewMembersToday,
		"SetupComplete":       usercontext.HasCompletedSetup(c),
	})
}

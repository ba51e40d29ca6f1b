package controllers

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/app/repository"
	"github.com/MemberFox/MemberFox/internal/pkg/constants"
	"github.com/MemberFox/MemberFox/internal/pkg/database"
	"github.com/MemberFox/MemberFox/internal/pkg/jobqueue"
	"github.com/MemberFox/MemberFox/internal/pkg/statistics"
	"github.com/MemberFox/MemberFox/internal/pkg/tiers"
	"github.com/MemberFox/MemberFox/internal/pkg/usercontext"
)

const (
	adminQueryTimeout = 15 * time.Second
	membersPerPage    = 20
	membersRoute      = "/admin/members"
)

// AdminController serves the admin area on top of the repository layer.
type AdminController struct {
	repos *repository.Repositories
}

func NewAdminController(repos *repository.Repositories) *AdminController {
	return &AdminController{repos: repos}
}

// adminFlash sets a flash message of the given kind and redirects.
func adminFlash(c *fiber.Ctx, kind, message, path string) error {
	fm := fiber.Map{"type": kind, "message": message}
	switch kind {
	case "success":
		return flash.WithSuccess(c, fm).Redirect(path)
	case "info":
		return flash.WithInfo(c, fm).Redirect(path)
	default:
		return flash.WithError(c, fm).Redirect(path)
	}
}

// handleError logs the cause, flashes a readable message and sends the admin
// back to the page they came from.
func (ac *AdminController) handleError(c *fiber.Ctx, message string, err error) error {
	log.Printf("Admin Controller Error: %s - %v", message, err)

	redirectPath := constants.AdminRoute
	if strings.Contains(c.Path(), "/members") {
		redirectPath = membersRoute
	}
	return adminFlash(c, "error", message, redirectPath)
}

// memberIDParam parses the :id route parameter.
func memberIDParam(c *fiber.Ctx) (uint, bool) {
	raw := c.Params("id")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// tierRow pairs a tier code with its label and member count for the dashboard
type tierRow struct {
	Code        string
	Description string
	Count       int64
}

// tierBreakdown lists every selectable tier with its current member count,
// including tiers nobody picked yet.
func tierBreakdown(counts []models.TierStats) []tierRow {
	rows := make([]tierRow, 0, len(tiers.All()))
	for _, t := range tiers.All() {
		row := tierRow{Code: string(t)}
		row.Description, _ = tiers.Description(t)
		for _, tc := range counts {
			if tc.Tier == string(t) {
				row.Count = tc.Count
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// HandleDashboard renders the admin dashboard.
func (ac *AdminController) HandleDashboard(c *fiber.Ctx) error {
	totalMembers, err := ac.repos.User.Count()
	if err != nil {
		return ac.handleError(c, "Failed to get member count", err)
	}
	totalMemberships, err := ac.repos.Membership.Count()
	if err != nil {
		return ac.handleError(c, "Failed to get membership count", err)
	}
	tierCounts, err := ac.repos.Membership.CountByTier()
	if err != nil {
		return ac.handleError(c, "Failed to get tier counts", err)
	}
	recentMembers, err := ac.repos.User.List(0, 5)
	if err != nil {
		return ac.handleError(c, "Failed to get recent members", err)
	}

	// Cached aggregate numbers (new members today, active subscriptions)
	statsData := statistics.GetStatisticsData()

	db := database.GetDB()
	recentExports, err := models.FindRecentMemberExports(db, 5)
	if err != nil {
		log.Printf("Failed to load recent exports: %v", err)
	}
	pendingExports, _ := models.CountExportsByStatus(db, models.ExportStatusPending)
	runningExports, _ := models.CountExportsByStatus(db, models.ExportStatusRunning)

	// Queue health, best effort when Redis is unreachable
	manager := jobqueue.GetManager()
	queueCtx, queueCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer queueCancel()
	pendingJobs, _ := manager.GetQueue().Depth(queueCtx)
	activeJobs, _ := manager.GetQueue().InFlight(queueCtx)

	return render(c, "admin/dashboard", " | Admin Dashboard", fiber.Map{
		"TotalMembers":        totalMembers,
		"TotalMemberships":    totalMemberships,
		"NewMembersToday":     statsData.NewMembersToday,
		"ActiveSubscriptions": statsData.ActiveSubscriptions,
		"TierRows":            tierBreakdown(tierCounts),
		"MemberStats":         ac.lastSevenDaysStats(),
		"RecentMembers":       recentMembers,
		"RecentExports":       recentExports,
		"PendingExports":      pendingExports,
		"RunningExports":      runningExports,
		"JobQueueRunning":     manager.IsRunning(),
		"PendingJobs":         pendingJobs,
		"ActiveJobs":          activeJobs,
	})
}

// HandleMembers renders the paginated member list, or search results when a
// query is present.
func (ac *AdminController) HandleMembers(c *fiber.Ctx) error {
	if query := strings.TrimSpace(c.Query("q", "")); query != "" {
		return ac.handleMemberSearch(c, query)
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}

	totalMembers, err := ac.repos.User.Count()
	if err != nil {
		return ac.handleError(c, "Failed to get member count", err)
	}
	members, err := ac.repos.User.GetWithMemberships((page-1)*membersPerPage, membersPerPage)
	if err != nil {
		return ac.handleError(c, "Failed to get members", err)
	}

	return render(c, "admin/members", " | Member Management", fiber.Map{
		"Members":      members,
		"TotalMembers": totalMembers,
		"Page":         page,
		"Pages":        pageNumbers(totalMembers, membersPerPage),
		"Query":        "",
	})
}

// pageNumbers builds the 1-based page list for the pagination bar.
func pageNumbers(total int64, perPage int) []int {
	count := int(total) / perPage
	if int(total)%perPage > 0 {
		count++
	}
	pages := make([]int, count)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// handleMemberSearch searches members by name or email.
func (ac *AdminController) handleMemberSearch(c *fiber.Ctx, query string) error {
	members, err := ac.repos.User.SearchWithMemberships(query)
	if err != nil {
		return ac.handleError(c, "Search failed", err)
	}

	flash.WithInfo(c, fiber.Map{
		"type":    "info",
		"message": "Search results for '" + query + "': " + strconv.Itoa(len(members)) + " members found",
	})

	return render(c, "admin/members", " | Member Search", fiber.Map{
		"Members":      members,
		"TotalMembers": int64(len(members)),
		"Page":         1,
		"Pages":        []int{1},
		"Query":        query,
	})
}

// HandleMemberDetail renders a single member with membership, subscription
// windows and account settings.
func (ac *AdminController) HandleMemberDetail(c *fiber.Ctx) error {
	id, ok := memberIDParam(c)
	if !ok {
		return c.Redirect(membersRoute)
	}

	user, err := ac.repos.User.GetByID(id)
	if err != nil {
		return adminFlash(c, "error", "Member not found", membersRoute)
	}

	data := fiber.Map{"Member": user}
	ac.attachMembershipDetails(data, user.ID)

	// Account settings state (newsletter, visibility, API key)
	if settings, err := models.GetOrCreateUserSettings(database.GetDB(), user.ID); err == nil {
		data["Settings"] = settings
	}

	return render(c, "admin/member_detail", " | Member "+user.Name, data)
}

// attachMembershipDetails loads the membership block of the member detail
// page. Missing memberships just leave the keys unset.
func (ac *AdminController) attachMembershipDetails(data fiber.Map, userID uint) {
	membership, err := ac.repos.Membership.GetByUserID(userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load membership for user %d: %v", userID, err)
		}
		return
	}

	desc, _ := tiers.Description(tiers.Tier(membership.Tier))
	data["Membership"] = membership
	data["TierDescription"] = desc

	subs, err := ac.repos.Membership.ListSubscriptions(membership.ID)
	if err != nil {
		log.Printf("Failed to load subscriptions for membership %d: %v", membership.ID, err)
	}
	now := time.Now()
	for _, sub := range subs {
		if sub.ActiveAt(now) {
			data["ActiveSubscription"] = sub
			break
		}
	}
	data["Subscriptions"] = subs
}

// HandleMemberDisable disables a member account.
func (ac *AdminController) HandleMemberDisable(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.SendStatus(fiber.StatusMethodNotAllowed)
	}

	id, ok := memberIDParam(c)
	if !ok {
		return c.Redirect(membersRoute)
	}
	detailRoute := membersRoute + "/" + strconv.FormatUint(uint64(id), 10)

	// Admins cannot lock themselves out
	if usercontext.GetUserID(c) == id {
		return adminFlash(c, "error", "You cannot disable your own account", membersRoute)
	}

	user, err := ac.repos.User.GetByID(id)
	if err != nil {
		return adminFlash(c, "error", "Member not found", membersRoute)
	}
	if user.Status == models.STATUS_DISABLED {
		return adminFlash(c, "info", "This member is already disabled", detailRoute)
	}

	user.Status = models.STATUS_DISABLED
	if err := ac.repos.User.Update(user); err != nil {
		return adminFlash(c, "error", "Failed to disable member: "+err.Error(), detailRoute)
	}

	go statistics.UpdateStatisticsCache()

	return adminFlash(c, "success", "Member disabled successfully", detailRoute)
}

// HandleExport queues a member CSV export to object storage.
func (ac *AdminController) HandleExport(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.SendStatus(fiber.StatusMethodNotAllowed)
	}

	export, _, err := jobqueue.GetManager().GetQueue().EnqueueMemberExportJob(usercontext.GetUserID(c))
	if err != nil {
		return ac.handleError(c, "Failed to queue the member export", err)
	}

	message := "Member export #" + strconv.FormatUint(uint64(export.ID), 10) + " queued"
	return adminFlash(c, "success", message, constants.AdminRoute)
}

// HandleWebhooks renders the webhook event log with recent payment intents.
func (ac *AdminController) HandleWebhooks(c *fiber.Ctx) error {
	svc := billingService()
	ctx, cancel := context.WithTimeout(context.Background(), adminQueryTimeout)
	defer cancel()

	events, err := svc.RecentWebhookEvents(ctx, 50)
	if err != nil {
		return ac.handleError(c, "Failed to load webhook events", err)
	}
	intents, err := svc.RecentPaymentIntents(ctx, 50)
	if err != nil {
		return ac.handleError(c, "Failed to load payment intents", err)
	}

	return render(c, "admin/webhooks", " | Webhook Log", fiber.Map{
		"Events":  events,
		"Intents": intents,
	})
}

// lastSevenDaysStats returns the signup series for the dashboard chart. Days
// without signups appear with a zero count so the chart axis stays complete.
func (ac *AdminController) lastSevenDaysStats() []models.DailyStats {
	const days = 7
	now := time.Now()
	start := now.AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)
	end := now.Truncate(24 * time.Hour).Add(24*time.Hour - time.Nanosecond)

	stats, err := ac.repos.User.GetDailyStats(start, end)
	if err != nil {
		log.Printf("Error getting daily member stats: %v", err)
		stats = nil
	}
	return zeroFilledStats(stats, start, days)
}

// zeroFilledStats spreads sparse per-day counts over a contiguous date range.
func zeroFilledStats(stats []models.DailyStats, start time.Time, days int) []models.DailyStats {
	byDate := make(map[string]int, len(stats))
	for _, stat := range stats {
		byDate[stat.Date] = stat.Count
	}

	result := make([]models.DailyStats, days)
	for i := range result {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		result[i] = models.DailyStats{Date: date, Count: byDate[date]}
	}
	return result
}

// HandleSettings renders the application settings page.
func (ac *AdminController) HandleSettings(c *fiber.Ctx) error {
	settings, err := ac.repos.Setting.Get()
	if err != nil {
		return ac.handleError(c, "Failed to get settings", err)
	}
	return render(c, "admin/settings", " | Settings", fiber.Map{
		"Settings": settings,
	})
}

// HandleSettingsUpdate persists the settings form.
func (ac *AdminController) HandleSettingsUpdate(c *fiber.Ctx) error {
	workers, _ := strconv.Atoi(c.FormValue("job_queue_worker_count"))

	newSettings := &models.AppSettings{
		SiteTitle:           c.FormValue("site_title"),
		SiteDescription:     c.FormValue("site_description"),
		RegistrationEnabled: c.FormValue("registration_enabled") == "on",
		JobQueueWorkerCount: clampWorkers(workers),
	}

	if err := ac.repos.Setting.Save(newSettings); err != nil {
		return adminFlash(c, "error", "Failed to save settings: "+err.Error(), "/admin/settings")
	}
	return adminFlash(c, "success", "Settings saved successfully", "/admin/settings")
}

// clampWorkers keeps the worker count inside the range the queue supports.
func clampWorkers(n int) int {
	switch {
	case n < 1:
		return 1
	case n > 50:
		return 50
	default:
		return n
	}
}

package constants

// Static route constants
const (
	PublicRoute       = "/"
	LoginRoute        = "/login"
	LogoutRoute       = "/logout"
	MagicRequestRoute = "/auth/magic"
	MagicConsumeRoute = "/auth/magic/consume"

	SetupRoute             = "/setup"
	SetupProfileRoute      = "/setup/profile"
	SetupTierRoute         = "/setup/tier"
	SetupSubscriptionRoute = "/setup/subscription"
	SetupDoneRoute         = "/setup/done"

	PaymentsRoute         = "/payments/"
	PaymentsOverviewRoute = "/payments/overview"
	StripeWebhookRoute    = "/webhooks/stripe"

	MemberDashboardRoute = "/member/dashboard"
	UserSettingsRoute    = "/user/settings"
	AdminRoute           = "/admin"
)

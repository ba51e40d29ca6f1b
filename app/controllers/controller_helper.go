package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/internal/pkg/env"
	"github.com/MemberFox/MemberFox/internal/pkg/usercontext"
)

// render wraps c.Render with the shared layout and the keys every page
// template expects: title, site branding, login state, flash message and
// CSRF token.
func render(c *fiber.Ctx, view string, title string, data fiber.Map) error {
	userCtx := usercontext.GetUserContext(c)

	if data == nil {
		data = fiber.Map{}
	}
	data["Title"] = title
	data["IsLoggedIn"] = userCtx.IsLoggedIn
	data["IsAdmin"] = userCtx.IsAdmin
	data["Username"] = userCtx.Username
	data["Flash"] = flash.Get(c)
	if token, ok := c.Locals("csrf").(string); ok {
		data["CSRFToken"] = token
	}

	data["SiteTitle"] = "MemberFox"
	data["SiteDescription"] = ""
	if settings := models.GetAppSettings(); settings != nil {
		data["SiteTitle"] = settings.GetSiteTitle()
		data["SiteDescription"] = settings.GetSiteDescription()
	}

	return c.Render(view, data, "layouts/main")
}

// publicBaseURL returns the externally reachable origin used to build
// absolute links in mails and provider callback URLs.
func publicBaseURL() string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base
}

// GetClientIP determines the actual client IP address considering proxies and dual stack
// Returns both IPv4 and IPv6 addresses if available
func GetClientIP(c *fiber.Ctx) (string, string) {
	ipv4 := ""
	ipv6 := ""

	assign := func(ip string) {
		ip = strings.TrimSpace(ip)
		if ip == "" {
			return
		}
		if strings.Contains(ip, ":") {
			if ipv6 == "" {
				ipv6 = ip
			}
		} else if ipv4 == "" {
			ipv4 = ip
		}
	}

	// Cloudflare puts the original client IP into its own header
	assign(c.Get("CF-Connecting-IP"))

	// X-Forwarded-For can carry both families across a proxy chain; the
	// first entry of each family wins
	for _, ip := range strings.Split(c.Get("X-Forwarded-For"), ",") {
		assign(ip)
	}

	if ipv4 != "" || ipv6 != "" {
		return ipv4, ipv6
	}

	// No proxy headers, fall back to the connection address
	ipAddr := c.IP()
	if strings.HasPrefix(ipAddr, "::ffff:") && strings.Contains(ipAddr, ".") {
		// IPv4 mapped into IPv6 notation
		ipAddr = strings.TrimPrefix(ipAddr, "::ffff:")
	}
	assign(ipAddr)
	assign(c.Get("X-Real-IP"))

	return ipv4, ipv6
}

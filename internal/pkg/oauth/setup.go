// Package oauth registers the external login providers and the Redis-backed
// store that carries the OAuth state between redirect and callback.
package oauth

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/MemberFox/MemberFox/internal/pkg/cache"
	"github.com/MemberFox/MemberFox/internal/pkg/env"
)

const (
	// stateDB keeps OAuth state separate from cache (0) and sessions (1)
	stateDB  = 2
	stateTTL = 72 * time.Hour
)

// Setup registers the Google and GitHub providers and points goth_fiber at a
// Redis-backed state store. Calling it again just re-registers the providers.
func Setup() {
	base := callbackBase()

	goth.UseProviders(
		google.New(
			env.GetEnv("GOOGLE_KEY", ""),
			env.GetEnv("GOOGLE_SECRET", ""),
			base+"/auth/google/callback",
			"email", "profile",
		),
		github.New(
			env.GetEnv("GITHUB_KEY", ""),
			env.GetEnv("GITHUB_SECRET", ""),
			base+"/auth/github/callback",
			"user:email",
		),
	)

	gothfiber.SessionStore = newStateStore()
}

// callbackBase returns the absolute URL prefix providers redirect back to.
func callbackBase() string {
	if base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/"); base != "" {
		return base
	}
	return "http://localhost:" + env.GetEnv("APP_PORT", "4000")
}

// newStateStore builds the cookie session store that holds the provider
// state, on the same Redis the app cache uses but in its own database.
func newStateStore() *session.Store {
	host, port, username, password := cacheAddress()

	return session.New(session.Config{
		Storage: redisstorage.New(redisstorage.Config{
			Host:     host,
			Port:     port,
			Username: username,
			Password: password,
			Database: stateDB,
			Reset:    false,
		}),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     stateTTL,
	})
}

// cacheAddress splits the cache client's address into the host/port pair the
// fiber Redis storage wants, falling back to localhost defaults.
func cacheAddress() (string, int, string, string) {
	host, port := "127.0.0.1", 6379
	opts := cache.GetClient().Options()
	if opts == nil {
		return host, port, "", ""
	}

	if opts.Addr != "" {
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if parsed, perr := strconv.Atoi(p); perr == nil {
				port = parsed
			}
		} else {
			host = opts.Addr
		}
	}
	return host, port, opts.Username, opts.Password
}

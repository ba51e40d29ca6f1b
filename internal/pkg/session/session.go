package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/MemberFox/MemberFox/internal/pkg/cache"
	"github.com/MemberFox/MemberFox/internal/pkg/env"
)

// Sessions live in Redis DB 1, away from the cache in DB 0.
const (
	sessionDB     = 1
	sessionTTL    = 24 * time.Hour
	sessionCookie = "session_id"
)

var store *session.Store

// NewSessionStore builds the Redis-backed session store. Sessions last a
// day; magic-link members have no password to quickly sign back in with.
func NewSessionStore() *session.Store {
	host, port, password := cacheEndpoint()

	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: sessionDB,
		Reset:    false,
	})

	store = session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   !env.IsDev(),
		Expiration:     sessionTTL,
		KeyLookup:      "cookie:" + sessionCookie,
	})
	return store
}

// cacheEndpoint derives host, port and password from the shared Redis client
// so sessions follow the same endpoint as the cache.
func cacheEndpoint() (string, int, string) {
	host, port := "localhost", 6379
	password := env.GetEnv("CACHE_PASSWORD", "")

	client := cache.GetClient()
	if client == nil {
		return host, port, password
	}
	if h, p, err := net.SplitHostPort(client.Options().Addr); err == nil {
		host = h
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	if p := client.Options().Password; p != "" {
		password = p
	}
	return host, port, password
}

// GetSessionStore returns the store built by NewSessionStore.
func GetSessionStore() *session.Store {
	return store
}

// SetSessionValue writes one string value into the caller's session.
func SetSessionValue(c *fiber.Ctx, key, value string) error {
	if store == nil {
		return fmt.Errorf("session store not initialized")
	}
	sess, err := store.Get(c)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	sess.Set(key, value)
	return sess.Save()
}

// GetSessionValue reads one string value from the caller's session, empty
// when absent.
func GetSessionValue(c *fiber.Ctx, key string) string {
	if store == nil {
		return ""
	}
	sess, err := store.Get(c)
	if err != nil {
		return ""
	}
	if value, ok := sess.Get(key).(string); ok {
		return value
	}
	return ""
}

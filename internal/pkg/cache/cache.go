package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MemberFox/MemberFox/internal/pkg/env"
)

// The cache occupies Redis DB 0. Sessions and OAuth state use their own
// databases on the same server.
var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache connects the shared Redis client. A failed ping is logged but
// not fatal, callers degrade per operation.
func SetupCache() {
	addr := fmt.Sprintf("%s:%s",
		env.GetEnv("CACHE_HOST", "localhost"),
		env.GetEnv("CACHE_PORT", "6379"))

	client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("Warning: Redis cache unreachable at %s: %v", addr, err)
		return
	}
	log.Printf("Connected to Redis cache at %s", addr)
}

// GetClient returns the shared client, connecting lazily when needed.
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value under key for the given lifetime.
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// SetNX stores the value only when the key is absent and reports whether it
// was set. Used for single-flight guards like the magic-mail cooldown.
func SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	return GetClient().SetNX(ctx, key, value, expiration).Result()
}

// Get returns the string value stored under key.
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// GetInt returns the integer value stored under key.
func GetInt(key string) (int, error) {
	return GetClient().Get(ctx, key).Int()
}

// Delete removes the key.
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}

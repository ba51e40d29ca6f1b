//go:build integration
// +build integration

package jobqueue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MemberFox/MemberFox/internal/pkg/env"
)

// Integration tests run against DB 14 so they never touch application keys.
const isolatedJobQueueTestRedisDB = 14

type redisCandidate struct {
	host     string
	port     string
	password string
}

// resolveTestRedis probes the usual compose/service endpoints and returns the
// first reachable one. Skips the calling test when none answers.
func resolveTestRedis(t *testing.T) redisCandidate {
	t.Helper()

	candidates := []redisCandidate{
		{env.GetEnv("CACHE_HOST", ""), env.GetEnv("CACHE_PORT", "6379"), env.GetEnv("CACHE_PASSWORD", "")},
		{"cache", "6379", ""},
		{"memberfox-cache", "6379", "memberfox"},
		{"localhost", "6379", ""},
		{"127.0.0.1", "6379", ""},
	}

	var lastErr error
	for _, c := range candidates {
		if c.host == "" {
			continue
		}
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", c.host, c.port),
			Password: c.password,
			DB:       0,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		_, err := client.Ping(ctx).Result()
		cancel()
		_ = client.Close()
		if err == nil {
			return c
		}
		lastErr = err
	}

	t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", lastErr)
	return redisCandidate{}
}

// newIsolatedRedisClient connects to the given DB and flushes it before and
// after the test.
func newIsolatedRedisClient(t *testing.T, db int) *redis.Client {
	t.Helper()

	c := resolveTestRedis(t)
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", c.host, c.port),
		Password: c.password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	_, err := client.Ping(ctx).Result()
	cancel()
	if err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: isolated DB ping failed (%v)", err)
	}

	if err := client.FlushDB(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("failed to flush isolated redis db %d: %v", db, err)
	}

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	return client
}

// resetJobQueueRedisWithClient removes all job queue keys from the given client.
func resetJobQueueRedisWithClient(t *testing.T, client *redis.Client) {
	t.Helper()

	ctx := context.Background()

	keys := []string{
		pendingKey,
		processingKey,
		statsKey,
	}

	iter := client.Scan(ctx, 0, jobKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		t.Fatalf("failed to scan redis keys: %v", err)
	}

	if err := client.Del(ctx, keys...).Err(); err != nil {
		t.Fatalf("failed to cleanup redis keys: %v", err)
	}
}

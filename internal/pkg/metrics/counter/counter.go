package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MemberFox/MemberFox/internal/pkg/cache"
	"github.com/MemberFox/MemberFox/internal/pkg/database"
)

// Per-user activity counters are staged as Redis hashes (field = user ID,
// value = pending increment) and flushed into users columns in batches.
// Writes on the request path stay cheap this way.
type metric struct {
	redisKey string
	column   string
}

var metrics = []metric{
	{"counters:logins", "login_count"},
	{"counters:magic_mails", "magic_mail_count"},
	{"counters:profile_views", "profile_view_count"},
}

func increment(m metric, userID uint) error {
	field := strconv.FormatUint(uint64(userID), 10)
	return cache.GetClient().HIncrBy(context.Background(), m.redisKey, field, 1).Err()
}

// AddUserLogin records a completed login for the user.
func AddUserLogin(userID uint) error {
	return increment(metrics[0], userID)
}

// AddMagicMail records a delivered magic-link mail for the user.
func AddMagicMail(userID uint) error {
	return increment(metrics[1], userID)
}

// AddProfileView records one view of the user's public profile.
func AddProfileView(userID uint) error {
	return increment(metrics[2], userID)
}

// FlushAll drains every staged counter hash into the users table.
func FlushAll() error {
	for _, m := range metrics {
		if err := flush(m); err != nil {
			return fmt.Errorf("flush %s: %w", m.column, err)
		}
	}
	return nil
}

func flush(m metric) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// RENAME moves the hash aside atomically, so increments arriving during
	// the flush land in a fresh hash instead of getting lost.
	tmpKey := fmt.Sprintf("%s:draining:%d", m.redisKey, time.Now().UnixNano())
	if err := rdb.Rename(ctx, m.redisKey, tmpKey).Err(); err != nil {
		if isMissingKey(err) {
			return nil
		}
		return err
	}
	defer rdb.Del(ctx, tmpKey)

	staged, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}

	increments := parseIncrements(staged)
	if len(increments) == 0 {
		return nil
	}

	query, args := buildIncrementSQL(m.column, increments)
	return database.GetDB().Exec(query, args...).Error
}

func isMissingKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such key") || msg == "redis: nil"
}

type userIncrement struct {
	userID uint64
	delta  int64
}

// parseIncrements turns the drained hash into sorted (user, delta) pairs,
// skipping malformed fields and zero deltas.
func parseIncrements(staged map[string]string) []userIncrement {
	increments := make([]userIncrement, 0, len(staged))
	for field, value := range staged {
		userID, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		delta, err := strconv.ParseInt(value, 10, 64)
		if err != nil || delta == 0 {
			continue
		}
		increments = append(increments, userIncrement{userID: userID, delta: delta})
	}
	sort.Slice(increments, func(i, j int) bool { return increments[i].userID < increments[j].userID })
	return increments
}

// buildIncrementSQL composes a single batched UPDATE:
//
//	UPDATE users SET col = col + CASE id WHEN ? THEN ? ... END WHERE id IN (?, ...)
func buildIncrementSQL(column string, increments []userIncrement) (string, []interface{}) {
	var b strings.Builder
	args := make([]interface{}, 0, len(increments)*3)

	fmt.Fprintf(&b, "UPDATE users SET %s = %s + CASE id", column, column)
	for _, inc := range increments {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, inc.userID, inc.delta)
	}
	b.WriteString(" END WHERE id IN (")
	for i, inc := range increments {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		args = append(args, inc.userID)
	}
	b.WriteString(")")

	return b.String(), args
}

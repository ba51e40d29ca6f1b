package counter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIncrements(t *testing.T) {
	staged := map[string]string{
		"42":       "3",
		"7":        "1",
		"abc":      "5",  // field must be a user ID
		"9":        "x",  // delta must be numeric
		"11":       "0",  // zero deltas are dropped
		"1000000":  "2",
		"negative": "-1",
	}

	increments := parseIncrements(staged)

	require.Len(t, increments, 3)
	// sorted by user ID
	assert.Equal(t, uint64(7), increments[0].userID)
	assert.Equal(t, int64(1), increments[0].delta)
	assert.Equal(t, uint64(42), increments[1].userID)
	assert.Equal(t, int64(3), increments[1].delta)
	assert.Equal(t, uint64(1000000), increments[2].userID)
}

func TestParseIncrementsEmpty(t *testing.T) {
	assert.Empty(t, parseIncrements(nil))
	assert.Empty(t, parseIncrements(map[string]string{}))
}

func TestBuildIncrementSQL(t *testing.T) {
	increments := []userIncrement{
		{userID: 7, delta: 2},
		{userID: 42, delta: 1},
	}

	query, args := buildIncrementSQL("login_count", increments)

	assert.Equal(t,
		"UPDATE users SET login_count = login_count + CASE id WHEN ? THEN ? WHEN ? THEN ? END WHERE id IN (?,?)",
		query)
	assert.Equal(t, []interface{}{uint64(7), int64(2), uint64(42), int64(1), uint64(7), uint64(42)}, args)
}

func TestBuildIncrementSQLSingleUser(t *testing.T) {
	query, args := buildIncrementSQL("profile_view_count", []userIncrement{{userID: 3, delta: 5}})

	assert.Equal(t,
		"UPDATE users SET profile_view_count = profile_view_count + CASE id WHEN ? THEN ? END WHERE id IN (?)",
		query)
	assert.Len(t, args, 3)
}

func TestIsMissingKey(t *testing.T) {
	assert.True(t, isMissingKey(errors.New("ERR no such key")))
	assert.True(t, isMissingKey(errors.New("redis: nil")))
	assert.False(t, isMissingKey(errors.New("connection refused")))
	assert.False(t, isMissingKey(nil))
}

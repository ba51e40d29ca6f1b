package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAPIKey(t *testing.T) {
	us := &UserSettings{UserID: 1}
	require.False(t, us.HasActiveAPIKey())

	key, err := us.IssueAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "mfx_"))
	assert.Len(t, key, 56)
	assert.Equal(t, HashAPIKey(key), us.APIKeyHash)
	assert.Equal(t, key[:16], us.APIKeyPrefix)
	assert.NotNil(t, us.APIKeyCreatedAt)
	assert.Nil(t, us.APIKeyLastUsedAt)
	assert.Nil(t, us.APIKeyRevokedAt)
	assert.True(t, us.HasActiveAPIKey())
}

func TestIssueAPIKeyRotates(t *testing.T) {
	us := &UserSettings{UserID: 1}

	first, err := us.IssueAPIKey()
	require.NoError(t, err)
	us.TouchAPIKeyUsage()

	second, err := us.IssueAPIKey()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, HashAPIKey(second), us.APIKeyHash)
	assert.Nil(t, us.APIKeyLastUsedAt, "usage timestamp must reset with a new key")
}

func TestRevokeAPIKey(t *testing.T) {
	us := &UserSettings{UserID: 99}
	_, err := us.IssueAPIKey()
	require.NoError(t, err)

	us.RevokeAPIKey()

	assert.False(t, us.HasActiveAPIKey())
	assert.Empty(t, us.APIKeyHash)
	assert.Empty(t, us.APIKeyPrefix)
	assert.NotNil(t, us.APIKeyRevokedAt)
	assert.Nil(t, us.APIKeyLastUsedAt)
}

func TestHasActiveAPIKeyNilReceiver(t *testing.T) {
	var us *UserSettings
	assert.False(t, us.HasActiveAPIKey())
}

func TestHashAPIKeyTrimsWhitespace(t *testing.T) {
	assert.Equal(t, HashAPIKey("mfx_abc"), HashAPIKey("  mfx_abc\n"))
	assert.Len(t, HashAPIKey("anything"), 64)
}

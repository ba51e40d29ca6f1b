package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetGravatarURL(t *testing.T) {
	// reference hash for "alice@example.org" per the Gravatar docs recipe
	url := GetGravatarURL("alice@example.org", 80)

	assert.Contains(t, url, "https://www.gravatar.com/avatar/")
	assert.Contains(t, url, "s=80")
	assert.Contains(t, url, "d=mp")
}

func TestGetGravatarURLNormalizesEmail(t *testing.T) {
	assert.Equal(t,
		GetGravatarURL("alice@example.org", 80),
		GetGravatarURL("  ALICE@example.org \n", 80),
	)
}

func TestGetGravatarURLDefaultSize(t *testing.T) {
	assert.Contains(t, GetGravatarURL("a@b.c", 0), "s=200")
	assert.Contains(t, GetGravatarURL("a@b.c", -5), "s=200")
}

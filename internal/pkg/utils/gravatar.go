package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

const defaultGravatarSize = 200

// GetGravatarURL builds the Gravatar image URL for an email address. The
// hash input is the trimmed, lowercased address per the Gravatar spec; "mp"
// requests their neutral person silhouette as fallback.
func GetGravatarURL(email string, size int) string {
	if size <= 0 {
		size = defaultGravatarSize
	}

	normalized := strings.ToLower(strings.TrimSpace(email))
	digest := md5.Sum([]byte(normalized))

	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", digest, size)
}

package security

import (
	"net/url"
	"strings"
)

// SafeRedirect validates an untrusted post-login redirect target. Bare paths
// and absolute URLs on the given origin pass through; anything else falls
// back silently so callers never leak why a target was rejected.
func SafeRedirect(candidate, origin, fallback string) string {
	target := strings.TrimSpace(candidate)
	if target == "" {
		return fallback
	}
	// Browsers normalize backslashes to slashes, the URL parser does not.
	if strings.Contains(target, "\\") {
		return fallback
	}

	u, err := url.Parse(target)
	if err != nil {
		return fallback
	}

	if u.Scheme == "" && u.Host == "" {
		if strings.HasPrefix(u.Path, "/") && !strings.HasPrefix(u.Path, "//") {
			return target
		}
		return fallback
	}

	o, err := url.Parse(origin)
	if err != nil || o.Host == "" {
		return fallback
	}
	if (u.Scheme == o.Scheme || u.Scheme == "") && u.Host == o.Host {
		return target
	}
	return fallback
}

package goSession

import (
	"net/url"
	"strings"
	"unicode"
)

// DefaultSignOutRedirect is returned by SanitizeRedirect for unusable targets.
const DefaultSignOutRedirect = "/login"

// SanitizeRedirect returns target if it is a same-origin relative path and
// DefaultSignOutRedirect otherwise. Absolute URLs, scheme-relative paths
// ("//host"), backslashes and control characters are rejected.
func SanitizeRedirect(target string) string {
	target = strings.TrimSpace(target)
	if target == "" || !strings.HasPrefix(target, "/") {
		return DefaultSignOutRedirect
	}
	if strings.HasPrefix(target, "//") || strings.ContainsRune(target, '\\') {
		return DefaultSignOutRedirect
	}
	if strings.IndexFunc(target, unicode.IsControl) >= 0 {
		return DefaultSignOutRedirect
	}

	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return DefaultSignOutRedirect
	}
	return target
}

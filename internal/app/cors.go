package app

import (
	"net/url"
	"strings"
)

// originAllowed reports whether an Origin header value matches any of the
// configured patterns. Matching runs against the host[:port] portion of the
// origin and accepts two wildcard forms: "*.domain" for any subdomain and
// "host:*" for any port.
func originAllowed(patterns []string, origin string) bool {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}
	for _, pattern := range patterns {
		switch {
		case pattern == host:
			return true
		case strings.HasPrefix(pattern, "*.") && strings.HasSuffix(host, pattern[1:]):
			return true
		case strings.HasSuffix(pattern, ":*") && strings.HasPrefix(host, pattern[:len(pattern)-1]):
			return true
		}
	}
	return false
}

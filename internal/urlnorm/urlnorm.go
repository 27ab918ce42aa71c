// Package urlnorm turns hrefs and sitemap locs into the page keys used for
// crawling and deduplication.
//
// Normalization is string composition, not RFC 3986 resolution: relative
// paths are appended to the parent page with exactly one slash, and the
// result is not validated further.
package urlnorm

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidURL = errors.New("url must start with http:// or https://")

// skipPrefixes name hrefs that cannot be fetched over HTTP.
var skipPrefixes = []string{"tel:", "sms:", "mailto:"}

// BaseOrigin returns scheme://host for rawURL, without a trailing slash.
func BaseOrigin(rawURL string) (string, error) {
	scheme, rest, ok := splitScheme(rawURL)
	if !ok {
		return "", fmt.Errorf("%q: %w", rawURL, ErrInvalidURL)
	}
	rest = stripSuffixes(rest)
	if i := strings.IndexByte(rest, '/'); i != -1 {
		rest = rest[:i]
	}
	if rest == "" {
		return "", fmt.Errorf("%q: missing host: %w", rawURL, ErrInvalidURL)
	}
	return scheme + "://" + rest, nil
}

// Normalize joins rawURL onto parentURL (or baseOrigin when parentURL is
// empty, or when rawURL starts with "/") and then drops any query and
// fragment. ok is false for hrefs that are not inspectable.
func Normalize(rawURL, parentURL, baseOrigin string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || !Inspectable(rawURL) {
		return "", false
	}
	if parentURL == "" {
		parentURL = baseOrigin
	}

	if _, _, ok := splitScheme(rawURL); ok {
		return stripSuffixes(rawURL), true
	}

	var joined string
	switch {
	case strings.HasPrefix(rawURL, "/"):
		joined = baseOrigin + rawURL
	case strings.HasSuffix(parentURL, "/"):
		joined = parentURL + rawURL
	default:
		joined = parentURL + "/" + rawURL
	}
	// "#top" joins to "<parent>/#top", so it lands on the parent's slash form
	return stripSuffixes(joined), true
}

// Inspectable reports whether rawURL can be fetched at all.
func Inspectable(rawURL string) bool {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	for _, p := range skipPrefixes {
		if strings.HasPrefix(lower, p) {
			return false
		}
	}
	return !strings.Contains(lower, "javascript:void")
}

// SameOrigin reports whether rawURL lives under baseOrigin. The byte after
// the origin must end the host, so http://localhost.evil is foreign to
// http://localhost.
func SameOrigin(rawURL, baseOrigin string) bool {
	if baseOrigin == "" || !strings.HasPrefix(rawURL, baseOrigin) {
		return false
	}
	if len(rawURL) == len(baseOrigin) {
		return true
	}
	switch rawURL[len(baseOrigin)] {
	case '/', '?', '#':
		return true
	}
	return false
}

// Absolute resolves a root-relative sitemap reference against baseOrigin and
// leaves everything else untouched, query included.
func Absolute(loc, baseOrigin string) string {
	loc = strings.TrimSpace(loc)
	if strings.HasPrefix(loc, "/") {
		return baseOrigin + loc
	}
	return loc
}

func splitScheme(rawURL string) (scheme, rest string, ok bool) {
	for _, s := range []string{"https", "http"} {
		prefix := s + "://"
		if len(rawURL) >= len(prefix) && strings.EqualFold(rawURL[:len(prefix)], prefix) {
			return s, rawURL[len(prefix):], true
		}
	}
	return "", rawURL, false
}

func stripSuffixes(s string) string {
	if i := strings.IndexAny(s, "#?"); i != -1 {
		return s[:i]
	}
	return s
}

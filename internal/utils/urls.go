package utils

import (
	"net/url"
	"strings"
)

// IsAbsoluteURL reports whether raw is an absolute http(s) URL with a host
func IsAbsoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// AbsoluteURL resolves ref against base. It returns "" when the result is
// not an absolute http(s) URL.
func AbsoluteURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if b, err := url.Parse(strings.TrimSpace(base)); err == nil {
		r = b.ResolveReference(r)
	}
	if s := r.String(); IsAbsoluteURL(s) {
		return s
	}
	return ""
}

// Prefix shortens s to at most n characters for log lines
func Prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

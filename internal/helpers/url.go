package helpers

import (
	"errors"
	"net/url"
	"sort"
	"strings"
)

var trackingQueryParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"gclid":        {},
	"fbclid":       {},
	"igshid":       {},
	"igsh":         {},
}

// trailingPunct is what free text tends to glue onto the end of a URL.
const trailingPunct = ".,;:!?'\")]}>*"

// TrimURL strips whitespace and trailing punctuation from a URL found in text.
// A closing parenthesis is kept when the URL itself opened one.
func TrimURL(raw string) string {
	s := strings.TrimSpace(raw)
	for len(s) > 0 {
		last := s[len(s)-1]
		if !strings.ContainsRune(trailingPunct, rune(last)) {
			break
		}
		if last == ')' && strings.Count(s, "(") >= strings.Count(s, ")") {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}

// HostOf returns the lowercased host of raw without port, or "".
func HostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// SiteLabel derives the short site name shown next to a link, e.g.
// "https://www.bbc.com/news/x" becomes "bbc.com".
func SiteLabel(raw string) string {
	return strings.TrimPrefix(HostOf(raw), "www.")
}

// HostWithin reports whether host equals domain or is one of its subdomains.
func HostWithin(host, domain string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// IsHTTPURL reports whether raw is an absolute http(s) URL with a host.
func IsHTTPURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(strings.ToLower(raw), "http") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// CanonicalURL normalises a URL for duplicate detection: lowercase scheme and
// host, no leading www., no fragment, no tracking parameters, sorted query,
// no trailing slash.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", errors.New("url missing host")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")

	query := u.Query()
	for key := range query {
		if _, drop := trackingQueryParams[strings.ToLower(key)]; drop {
			query.Del(key)
		}
	}
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		for _, v := range query[key] {
			parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(v))
		}
	}
	u.RawQuery = strings.Join(parts, "&")
	return u.String(), nil
}

// Package issues turns a viewer's issues of interest into canonical cache keys.
package issues

import (
	"sort"
	"strings"
)

// EmptyKey is returned for an IssueSet with no usable members. Caches must
// never store or serve it.
const EmptyKey = "\x00empty"

const separator = "\x1f"

// Normalize trims members, drops blanks and duplicates, and sorts the rest.
func Normalize(issues []string) []string {
	seen := make(map[string]struct{}, len(issues))
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		issue = strings.TrimSpace(issue)
		if issue == "" {
			continue
		}
		if _, ok := seen[issue]; ok {
			continue
		}
		seen[issue] = struct{}{}
		out = append(out, issue)
	}
	sort.Strings(out)
	return out
}

// Fingerprint returns an order-independent key for issues.
func Fingerprint(issues []string) string {
	norm := Normalize(issues)
	if len(norm) == 0 {
		return EmptyKey
	}
	return strings.Join(norm, separator)
}

// IsEmpty reports whether issues has no usable members.
func IsEmpty(issues []string) bool {
	return Fingerprint(issues) == EmptyKey
}

const citySeparator = "\x1e"

// CityFingerprint scopes the fingerprint of issues to a city. City case and
// surrounding whitespace do not matter. An empty IssueSet still yields EmptyKey.
func CityFingerprint(city string, issues []string) string {
	fp := Fingerprint(issues)
	if fp == EmptyKey {
		return EmptyKey
	}
	city = strings.Join(strings.Fields(strings.ToLower(city)), " ")
	return city + citySeparator + fp
}

package common

import "strings"

// ContainsAnyFold reports whether s contains any of subs, ignoring case.
// Empty entries in subs never match.
func ContainsAnyFold(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// NormalizeText lower-cases free-form provider text and collapses runs of whitespace,
// so "Patchy  light drizzle " and "patchy light drizzle" store the same description.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

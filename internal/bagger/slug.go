package bagger

import (
	"regexp"
	"strings"
)

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s, collapses every run of characters outside [a-z0-9]
// into a single "-", and trims leading and trailing dashes.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlugRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

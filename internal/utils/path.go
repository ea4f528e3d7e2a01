package utils

import "strings"

// Slugify converts a name to a directory-safe slug, used to derive a
// plan's branch name from its plan id (internal/dispatcher's activate).
// Example: "Critical Bug Fixes" -> "critical-bug-fixes"
func Slugify(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	result := ""
	for _, c := range slug {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			result += string(c)
		}
	}
	return result
}

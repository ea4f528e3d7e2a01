package hooks

import "github.com/bmatcuk/doublestar/v4"

// MatchesAnyTarget reports whether candidate matches any of patterns,
// using glob syntax. No patterns means "match everything": a plugin that
// registers an onEvent hook without configuring targets wants to see
// every event (spec.md §9's guidance on glob-matching bridge/plugin
// target configuration).
func MatchesAnyTarget(patterns []string, candidate string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, candidate); ok {
			return true
		}
	}
	return false
}

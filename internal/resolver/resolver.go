// Package resolver maps a user-supplied identifier (an exact plan id, a
// branch name, or a common substring) to the one canonical plan id it
// names, per spec.md §4's resolver: "(1) exact file match in inbox, (2)
// exact match in plans map, (3) branch-field match, (4) prefixed-filename
// match. Ambiguous → error."
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daydemir/ralphd/internal/statestore"
)

// AmbiguousError is returned when step 3's branch-field match or step 4's
// prefix match finds more than one candidate.
type AmbiguousError struct {
	Identifier string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	sorted := append([]string(nil), e.Candidates...)
	sort.Strings(sorted)
	return fmt.Sprintf("resolver: %q matches multiple plans: %s", e.Identifier, strings.Join(sorted, ", "))
}

// NotFoundError is returned when no step resolves the identifier.
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resolver: no plan matches %q", e.Identifier)
}

// Resolve maps identifier to a canonical plan id, trying each rule from
// spec.md §4 in order and returning on the first one that matches.
func Resolve(paths statestore.Paths, state *statestore.State, identifier string) (string, error) {
	inbox, err := statestore.ListInbox(paths)
	if err != nil {
		return "", fmt.Errorf("resolver: cannot list inbox: %w", err)
	}

	// (1) exact file match in inbox.
	for _, entry := range inbox {
		if entry.PlanID == identifier {
			return entry.PlanID, nil
		}
	}

	// (2) exact match in the plans map.
	if _, ok := state.Plans[identifier]; ok {
		return identifier, nil
	}

	// (3) branch-field match.
	var branchMatches []string
	for planID, ps := range state.Plans {
		if ps.Branch == identifier {
			branchMatches = append(branchMatches, planID)
		}
	}
	if len(branchMatches) == 1 {
		return branchMatches[0], nil
	}
	if len(branchMatches) > 1 {
		return "", &AmbiguousError{Identifier: identifier, Candidates: branchMatches}
	}

	// (4) prefixed-filename match, across both inbox entries and known plans.
	seen := make(map[string]bool)
	var prefixMatches []string
	for _, entry := range inbox {
		if strings.HasPrefix(entry.PlanID, identifier) && !seen[entry.PlanID] {
			seen[entry.PlanID] = true
			prefixMatches = append(prefixMatches, entry.PlanID)
		}
	}
	for planID := range state.Plans {
		if strings.HasPrefix(planID, identifier) && !seen[planID] {
			seen[planID] = true
			prefixMatches = append(prefixMatches, planID)
		}
	}
	if len(prefixMatches) == 1 {
		return prefixMatches[0], nil
	}
	if len(prefixMatches) > 1 {
		return "", &AmbiguousError{Identifier: identifier, Candidates: prefixMatches}
	}

	return "", &NotFoundError{Identifier: identifier}
}

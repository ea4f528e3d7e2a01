package statestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// InboxMeta is the sibling <planId>.json metadata file for an inbox plan
// (spec.md §6's on-disk layout).
type InboxMeta struct {
	Status   string         `json:"status"`
	Source   string         `json:"source,omitempty"`
	Hidden   bool           `json:"hidden,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// InboxEntry is one <planId>.md + <planId>.json pair found in the inbox.
type InboxEntry struct {
	PlanID   string
	MDPath   string
	MetaPath string
	Meta     InboxMeta
}

// ListInbox enumerates every <planId>.md/<planId>.json pair under the
// inbox directory, sorted by planId for deterministic tick ordering.
func ListInbox(paths Paths) ([]InboxEntry, error) {
	dir := paths.InboxDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("statestore: cannot list inbox: %w", err)
	}

	var result []InboxEntry
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		planID := strings.TrimSuffix(e.Name(), ".md")
		mdPath := filepath.Join(dir, e.Name())
		metaPath := filepath.Join(dir, planID+".json")

		var meta InboxMeta
		if data, err := os.ReadFile(metaPath); err == nil {
			if err := json.Unmarshal(data, &meta); err != nil {
				return nil, fmt.Errorf("statestore: malformed inbox meta %s: %w", metaPath, err)
			}
		}
		result = append(result, InboxEntry{
			PlanID:   planID,
			MDPath:   mdPath,
			MetaPath: metaPath,
			Meta:     meta,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PlanID < result[j].PlanID })
	return result, nil
}

// WriteInboxMeta writes the sibling metadata file for an inbox plan.
func WriteInboxMeta(paths Paths, planID string, meta InboxMeta) error {
	if err := os.MkdirAll(paths.InboxDir(), 0755); err != nil {
		return fmt.Errorf("statestore: cannot create inbox dir: %w", err)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("statestore: cannot marshal inbox meta: %w", err)
	}
	return os.WriteFile(filepath.Join(paths.InboxDir(), planID+".json"), data, 0644)
}

// RemoveInboxEntry deletes both files of an inbox plan. Used by activation,
// which must remove the plan from the inbox once its workspace exists.
func RemoveInboxEntry(e InboxEntry) error {
	if err := os.Remove(e.MDPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("statestore: cannot remove inbox md: %w", err)
	}
	if err := os.Remove(e.MetaPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("statestore: cannot remove inbox meta: %w", err)
	}
	return nil
}

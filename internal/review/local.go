package review

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// reviewFileName is the local provider's input, relative to the worktree's
// local directory (spec.md §6: "review.md # optional, local review
// provider").
const reviewFileName = "review.md"

var (
	readyHeadingPattern = regexp.MustCompile(`(?im)^##\s+ready\s*$`)
	anyHeadingPattern   = regexp.MustCompile(`(?m)^##\s+\S`)
	checklistPattern    = regexp.MustCompile(`^-\s*\[( |x|X)\]\s*(.*)$`)
	fieldFilePattern    = regexp.MustCompile(`^\s+file:\s*(.+?)\s*$`)
	fieldLinePattern    = regexp.MustCompile(`^\s+line:\s*(\d+)\s*$`)
	fieldSidePattern    = regexp.MustCompile(`^\s+side:\s*(left|right)\s*$`)
)

// rawItem is a parsed "## ready" checklist entry before hashing.
type rawItem struct {
	checked bool
	text    string
	file    string
	line    int
	side    string
}

// LocalProvider reads <worktree>/<local>/review.md.
type LocalProvider struct {
	worktree string
	local    string
}

// NewLocalProvider builds a provider rooted at worktree, reading review.md
// out of the configured local subdirectory (spec.md §6's "local").
func NewLocalProvider(worktree, local string) *LocalProvider {
	return &LocalProvider{worktree: worktree, local: local}
}

func (p *LocalProvider) Name() string { return "local" }

func (p *LocalProvider) path() string {
	return filepath.Join(p.worktree, p.local, reviewFileName)
}

// localState is the provider's persisted dedup set.
type localState struct {
	EmittedHashes []string `json:"emittedHashes"`
}

// Poll re-parses review.md's "## ready" section, hashes each unchecked
// item, and emits the ones not already in state. Hashes whose items have
// disappeared from the file (checked off or deleted) are expunged from the
// returned state, matching spec.md §4.7.
func (p *LocalProvider) Poll(ctx context.Context, state json.RawMessage) ([]Item, json.RawMessage, error) {
	var old localState
	if len(state) > 0 {
		if err := json.Unmarshal(state, &old); err != nil {
			return nil, state, fmt.Errorf("review: cannot decode local provider state: %w", err)
		}
	}
	oldSeen := make(map[string]bool, len(old.EmittedHashes))
	for _, h := range old.EmittedHashes {
		oldSeen[h] = true
	}

	raws, err := parseReadyItems(p.path())
	if err != nil {
		return nil, state, err
	}

	var items []Item
	currentHashes := make([]string, 0, len(raws))
	for _, raw := range raws {
		if raw.checked {
			continue
		}
		h := hashItem(raw.text, raw.file, raw.line, raw.side)
		currentHashes = append(currentHashes, h)
		if !oldSeen[h] {
			items = append(items, Item{ID: h, Text: raw.text, File: raw.file, Line: raw.line, Side: raw.side})
		}
	}
	sort.Strings(currentHashes)

	newState, err := json.Marshal(localState{EmittedHashes: currentHashes})
	if err != nil {
		return nil, state, fmt.Errorf("review: cannot encode local provider state: %w", err)
	}
	return items, newState, nil
}

func hashItem(text, file string, line int, side string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%s", text, file, line, side)))
	return hex.EncodeToString(sum[:])[:16]
}

// parseReadyItems reads path and returns every checklist entry under the
// first "## ready" heading. A missing file yields no items, not an error:
// review.md is optional.
func parseReadyItems(path string) ([]rawItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("review: cannot read %s: %w", path, err)
	}
	return parseReadySection(string(data)), nil
}

func parseReadySection(content string) []rawItem {
	loc := readyHeadingPattern.FindStringIndex(content)
	if loc == nil {
		return nil
	}
	rest := content[loc[1]:]
	if next := anyHeadingPattern.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}

	var items []rawItem
	var cur *rawItem
	for _, line := range strings.Split(rest, "\n") {
		if m := checklistPattern.FindStringSubmatch(line); m != nil {
			if cur != nil {
				items = append(items, *cur)
			}
			cur = &rawItem{
				checked: strings.EqualFold(m[1], "x"),
				text:    strings.TrimSpace(m[2]),
			}
			continue
		}
		if cur == nil {
			continue
		}
		if m := fieldFilePattern.FindStringSubmatch(line); m != nil {
			cur.file = m[1]
			continue
		}
		if m := fieldLinePattern.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			cur.line = n
			continue
		}
		if m := fieldSidePattern.FindStringSubmatch(line); m != nil {
			cur.side = m[1]
			continue
		}
	}
	if cur != nil {
		items = append(items, *cur)
	}
	return items
}

// Criteria identifies one review.md item by the same four-tuple used for
// hashing, for UpdateReviewMdCheckbox's match.
type Criteria struct {
	Text string
	File string
	Line int
	Side string
}

// UpdateReviewMdCheckbox flips the "[ ]" of the item matching criteria to
// "[x]", in place, preserving every other line verbatim. It is the local
// provider's side effect invoked when the corresponding work completes
// (spec.md §4.7).
func UpdateReviewMdCheckbox(worktree, local string, criteria Criteria) error {
	path := filepath.Join(worktree, local, reviewFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("review: cannot read %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	var cur *rawItem
	curLineIdx := -1
	for i, line := range lines {
		if m := checklistPattern.FindStringSubmatch(line); m != nil {
			if cur != nil && matches(*cur, criteria) {
				lines[curLineIdx] = checkLine(lines[curLineIdx])
				return atomicWrite(path, strings.Join(lines, "\n"))
			}
			cur = &rawItem{checked: strings.EqualFold(m[1], "x"), text: strings.TrimSpace(m[2])}
			curLineIdx = i
			continue
		}
		if cur == nil {
			continue
		}
		if m := fieldFilePattern.FindStringSubmatch(line); m != nil {
			cur.file = m[1]
		} else if m := fieldLinePattern.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			cur.line = n
		} else if m := fieldSidePattern.FindStringSubmatch(line); m != nil {
			cur.side = m[1]
		} else {
			// Blank/non-metadata line: the current item's metadata block ended.
			if matches(*cur, criteria) {
				lines[curLineIdx] = checkLine(lines[curLineIdx])
				return atomicWrite(path, strings.Join(lines, "\n"))
			}
			cur = nil
		}
	}
	if cur != nil && matches(*cur, criteria) {
		lines[curLineIdx] = checkLine(lines[curLineIdx])
		return atomicWrite(path, strings.Join(lines, "\n"))
	}
	// No checklist item matches this tuple: a no-op, not an error (the
	// feedback item may target a line the plan file no longer carries).
	return nil
}

func matches(item rawItem, c Criteria) bool {
	return item.text == c.Text && item.file == c.File && item.line == c.Line && item.side == c.Side
}

func checkLine(line string) string {
	return checklistPattern.ReplaceAllString(line, "- [x] $2")
}

func atomicWrite(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return fmt.Errorf("review: cannot write temp %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("review: cannot rename temp %s: %w", tmp, err)
	}
	return nil
}

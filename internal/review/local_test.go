package review

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeReviewMd(t *testing.T, worktree, local, content string) {
	t.Helper()
	dir := filepath.Join(worktree, local)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, reviewFileName), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

const sampleReviewMd = `# Review

## ready
- [ ] Fix the off-by-one error
  file: src/foo.go
  line: 42
  side: right
- [ ] Another item
  file: src/bar.go
  line: 10
  side: left

## done
- [x] Already resolved
  file: src/baz.go
  line: 1
  side: left
`

func TestLocalProviderPollEmitsOnlyNewItems(t *testing.T) {
	worktree := t.TempDir()
	writeReviewMd(t, worktree, ".", sampleReviewMd)
	p := NewLocalProvider(worktree, ".")

	items, state, err := p.Poll(context.Background(), nil)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 ready items, got %d: %+v", len(items), items)
	}

	items2, _, err := p.Poll(context.Background(), state)
	if err != nil {
		t.Fatalf("second Poll: %v", err)
	}
	if len(items2) != 0 {
		t.Fatalf("expected no new items on unchanged file, got %+v", items2)
	}
}

func TestLocalProviderExpungesResolvedItems(t *testing.T) {
	worktree := t.TempDir()
	writeReviewMd(t, worktree, ".", sampleReviewMd)
	p := NewLocalProvider(worktree, ".")

	_, state, err := p.Poll(context.Background(), nil)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if err := UpdateReviewMdCheckbox(worktree, ".", Criteria{
		Text: "Fix the off-by-one error", File: "src/foo.go", Line: 42, Side: "right",
	}); err != nil {
		t.Fatalf("UpdateReviewMdCheckbox: %v", err)
	}

	items, newState, err := p.Poll(context.Background(), state)
	if err != nil {
		t.Fatalf("Poll after checkbox flip: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("checking off an item should not itself emit an event, got %+v", items)
	}

	var decoded localState
	if err := json.Unmarshal(newState, &decoded); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(decoded.EmittedHashes) != 1 {
		t.Fatalf("expected the resolved item's hash expunged, state = %+v", decoded)
	}
}

func TestUpdateReviewMdCheckboxNoMatchIsNoop(t *testing.T) {
	worktree := t.TempDir()
	writeReviewMd(t, worktree, ".", sampleReviewMd)
	err := UpdateReviewMdCheckbox(worktree, ".", Criteria{Text: "nope", File: "x", Line: 1, Side: "left"})
	if err != nil {
		t.Fatalf("expected no error when no item matches, got %v", err)
	}
	data, err := os.ReadFile(filepath.Join(worktree, reviewFileName))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != sampleReviewMd {
		t.Fatalf("review.md changed on a non-matching tuple:\n%s", data)
	}
}

func TestLocalProviderMissingFileYieldsNoItems(t *testing.T) {
	worktree := t.TempDir()
	p := NewLocalProvider(worktree, ".")
	items, _, err := p.Poll(context.Background(), nil)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items for a missing review.md, got %+v", items)
	}
}

func TestHashItemIs16HexChars(t *testing.T) {
	h := hashItem("text", "file.go", 1, "left")
	if len(h) != 16 {
		t.Fatalf("hash length = %d, want 16", len(h))
	}
}

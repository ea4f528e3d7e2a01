package dispatcher

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/daydemir/ralphd/internal/config"
	"github.com/daydemir/ralphd/internal/hooks"
	"github.com/daydemir/ralphd/internal/statestore"
)

func newTestPlanState(t *testing.T, worktree string) *statestore.PlanState {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(worktree, statestore.LocalDirName), 0755); err != nil {
		t.Fatal(err)
	}
	return &statestore.PlanState{
		PlanID:   "sample-plan",
		Status:   statestore.StatusActive,
		Agent:    statestore.AgentClaude,
		Worktree: worktree,
	}
}

func writePlanFile(t *testing.T, ps *statestore.PlanState, body string) {
	t.Helper()
	path := filepath.Join(ps.Worktree, statestore.LocalDirName, planFile)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestDispatcherForAdvance(t *testing.T) *Dispatcher {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	return New(root, ".ralphd", cfg, nil, hooks.NewRegistry(), nil, nil, nil)
}

func TestAdvanceActiveZeroTodosBlocks(t *testing.T) {
	d := newTestDispatcherForAdvance(t)
	ps := newTestPlanState(t, t.TempDir())
	writePlanFile(t, ps, "# Sample plan\n\n## Objective\n\ndo the thing\n")

	d.advanceOne(context.Background(), ps, d.worktreeLocal(ps), nil)

	if !ps.Blocked {
		t.Fatalf("expected plan to be blocked on zero TODOs")
	}
	if ps.LastError != "zero TODO items" {
		t.Errorf("LastError = %q", ps.LastError)
	}
}

func TestAdvanceActiveHeadBlockedMarkerBlocks(t *testing.T) {
	d := newTestDispatcherForAdvance(t)
	ps := newTestPlanState(t, t.TempDir())
	writePlanFile(t, ps, "# Sample plan\n\n## TODO\n\n- [b] a blocked step\n- [ ] later step\n")

	d.advanceOne(context.Background(), ps, d.worktreeLocal(ps), nil)

	if ps.Status != statestore.StatusBlocked || !ps.Blocked {
		t.Fatalf("expected blocked status, got status=%q blocked=%v", ps.Status, ps.Blocked)
	}
}

func TestAdvanceActiveAllDoneWithBlockedMarkerBlocks(t *testing.T) {
	d := newTestDispatcherForAdvance(t)
	ps := newTestPlanState(t, t.TempDir())
	writePlanFile(t, ps, "# Sample plan\n\n## TODO\n\n- [x] first step\n- [b] second step\n")

	d.advanceOne(context.Background(), ps, d.worktreeLocal(ps), nil)

	if !ps.Blocked {
		t.Fatalf("expected plan to be blocked")
	}
	if ps.Status != statestore.StatusBlocked {
		t.Errorf("Status = %q, want blocked", ps.Status)
	}
}

func requireGitBinary(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func runGitIn(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func TestAdvanceActiveAllCleanDoneCommitsAndMovesToReview(t *testing.T) {
	requireGitBinary(t)
	d := newTestDispatcherForAdvance(t)

	worktree := t.TempDir()
	runGitIn(t, worktree, "init", "-b", "main")
	runGitIn(t, worktree, "config", "user.email", "test@example.com")
	runGitIn(t, worktree, "config", "user.name", "test")

	ps := newTestPlanState(t, worktree)
	writePlanFile(t, ps, "# Sample plan\n\n## TODO\n\n- [x] only step\n")
	runGitIn(t, worktree, "add", ".")
	runGitIn(t, worktree, "commit", "-m", "seed")

	// Dirty the tree so CommitAll has something to commit.
	writePlanFile(t, ps, "# Sample plan\n\n## TODO\n\n- [x] only step\n\n## Progress Log\n\ndone\n")

	d.advanceOne(context.Background(), ps, d.worktreeLocal(ps), nil)

	if ps.Blocked {
		t.Fatalf("did not expect plan to block, LastError=%q", ps.LastError)
	}
	if ps.Status != statestore.StatusReview {
		t.Fatalf("Status = %q, want review", ps.Status)
	}
}

func TestAdvanceReviewReturnsToActiveWhenNewTodoAppears(t *testing.T) {
	d := newTestDispatcherForAdvance(t)
	ps := newTestPlanState(t, t.TempDir())
	ps.Status = statestore.StatusReview
	writePlanFile(t, ps, "# Sample plan\n\n## TODO\n\n- [x] first step\n- [ ] triaged follow-up\n")

	d.advanceOne(context.Background(), ps, d.worktreeLocal(ps), nil)

	if ps.Status != statestore.StatusActive {
		t.Fatalf("Status = %q, want active", ps.Status)
	}
}

func TestAdvanceReviewStaysInReviewWithoutNewTodo(t *testing.T) {
	d := newTestDispatcherForAdvance(t)
	ps := newTestPlanState(t, t.TempDir())
	ps.Status = statestore.StatusReview
	writePlanFile(t, ps, "# Sample plan\n\n## TODO\n\n- [x] first step\n")

	d.advanceOne(context.Background(), ps, d.worktreeLocal(ps), nil)

	if ps.Status != statestore.StatusReview {
		t.Fatalf("Status = %q, want still review", ps.Status)
	}
}

package workspace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// WorktreeResult is the outcome of a successful CreateWorktree call.
type WorktreeResult struct {
	WorktreePath string
	Branch       string
}

// CreateWorktree fetches baseBranch from remote, creates a new branch
// rooted there, and materializes a linked working tree at
// <worktreesDir>/<branch>. On a name collision it retries once with a
// random suffix, matching the teacher's own slugify-then-disambiguate
// convention (internal/utils.Slugify + executor.go's activation flow).
//
// git has no library-level "worktree add": go-git's Worktree type models
// the single checkout of a Repository, not the linked-worktree feature, so
// this shells out to the git CLI, the same way the teacher's
// CommitAndPushRepos and C360Studio-semspec's tools/git executor do.
func CreateWorktree(ctx context.Context, repo, worktreesDir, branch, baseBranch, remote string) (*WorktreeResult, error) {
	if remote == "" {
		remote = "origin"
	}
	if err := runGit(ctx, repo, "fetch", remote, baseBranch); err != nil {
		return nil, fmt.Errorf("workspace: fetch base branch: %w", err)
	}

	target := filepath.Join(worktreesDir, branch)
	if err := ensureFreeWorktreePath(target); err != nil {
		suffix, genErr := randomSuffix(4)
		if genErr != nil {
			return nil, fmt.Errorf("workspace: %w", err)
		}
		branch = branch + "-" + suffix
		target = filepath.Join(worktreesDir, branch)
		if err := ensureFreeWorktreePath(target); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(worktreesDir, 0755); err != nil {
		return nil, fmt.Errorf("workspace: cannot create worktrees dir: %w", err)
	}

	baseRef := remote + "/" + baseBranch
	if err := runGit(ctx, repo, "worktree", "add", "-b", branch, target, baseRef); err != nil {
		return nil, fmt.Errorf("workspace: git worktree add: %w", err)
	}

	return &WorktreeResult{WorktreePath: target, Branch: branch}, nil
}

func ensureFreeWorktreePath(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("workspace: cannot stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return &WorktreeExistsError{Path: path}
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("workspace: cannot read %s: %w", path, err)
	}
	if len(entries) > 0 {
		return &WorktreeExistsError{Path: path}
	}
	return nil
}

func randomSuffix(n int) (string, error) {
	b := make([]byte, (n+1)/2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("workspace: cannot generate random suffix: %w", err)
	}
	return hex.EncodeToString(b)[:n], nil
}

// CommitAll stages every change in the worktree at path and commits it with
// message, returning false (no error) if the tree was already clean. Uses
// go-git directly, since staging and committing a single working tree is
// squarely within its object-level API.
func CommitAll(path, message string) (bool, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return false, fmt.Errorf("workspace: cannot open worktree: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("workspace: cannot get worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("workspace: cannot get status: %w", err)
	}
	if status.IsClean() {
		return false, nil
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return false, fmt.Errorf("workspace: cannot stage changes: %w", err)
	}

	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "ralphd",
			Email: "ralphd@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return false, fmt.Errorf("workspace: cannot commit: %w", err)
	}
	return true, nil
}

// RebaseResult describes the outcome of RebaseOnBaseBranch.
type RebaseResult struct {
	Success       bool
	HasConflicts  bool
	ConflictFiles []string
}

// RebaseOnBaseBranch rebases the worktree at path onto base, aborting the
// rebase automatically on conflict. go-git ships no rebase implementation,
// so this shells out to the git CLI.
func RebaseOnBaseBranch(ctx context.Context, path, base string) (*RebaseResult, error) {
	cmd := exec.CommandContext(ctx, "git", "rebase", base)
	cmd.Dir = path
	out, err := cmd.CombinedOutput()
	if err == nil {
		return &RebaseResult{Success: true}, nil
	}

	conflicts := parseConflictFiles(string(out))
	abortCmd := exec.CommandContext(ctx, "git", "rebase", "--abort")
	abortCmd.Dir = path
	_ = abortCmd.Run()

	return &RebaseResult{Success: false, HasConflicts: true, ConflictFiles: conflicts}, nil
}

func parseConflictFiles(output string) []string {
	var files []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "CONFLICT") {
			if idx := strings.LastIndex(line, " in "); idx >= 0 {
				files = append(files, strings.TrimSpace(line[idx+4:]))
			}
		}
	}
	return files
}

// ForcePushWithLease pushes branch to remote using --force-with-lease,
// which fails (without mutating the remote) if it advanced since the last
// fetch. go-git's PushOptions only exposes a blunt Force bool, not this
// compare-and-swap semantics, so this shells out.
func ForcePushWithLease(ctx context.Context, path, remote, branch string) error {
	if remote == "" {
		remote = "origin"
	}
	if err := runGit(ctx, path, "push", "--force-with-lease", remote, branch); err != nil {
		return fmt.Errorf("workspace: force-push-with-lease rejected: %w", err)
	}
	return nil
}

// RemoveWorktree deletes the linked working tree at path. It first tries
// `git worktree remove`; if that fails (e.g. the registration is already
// stale), it prunes the worktree metadata and recursively removes the
// directory itself.
func RemoveWorktree(ctx context.Context, repo, path string) error {
	if err := runGit(ctx, repo, "worktree", "remove", "--force", path); err == nil {
		return nil
	}
	_ = runGit(ctx, repo, "worktree", "prune")
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("workspace: cannot remove worktree directory: %w", err)
	}
	return nil
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

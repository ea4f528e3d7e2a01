// Package workspace manages the per-plan isolated source-control working
// trees the dispatcher activates plans into, plus the repo-root discovery
// convention shared with internal/statestore.
package workspace

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/daydemir/ralphd/internal/statestore"
)

// ErrNoWorkspace is returned when no repo-local directory is found walking
// up from the current directory.
var ErrNoWorkspace = errors.New("no ralphd repository found (run 'ralphd init' first)")

// ErrWorkspaceExists is returned by operations that refuse to overwrite an
// existing repo-local directory without an explicit force.
var ErrWorkspaceExists = errors.New("ralphd repository already initialized (use --force to overwrite)")

// WorktreeExistsError is returned by CreateWorktree when the target
// directory is non-empty and not a worktree this manager created.
type WorktreeExistsError struct {
	Path string
}

func (e *WorktreeExistsError) Error() string {
	return "workspace: target directory already exists and is not a known worktree: " + e.Path
}

// Find walks up from cwd looking for the repo-local directory, returning
// the repository root that contains it.
func Find(local string) (string, error) {
	if local == "" {
		local = statestore.LocalDirName
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, local)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoWorkspace
		}
		dir = parent
	}
}

package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/daydemir/ralphd/internal/statestore"
)

// defaultConfigJSON seeds a new repository's config.json with the schema
// documented in spec.md §6. Agent model selection and bridge/plugin wiring
// are left for the operator to fill in; only structurally-required
// defaults are pre-populated.
const defaultConfigJSON = `{
  "agents": {
    "default": "claude"
  },
  "worktrees_dir": "../ralphd-worktrees",
  "base_branch": "main",
  "github_poll_interval_ms": 60000,
  "bus": {
    "tickIntervalMs": 1000
  },
  "bridges": {},
  "review": {
    "provider": "local"
  },
  "plugins": {},
  "pluginOrder": [],
  "presets": {}
}
`

// Init scaffolds a new repo-local directory (config.json, an empty
// state.json, and an inbox/ folder) at the current directory.
func Init(force bool) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("workspace: failed to get current directory: %w", err)
	}

	paths := statestore.NewPaths(cwd, "")
	if _, err := os.Stat(paths.LocalDir); err == nil {
		if !force {
			return ErrWorkspaceExists
		}
		if err := os.RemoveAll(paths.LocalDir); err != nil {
			return fmt.Errorf("workspace: failed to remove existing directory: %w", err)
		}
	}

	if err := os.MkdirAll(paths.InboxDir(), 0755); err != nil {
		return fmt.Errorf("workspace: failed to create inbox dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(paths.LocalDir, "config.json"), []byte(defaultConfigJSON), 0644); err != nil {
		return fmt.Errorf("workspace: failed to write config.json: %w", err)
	}

	if err := statestore.Save(paths, statestore.NewState()); err != nil {
		return fmt.Errorf("workspace: failed to write initial state.json: %w", err)
	}

	fmt.Println("Initialized ralphd repository in", paths.LocalDir)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Edit", filepath.Join(paths.LocalDir, "config.json"), "to configure agents and bridges")
	fmt.Println("  2. Drop a plan markdown file into", paths.InboxDir())
	fmt.Println("  3. Run 'ralphd start' to run the dispatcher")

	return nil
}

// Package cli wires the ralphd cobra commands onto the dispatcher's
// library API, the same way the teacher's internal/cli wired ralph's
// planner/executor commands onto cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is set by goreleaser via ldflags.
	Version = "dev"
	localDir string
)

var rootCmd = &cobra.Command{
	Use:   "ralphd",
	Short: "Cooperative dispatcher for agent-executed plans",
	Long: `ralphd runs a single-threaded tick loop that advances checked-in
plans through worktrees, a worker agent, and an optional review provider.

Core commands:
  ralphd init             Scaffold .ralphd/ in the current repository
  ralphd start            Run the tick loop until interrupted
  ralphd status           Print each tracked plan's status snapshot
  ralphd resolve <id>     Resolve a plan identifier to its canonical id
  ralphd stop <id>        Block a plan and kill its running agent
  ralphd unblock <id>     Clear a plan's blocked flag and retry counters`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&localDir, "local", "", "repo-local config dir name (default .ralphd)")
	rootCmd.SetVersionTemplate(fmt.Sprintf("ralphd version %s\n", Version))
}

func exitError(msg string) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	os.Exit(1)
}

package cli

import (
	"github.com/daydemir/ralphd/internal/workspace"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold .ralphd/ in the current repository",
	Long: `Initialize a new ralphd workspace in the current directory.

Creates:
  .ralphd/
  ├── config.json    Agent, worktree, bus, review, and plugin configuration
  ├── state.json     Empty plan tracking state
  └── inbox/         Where new plan files are dropped for ingestion

After init, drop a plan.md into .ralphd/inbox/ and run 'ralphd start'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return workspace.Init(initForce)
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing .ralphd/ directory")
	rootCmd.AddCommand(initCmd)
}

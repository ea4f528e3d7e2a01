package cli

import (
	"fmt"
	"os"

	"github.com/daydemir/ralphd/internal/resolver"
	"github.com/daydemir/ralphd/internal/statestore"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <identifier>",
	Short: "Resolve a plan identifier to its canonical plan id",
	Long: `Resolve an identifier against the inbox, the tracked plans map,
each plan's branch field, and finally plan-id prefixes, the same ordered
set of rules the dispatcher
uses for 'ralphd stop'/'ralphd unblock' (spec.md §4's resolver).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		paths := statestore.NewPaths(cwd, localDir)
		st, err := statestore.Load(paths)
		if err != nil {
			return fmt.Errorf("cli: load state: %w", err)
		}

		planID, err := resolver.Resolve(paths, st, args[0])
		if err != nil {
			return err
		}
		fmt.Println(planID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

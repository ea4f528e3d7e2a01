package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/daydemir/ralphd/internal/statestore"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print each tracked plan's status snapshot",
	Long: `Print a read-only snapshot of every plan state.json tracks: its
status, whether it is blocked, its last recorded error, and its current
retry count — without taking the process lock (spec.md §7's "status
snapshot" contract).`,
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

		ordered := st.Ordered()
		if len(ordered) == 0 {
			fmt.Println("No plans tracked yet. Drop a plan.md into .ralphd/inbox/ to get started.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "PLAN\tSTATUS\tBLOCKED\tAGENT\tRETRIES\tLAST ERROR")
		for _, ps := range ordered {
			lastError := ps.LastError
			if lastError == "" {
				lastError = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%d\t%s\n",
				ps.PlanID, ps.Status, ps.Blocked, ps.Agent, ps.TodoRetryCount, lastError)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

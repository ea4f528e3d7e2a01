package cli

import (
	"context"
	"os"

	"github.com/daydemir/ralphd/internal/console"
	"github.com/daydemir/ralphd/internal/dispatcher"
	"github.com/daydemir/ralphd/internal/events"
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop <identifier>",
	Short: "Block a plan and kill its running agent",
	Long: `Resolve identifier to a plan, kill its subprocess if one is running,
and mark it blocked (spec.md §4.8's operator "stop" flow). The plan's
status is left as-is so 'ralphd unblock' resumes it where it left off.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDispatcher(func(d *dispatcher.Dispatcher) error {
			return d.Stop(context.Background(), args[0])
		})
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <identifier>",
	Short: "Clear a plan's blocked flag and reset its retry counters",
	Long: `Resolve identifier to a plan, clear its blocked flag, and reset its
checklist-item retry counters, leaving status unchanged so the next tick
resumes it wherever it left off (spec.md §4.8's operator "unblock" flow).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDispatcher(func(d *dispatcher.Dispatcher) error {
			return d.Unblock(context.Background(), args[0])
		})
	},
}

func withDispatcher(fn func(*dispatcher.Dispatcher) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	con := console.New()
	d, err := buildDispatcher(cwd, events.NewHub(), con)
	if err != nil {
		return err
	}
	return fn(d)
}

func init() {
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(unblockCmd)
}

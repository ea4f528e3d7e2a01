package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/daydemir/ralphd/internal/console"
	"github.com/daydemir/ralphd/internal/events"
	"github.com/spf13/cobra"
)

var (
	startOnce    bool
	startNoColor bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the tick loop until interrupted",
	Long: `Run the dispatcher's tick loop: ingest new inbox plans, advance every
tracked plan one step, and sleep for the configured interval, repeating
until interrupted (Ctrl-C) or, with --once, after a single tick.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}

		con := console.NewWithOptions(startNoColor)
		hub := events.NewHub()
		d, err := buildDispatcher(cwd, hub, con)
		if err != nil {
			return err
		}

		con.RunHeader()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if startOnce {
			return d.Tick(ctx)
		}
		if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	startCmd.Flags().BoolVar(&startOnce, "once", false, "run a single tick and exit")
	startCmd.Flags().BoolVar(&startNoColor, "no-color", false, "disable colored output")
	rootCmd.AddCommand(startCmd)
}

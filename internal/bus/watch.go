package bus

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watch wakes onChange whenever events.jsonl or actions.jsonl is written by
// another process (for example a bridge poller running in a separate
// goroutine, or `ralphd` invoked concurrently against the same workspace).
// It is an optional nudge: the dispatcher tick loop is correct even if
// every wake-up is missed, since it re-polls on its own interval regardless
// (spec.md §4.5, §5). Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, p Paths, onChange func()) error {
	if err := InitBusDir(p); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("bus: cannot create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(p.Dir); err != nil {
		return fmt.Errorf("bus: cannot watch %s: %w", p.Dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != p.EventsPath() && event.Name != p.ActionsPath() {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			onChange()
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if werr != nil {
				return fmt.Errorf("bus: watch error: %w", werr)
			}
		}
	}
}

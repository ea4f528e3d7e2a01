package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/daydemir/ralphd/internal/agent"
	"github.com/daydemir/ralphd/internal/resolver"
	"github.com/daydemir/ralphd/internal/statestore"
)

// Stop marks a plan blocked and kills its running subprocess, if any
// (spec.md §4.8's operator "stop" flow). identifier is resolved the same
// way the CLI resolves any plan reference.
func (d *Dispatcher) Stop(ctx context.Context, identifier string) error {
	st, err := statestore.Load(d.Paths)
	if err != nil {
		return err
	}
	planID, err := resolver.Resolve(d.Paths, st, identifier)
	if err != nil {
		return err
	}
	ps, ok := st.Plans[planID]
	if !ok {
		return fmt.Errorf("dispatcher: stop: %q is not yet an active plan", planID)
	}

	if ps.HasSubprocess() {
		if err := agent.Terminate(ctx, ps.TmuxSession, ps.Pid); err != nil {
			return err
		}
		ps.ClearSubprocess()
	}
	ps.Blocked = true
	ps.UpdatedAt = time.Now().UTC()
	return statestore.Save(d.Paths, st)
}

// Unblock clears a plan's blocked flag and resets its retry counters,
// leaving status unchanged so it resumes wherever it left off (spec.md
// §4.8: "a blocked plan remembers whether it was active, review, etc.").
func (d *Dispatcher) Unblock(ctx context.Context, identifier string) error {
	st, err := statestore.Load(d.Paths)
	if err != nil {
		return err
	}
	planID, err := resolver.Resolve(d.Paths, st, identifier)
	if err != nil {
		return err
	}
	ps, ok := st.Plans[planID]
	if !ok {
		return fmt.Errorf("dispatcher: unblock: %q is not yet an active plan", planID)
	}

	ps.Blocked = false
	ps.LastError = ""
	ps.ResetRetries(ps.LastTodoIndex)
	ps.UpdatedAt = time.Now().UTC()
	return statestore.Save(d.Paths, st)
}

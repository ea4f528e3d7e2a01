package dispatcher

import (
	"context"

	"github.com/daydemir/ralphd/internal/bus"
	"github.com/daydemir/ralphd/internal/hooks"
	"github.com/daydemir/ralphd/internal/review"
	"github.com/daydemir/ralphd/internal/statestore"
)

// tickRepoBus polls every registered platform bridge once and runs onEvent
// hooks against whatever new events land, independent of any one plan
// (spec.md §5: bridge polling is "one logical await" shared across the
// tick, not repeated per plan).
func (d *Dispatcher) tickRepoBus(ctx context.Context, st *statestore.State) {
	if err := bus.TickEvents(ctx, d.BusPaths, d.Bridges, d.OnLog); err != nil {
		d.log("dispatcher: repo bus tick events: %v", err)
	}

	cursor, err := bus.LoadDispatcherCursor(d.BusPaths)
	if err != nil {
		d.log("dispatcher: load repo cursor: %v", err)
		return
	}

	emit := func(a bus.Action) {
		if err := bus.AppendAction(d.BusPaths, a); err != nil {
			d.log("dispatcher: emit repo action: %v", err)
		}
	}
	hctx := hooks.NewContext(d.RepoRoot, "", "", hooks.NewStateStore(d.Paths.LocalDir), nil, emit)

	if err := d.runEventHooks(ctx, d.BusPaths, cursor, hctx); err != nil {
		d.log("dispatcher: repo onEvent hook: %v", err)
	}

	if err := bus.ProcessActions(ctx, d.BusPaths, d.Bridges, cursor, d.OnLog); err != nil {
		d.log("dispatcher: repo bus process actions: %v", err)
	}

	if err := bus.SaveDispatcherCursor(d.BusPaths, cursor); err != nil {
		d.log("dispatcher: save repo cursor: %v", err)
	}
}

// runEventHooks reads events since cursor.EventsOffset from busPaths and
// runs them through d.Hooks.RunEventHooks, advancing and deduping the
// cursor as it goes. Errors abort further hook processing this tick and
// are surfaced to the caller for recording against the right scope.
func (d *Dispatcher) runEventHooks(ctx context.Context, busPaths bus.Paths, cursor *bus.DispatcherCursor, hctx *hooks.Context) error {
	evs, newOffset, err := bus.ReadEvents(busPaths, cursor.EventsOffset)
	if err != nil {
		return err
	}
	cursor.EventsOffset = newOffset

	for _, ev := range evs {
		if cursor.Seen(ev.ID) {
			continue
		}
		if _, err := d.Hooks.RunEventHooks(ctx, hctx, ev); err != nil {
			return err
		}
		cursor.MarkProcessed(ev.ID)
	}
	return nil
}

// tickPlanBus polls the plan's review provider (if any) into its
// worktree-local bus, runs onEvent hooks scoped to this plan, and delivers
// any queued outbound actions — the per-plan analogue of tickRepoBus
// (spec.md §4.8's tickBusEvents(worktree)/tickBusActions(worktree)).
func (d *Dispatcher) tickPlanBus(ctx context.Context, ps *statestore.PlanState, worktreeLocal string, runAgent hooks.RunAgentFunc) {
	worktreeBus := bus.NewPaths(worktreeLocal)

	if d.ReviewProvider != nil {
		if err := d.tickReviewProvider(ctx, ps, worktreeBus); err != nil {
			d.log("dispatcher: plan %s: review poll: %v", ps.PlanID, err)
		}
	}

	cursor, err := bus.LoadDispatcherCursor(worktreeBus)
	if err != nil {
		d.log("dispatcher: plan %s: load cursor: %v", ps.PlanID, err)
		return
	}

	emit := func(a bus.Action) {
		if err := bus.AppendAction(worktreeBus, a); err != nil {
			d.log("dispatcher: plan %s: emit action: %v", ps.PlanID, err)
		}
	}
	hctx := hooks.NewContext(d.RepoRoot, ps.Worktree, ps.PlanID, hooks.NewStateStore(worktreeLocal), runAgent, emit)

	if err := d.runEventHooks(ctx, worktreeBus, cursor, hctx); err != nil {
		ps.Blocked = true
		ps.LastError = "onEvent hook: " + err.Error()
		d.recordErr(ps, worktreeLocal, "tickPlanBus.onEvent", err)
	}

	if err := bus.ProcessActions(ctx, worktreeBus, d.Bridges, cursor, d.OnLog); err != nil {
		d.log("dispatcher: plan %s: process actions: %v", ps.PlanID, err)
	}

	if err := bus.SaveDispatcherCursor(worktreeBus, cursor); err != nil {
		d.log("dispatcher: plan %s: save cursor: %v", ps.PlanID, err)
	}
}

// tickReviewProvider polls this plan's configured review provider and
// appends any new items to its worktree-local bus as review_feedback
// events (spec.md §4.7's bridged adapter).
func (d *Dispatcher) tickReviewProvider(ctx context.Context, ps *statestore.PlanState, worktreeBus bus.Paths) error {
	provider, err := d.ReviewProvider(ps.Worktree)
	if err != nil {
		return err
	}
	state, err := bus.LoadPollState(worktreeBus, "review."+provider.Name())
	if err != nil {
		return err
	}
	items, newState, err := provider.Poll(ctx, state)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := bus.AppendEvent(worktreeBus, review.ToEvent(provider.Name(), item)); err != nil {
			return err
		}
	}
	return bus.SavePollState(worktreeBus, "review."+provider.Name(), newState)
}

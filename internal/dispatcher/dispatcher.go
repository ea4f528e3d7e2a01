// Package dispatcher runs the single-threaded cooperative tick loop that
// advances every plan through its lifecycle state machine (spec.md §4.8).
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/daydemir/ralphd/internal/bus"
	"github.com/daydemir/ralphd/internal/config"
	"github.com/daydemir/ralphd/internal/events"
	"github.com/daydemir/ralphd/internal/hooks"
	"github.com/daydemir/ralphd/internal/review"
	"github.com/daydemir/ralphd/internal/statestore"
)

// Dispatcher holds everything one tick loop needs: repo-rooted paths, the
// shared bridge/hook/review registries, and the optional status-snapshot
// fan-out.
type Dispatcher struct {
	RepoRoot string
	Paths    statestore.Paths
	BusPaths bus.Paths
	Config   *config.Config

	Bridges *bus.Registry
	Hooks   *hooks.Registry

	// ReviewProvider builds the review.Provider for a plan's worktree,
	// chosen by cfg.Review.Provider ("local" or "platform"). nil disables
	// review polling entirely (status=review plans simply never advance).
	ReviewProvider func(worktree string) (review.Provider, error)

	CompletionTimeout time.Duration
	TickInterval      time.Duration

	Events *events.Hub

	// OnLog receives free-form progress/diagnostic lines that have no
	// specific plan to attach to (errlog.Sink covers plan-scoped errors).
	OnLog func(string)
}

// New constructs a Dispatcher from loaded configuration, wiring the bridge
// and hook registries the caller has already assembled.
func New(repoRoot string, local string, cfg *config.Config, bridges *bus.Registry, hookRegistry *hooks.Registry, reviewProvider func(string) (review.Provider, error), hub *events.Hub, onLog func(string)) *Dispatcher {
	paths := statestore.NewPaths(repoRoot, local)
	return &Dispatcher{
		RepoRoot:          repoRoot,
		Paths:             paths,
		BusPaths:          bus.NewPaths(paths.LocalDir),
		Config:            cfg,
		Bridges:           bridges,
		Hooks:             hookRegistry,
		ReviewProvider:    reviewProvider,
		CompletionTimeout: 2 * time.Hour,
		TickInterval:      time.Duration(cfg.Bus.TickIntervalMs) * time.Millisecond,
		Events:            hub,
		OnLog:             onLog,
	}
}

func (d *Dispatcher) log(format string, args ...any) {
	if d.OnLog != nil {
		d.OnLog(fmt.Sprintf(format, args...))
	}
}

// Run loops Tick until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		if err := d.Tick(ctx); err != nil {
			d.log("dispatcher: tick error: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.TickInterval):
		}
	}
}

// Tick performs exactly one pass of spec.md §4.8's tick pseudocode.
func (d *Dispatcher) Tick(ctx context.Context) error {
	st, err := statestore.Load(d.Paths)
	if err != nil {
		return err
	}

	if err := d.ingestInboxPlans(st); err != nil {
		d.log("dispatcher: ingest inbox: %v", err)
	}

	d.tickRepoBus(ctx, st)

	for _, ps := range st.Ordered() {
		if ps.Status == statestore.StatusDone || ps.Blocked {
			continue
		}
		d.tickPlan(ctx, st, ps)
	}

	if err := statestore.Save(d.Paths, st); err != nil {
		return err
	}

	if d.Events != nil {
		for _, ps := range st.Ordered() {
			d.Events.Publish(snapshotOf(ps))
		}
	}
	return nil
}

func snapshotOf(ps *statestore.PlanState) events.Snapshot {
	return events.Snapshot{
		PlanID:    ps.PlanID,
		Status:    ps.Status,
		Agent:     ps.Agent,
		Blocked:   ps.Blocked,
		LastError: ps.LastError,
		UpdatedAt: ps.UpdatedAt.Format(time.RFC3339),
	}
}

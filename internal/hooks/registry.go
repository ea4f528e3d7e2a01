package hooks

import (
	"context"
	"fmt"

	"github.com/daydemir/ralphd/internal/bus"
)

type planHookEntry struct {
	plugin string
	fn     PlanHook
}

type eventHookEntry struct {
	plugin  string
	fn      EventHook
	targets []string
}

// Registry holds every registered plugin's hooks, grouped by point, in
// registration order. A duplicate registration at the same point appends
// to that point's ordered list (spec.md §4.6) — the registry itself never
// rejects a repeat name, since "duplicate" here means "another plugin
// registered at this point," not a name collision.
type Registry struct {
	planHooks  map[Point][]planHookEntry
	eventHooks []eventHookEntry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{planHooks: make(map[Point][]planHookEntry)}
}

// RegisterPlanHook appends fn to point's chain, attributed to plugin.
func (r *Registry) RegisterPlanHook(point Point, plugin string, fn PlanHook) {
	r.planHooks[point] = append(r.planHooks[point], planHookEntry{plugin: plugin, fn: fn})
}

// RegisterEventHook appends fn to the onEvent chain. targets, if non-empty,
// are doublestar glob patterns matched against an event's Source; an empty
// targets list means the hook considers every event.
func (r *Registry) RegisterEventHook(plugin string, fn EventHook, targets []string) {
	r.eventHooks = append(r.eventHooks, eventHookEntry{plugin: plugin, fn: fn, targets: targets})
}

// RunPlanHooks threads planText through every hook registered at point, in
// order, stopping at (and returning) the first error — spec.md §4.6's
// failure policy leaves retrying to the dispatcher, which does not retry
// at all: a hook error blocks the plan.
func (r *Registry) RunPlanHooks(ctx context.Context, point Point, base *Context, planText string) (string, error) {
	text := planText
	for _, entry := range r.planHooks[point] {
		scoped := base.forPlugin(entry.plugin)
		scoped.HookPoint = point
		next, err := entry.fn(ctx, scoped, text)
		if err != nil {
			return text, fmt.Errorf("hooks: %s hook %q failed: %w", point, entry.plugin, err)
		}
		text = next
	}
	return text, nil
}

// RunEventHooks offers event to each onEvent hook whose targets match the
// event's source, in order, stopping as soon as one reports Handled or
// Deferred.
func (r *Registry) RunEventHooks(ctx context.Context, base *Context, event bus.Event) (EventOutcome, error) {
	for _, entry := range r.eventHooks {
		if !MatchesAnyTarget(entry.targets, event.Source) {
			continue
		}
		scoped := base.forPlugin(entry.plugin)
		scoped.HookPoint = PointOnEvent
		outcome, err := entry.fn(ctx, scoped, event)
		if err != nil {
			return EventUnhandled, fmt.Errorf("hooks: onEvent hook %q failed: %w", entry.plugin, err)
		}
		if outcome != EventUnhandled {
			return outcome, nil
		}
	}
	return EventUnhandled, nil
}

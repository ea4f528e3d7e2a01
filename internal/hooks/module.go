package hooks

// Module is what a plugin factory returns: the hook points it wants to
// occupy, and optionally an onEvent hook with its target filter.
type Module struct {
	PlanHooks    map[Point]PlanHook
	EventHook    EventHook
	EventTargets []string
}

// Factory builds a Module from a plugin's configuration block (spec.md
// §4.6: "The module exports a factory that, given its config, returns a
// record mapping hook points to hook functions").
type Factory func(config map[string]any) (Module, error)

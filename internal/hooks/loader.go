package hooks

import "fmt"

// PluginConfig is one entry of configuration's `plugins: {<name>: {...}}`
// map (spec.md §4.6).
type PluginConfig struct {
	Module  string
	Config  map[string]any
	Enabled *bool    // nil means enabled
	Targets []string // onEvent filter; ignored for plan-shaping hooks
}

// LoadPlugins resolves and instantiates every enabled entry of configs, in
// the order given by names, registering each plugin's hooks into registry.
// names carries the ordering that a Go map cannot: configuration order
// determines hook-chain order within each point (spec.md §4.6).
func LoadPlugins(repoRoot string, names []string, configs map[string]PluginConfig, registry *Registry) error {
	for _, name := range names {
		cfg, ok := configs[name]
		if !ok {
			continue
		}
		if cfg.Enabled != nil && !*cfg.Enabled {
			continue
		}

		factory, err := ResolveFactory(repoRoot, cfg.Module)
		if err != nil {
			return fmt.Errorf("hooks: plugin %q: %w", name, err)
		}
		mod, err := factory(cfg.Config)
		if err != nil {
			return fmt.Errorf("hooks: plugin %q factory failed: %w", name, err)
		}

		for point, fn := range mod.PlanHooks {
			registry.RegisterPlanHook(point, name, fn)
		}
		if mod.EventHook != nil {
			targets := cfg.Targets
			if len(targets) == 0 {
				targets = mod.EventTargets
			}
			registry.RegisterEventHook(name, mod.EventHook, targets)
		}
	}
	return nil
}

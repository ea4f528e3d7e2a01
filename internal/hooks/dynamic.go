package hooks

import (
	"fmt"
	"plugin"
)

// loadDynamicFactory opens a Go plugin .so and looks up its exported "New"
// factory symbol. Used only for module paths beginning with "./" or "../"
// (spec.md §4.6); package-name modules resolve through the static registry
// instead, since they name a compiled-in Go package, not a file on disk.
func loadDynamicFactory(soPath string) (Factory, error) {
	p, err := plugin.Open(soPath)
	if err != nil {
		return nil, fmt.Errorf("hooks: cannot open plugin %s: %w", soPath, err)
	}
	sym, err := p.Lookup("New")
	if err != nil {
		return nil, fmt.Errorf("hooks: plugin %s has no New symbol: %w", soPath, err)
	}
	factory, ok := sym.(func(map[string]any) (Module, error))
	if !ok {
		return nil, fmt.Errorf("hooks: plugin %s's New symbol has the wrong signature", soPath)
	}
	return Factory(factory), nil
}

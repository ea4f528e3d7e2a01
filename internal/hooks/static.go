package hooks

import "fmt"

// staticFactories is the compiled-in plugin registry: package-name module
// references (the non-"./"-prefixed branch of spec.md §4.6's resolution
// rule) resolve here instead of through the dynamic loader.
var staticFactories = map[string]Factory{}

// RegisterStaticPlugin makes factory resolvable under name. Call from an
// init() in the package implementing a built-in plugin.
func RegisterStaticPlugin(name string, factory Factory) {
	staticFactories[name] = factory
}

func staticFactory(name string) (Factory, bool) {
	f, ok := staticFactories[name]
	return f, ok
}

func errUnknownStaticPlugin(name string) error {
	return fmt.Errorf("hooks: no statically linked plugin registered as %q", name)
}

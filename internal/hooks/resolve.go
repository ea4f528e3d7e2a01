package hooks

import (
	"path/filepath"
	"strings"
)

// ResolveFactory implements spec.md §4.6's module resolution: a module
// beginning with "./" or "../" is a path to a plugin .so, relative to
// repoRoot; anything else names a statically linked plugin package.
func ResolveFactory(repoRoot, module string) (Factory, error) {
	if strings.HasPrefix(module, "./") || strings.HasPrefix(module, "../") {
		soPath := module
		if !filepath.IsAbs(soPath) {
			soPath = filepath.Join(repoRoot, module)
		}
		return loadDynamicFactory(soPath)
	}
	f, ok := staticFactory(module)
	if !ok {
		return nil, errUnknownStaticPlugin(module)
	}
	return f, nil
}

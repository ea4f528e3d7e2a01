package hooks

import (
	"context"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func TestLoadPluginsResolvesStaticAndRegistersHooks(t *testing.T) {
	RegisterStaticPlugin("test-echo-plugin", func(config map[string]any) (Module, error) {
		suffix, _ := config["suffix"].(string)
		return Module{
			PlanHooks: map[Point]PlanHook{
				PointBeforeTodo: func(ctx context.Context, hctx *Context, text string) (string, error) {
					return text + suffix, nil
				},
			},
		}, nil
	})

	registry := NewRegistry()
	configs := map[string]PluginConfig{
		"echo": {Module: "test-echo-plugin", Config: map[string]any{"suffix": "-echoed"}},
	}
	if err := LoadPlugins("/repo", []string{"echo"}, configs, registry); err != nil {
		t.Fatalf("LoadPlugins: %v", err)
	}

	base := NewContext("/repo", "/work", "plan-1", NewStateStore(t.TempDir()), nil, nil)
	result, err := registry.RunPlanHooks(context.Background(), PointBeforeTodo, base, "start")
	if err != nil {
		t.Fatalf("RunPlanHooks: %v", err)
	}
	if result != "start-echoed" {
		t.Fatalf("result = %q", result)
	}
}

func TestLoadPluginsSkipsDisabled(t *testing.T) {
	calls := 0
	RegisterStaticPlugin("test-disabled-plugin", func(config map[string]any) (Module, error) {
		calls++
		return Module{}, nil
	})

	registry := NewRegistry()
	configs := map[string]PluginConfig{
		"d": {Module: "test-disabled-plugin", Enabled: boolPtr(false)},
	}
	if err := LoadPlugins("/repo", []string{"d"}, configs, registry); err != nil {
		t.Fatalf("LoadPlugins: %v", err)
	}
	if calls != 0 {
		t.Fatalf("disabled plugin's factory should not run, calls = %d", calls)
	}
}

func TestLoadPluginsUnknownStaticModuleErrors(t *testing.T) {
	registry := NewRegistry()
	configs := map[string]PluginConfig{
		"x": {Module: "does-not-exist-anywhere"},
	}
	if err := LoadPlugins("/repo", []string{"x"}, configs, registry); err == nil {
		t.Fatal("expected an error resolving an unregistered static module")
	}
}

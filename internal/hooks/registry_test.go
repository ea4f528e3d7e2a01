package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/daydemir/ralphd/internal/bus"
)

func TestRunPlanHooksThreadsOutputToInput(t *testing.T) {
	r := NewRegistry()
	r.RegisterPlanHook(PointBeforeTodo, "p1", func(ctx context.Context, hctx *Context, text string) (string, error) {
		return text + "-p1", nil
	})
	r.RegisterPlanHook(PointBeforeTodo, "p2", func(ctx context.Context, hctx *Context, text string) (string, error) {
		return text + "-p2", nil
	})

	base := NewContext("/repo", "/work", "plan-1", NewStateStore(t.TempDir()), nil, nil)
	result, err := r.RunPlanHooks(context.Background(), PointBeforeTodo, base, "start")
	if err != nil {
		t.Fatalf("RunPlanHooks: %v", err)
	}
	if result != "start-p1-p2" {
		t.Fatalf("result = %q", result)
	}
}

func TestRunPlanHooksStopsOnError(t *testing.T) {
	r := NewRegistry()
	called := false
	r.RegisterPlanHook(PointBeforeTodo, "p1", func(ctx context.Context, hctx *Context, text string) (string, error) {
		return "", errors.New("boom")
	})
	r.RegisterPlanHook(PointBeforeTodo, "p2", func(ctx context.Context, hctx *Context, text string) (string, error) {
		called = true
		return text, nil
	})

	base := NewContext("/repo", "/work", "plan-1", NewStateStore(t.TempDir()), nil, nil)
	_, err := r.RunPlanHooks(context.Background(), PointBeforeTodo, base, "start")
	if err == nil {
		t.Fatal("expected an error")
	}
	if called {
		t.Fatal("p2 should not run after p1 fails")
	}
}

func TestRunEventHooksRespectsTargets(t *testing.T) {
	r := NewRegistry()
	r.RegisterEventHook("github-only", func(ctx context.Context, hctx *Context, ev bus.Event) (EventOutcome, error) {
		return EventHandled, nil
	}, []string{"github:*/*"})

	base := NewContext("/repo", "/work", "plan-1", NewStateStore(t.TempDir()), nil, nil)
	outcome, err := r.RunEventHooks(context.Background(), base, bus.Event{Source: "review:local"})
	if err != nil {
		t.Fatalf("RunEventHooks: %v", err)
	}
	if outcome != EventUnhandled {
		t.Fatalf("outcome = %v, want unhandled (target mismatch)", outcome)
	}

	outcome2, err := r.RunEventHooks(context.Background(), base, bus.Event{Source: "github:acme/widgets"})
	if err != nil {
		t.Fatalf("RunEventHooks: %v", err)
	}
	if outcome2 != EventHandled {
		t.Fatalf("outcome2 = %v, want handled", outcome2)
	}
}

func TestContextStateIsPluginScoped(t *testing.T) {
	store := NewStateStore(t.TempDir())
	base := NewContext("/repo", "/work", "plan-1", store, nil, nil)

	a := base.forPlugin("a")
	b := base.forPlugin("b")

	if err := a.SetState("k", []byte(`"from-a"`)); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if _, ok, _ := b.GetState("k"); ok {
		t.Fatal("plugin b should not see plugin a's state")
	}
	val, ok, err := a.GetState("k")
	if err != nil || !ok || string(val) != `"from-a"` {
		t.Fatalf("GetState = %s, %v, %v", val, ok, err)
	}
}

func TestContextGlobalStateSharedAcrossPlugins(t *testing.T) {
	store := NewStateStore(t.TempDir())
	base := NewContext("/repo", "/work", "plan-1", store, nil, nil)
	a := base.forPlugin("a")
	b := base.forPlugin("b")

	if err := a.SetGlobalState("shared", []byte(`1`)); err != nil {
		t.Fatalf("SetGlobalState: %v", err)
	}
	val, ok, err := b.GetGlobalState("shared")
	if err != nil || !ok || string(val) != "1" {
		t.Fatalf("GetGlobalState from b = %s, %v, %v", val, ok, err)
	}
}
